package handler

import (
    "context"  // context is threaded into every remote call
    "net/http" // HTTP status codes
    "strings"  // string trimming for codes and reasons

    "github.com/labstack/echo/v4" // Echo web framework
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/lab-equipment-reservation/internal/chat"        // messaging and unread counts
    "github.com/iliyamo/lab-equipment-reservation/internal/model"       // domain types
    "github.com/iliyamo/lab-equipment-reservation/internal/reservation" // form, workflow and listing
)

// ReservationReader is the read side of the reservation API.
type ReservationReader interface {
    List(ctx context.Context) ([]model.Reservation, error)
    Get(ctx context.Context, id string) (*model.Reservation, error)
    GetByCode(ctx context.Context, code string) (*model.Reservation, error)
}

// ReservationHandler serves the pages shared by faculty and staff: the
// reservation list, the detail view, the edit form and the chat thread.
// Every request carries the caller's identity explicitly; nothing is read
// from ambient state.
type ReservationHandler struct {
    API       ReservationReader
    Workflow  *reservation.Workflow
    Messenger *chat.Messenger
    Log       *zap.Logger
}

// NewReservationHandler constructs a ReservationHandler.  All dependencies
// must be non-nil.
func NewReservationHandler(api ReservationReader, wf *reservation.Workflow, m *chat.Messenger, log *zap.Logger) *ReservationHandler {
    if api == nil || wf == nil || m == nil {
        panic("nil dependency passed to NewReservationHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &ReservationHandler{API: api, Workflow: wf, Messenger: m, Log: log}
}

// listItem decorates a reservation with what the list page needs.
type listItem struct {
    model.Reservation
    Unseen  int                 `json:"unseen"`
    Actions reservation.Actions `json:"actions"`
}

// canSee reports whether id may view r: staff see everything, faculty
// see their own submissions.
func canSee(id model.Identity, r *model.Reservation) bool {
    return id.IsStaff() || strings.EqualFold(r.InstructorEmail, id.Email)
}

// List handles GET /v1/reservations?search=&status=&page=&per_page=.  The
// collection is always refetched from the API; filtering, sorting and
// paging happen here.
func (h *ReservationHandler) List(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    q := reservation.Query{Search: c.QueryParam("search"), Status: model.Status(c.QueryParam("status"))}
    if q.Status != "" && !q.Status.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }

    ctx, cancel := remoteCtx(c)
    defer cancel()
    all, err := h.API.List(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load reservations")
    }
    if !id.IsStaff() {
        all = reservation.ForInstructor(all, id.Email)
    }
    filtered := reservation.Filter(all, q)
    page := reservation.Paginate(filtered, queryInt(c, "page", 1), queryInt(c, "per_page", 10))

    items := make([]listItem, len(page.Items))
    for i := range page.Items {
        r := page.Items[i]
        items[i] = listItem{Reservation: r, Unseen: chat.UnseenCount(&r, id.Sender()), Actions: actionsFor(id, &r)}
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items":        items,
        "page":         page.Page,
        "per_page":     page.PerPage,
        "total":        page.Total,
        "total_pages":  page.TotalPages,
        "unseen_total": chat.UnseenTotal(filtered, id.Sender()),
    })
}

// actionsFor limits the status-derived actions to what the caller's role
// may do.
func actionsFor(id model.Identity, r *model.Reservation) reservation.Actions {
    a := reservation.AvailableActions(r)
    if !id.IsStaff() {
        a.Approve, a.Reject, a.Assign = false, false, false
    }
    return a
}

// load fetches one reservation and enforces visibility.  On failure the
// response has already been written and the returned error is the
// result of writing it.
func (h *ReservationHandler) load(c echo.Context, id model.Identity) (*model.Reservation, bool, error) {
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.API.Get(ctx, c.Param("id"))
    if err != nil {
        return nil, false, respondError(c, h.Log, err, "load reservation")
    }
    if !canSee(id, r) {
        return nil, false, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return r, true, nil
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    r, ok, err := h.load(c, id)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "reservation": r,
        "unseen":      chat.UnseenCount(r, id.Sender()),
        "actions":     actionsFor(id, r),
    })
}

// GetByCode handles GET /v1/reservations/code/:code.  A missing code is a
// 404 carrying the server's message when it sent one.
func (h *ReservationHandler) GetByCode(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    code := strings.TrimSpace(c.Param("code"))
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.API.GetByCode(ctx, code)
    if err != nil {
        return respondError(c, h.Log, err, "look up reservation")
    }
    if !canSee(id, r) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return c.JSON(http.StatusOK, r)
}

// Create handles POST /v1/reservations.  The body is the draft form; it is
// validated locally and never forwarded when invalid.
func (h *ReservationHandler) Create(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    d := reservation.NewDraft(id)
    if err := c.Bind(d); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    normalizeDraft(d, id)

    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.Workflow.Create(ctx, d, id)
    if err != nil {
        return respondError(c, h.Log, err, "submit reservation")
    }
    return c.JSON(http.StatusCreated, echo.Map{"reservation": r, "totals": d.Totals()})
}

// normalizeDraft reapplies the user-type rules after binding and pins the
// submitter's email for faculty.
func normalizeDraft(d *reservation.Draft, id model.Identity) {
    if d.UserType == model.UserGroup {
        d.SetGroupCount(d.GroupCount)
    } else {
        d.UserType = model.UserIndividual
        d.GroupCount = 1
    }
    if d.ScheduleType == "" {
        d.ScheduleType = reservation.ScheduleSingle
    }
    if !id.IsStaff() {
        d.InstructorEmail = id.Email
    }
}

type updateReq struct {
    Draft  *reservation.Draft `json:"draft"`
    Reason string             `json:"reason"`
}

// Update handles PUT /v1/reservations/:id.  Only Pending and Approved
// reservations may be edited; the status is kept.
func (h *ReservationHandler) Update(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    cur, ok, err := h.load(c, id)
    if !ok {
        return err
    }
    // Start from the stored reservation so omitted fields and line ids
    // survive the edit.
    req := updateReq{Draft: reservation.DraftFromReservation(cur)}
    if err := c.Bind(&req); err != nil || req.Draft == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    normalizeDraft(req.Draft, id)
    if !id.IsStaff() {
        req.Draft.InstructorEmail = cur.InstructorEmail
    }

    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.Workflow.Update(ctx, cur, req.Draft, id, req.Reason)
    if err != nil {
        return respondError(c, h.Log, err, "update reservation")
    }
    return c.JSON(http.StatusOK, r)
}

type messageReq struct {
    Message string `json:"message" validate:"required"`
}

// SendMessage handles POST /v1/reservations/:id/messages.
func (h *ReservationHandler) SendMessage(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    if _, ok, err := h.load(c, id); !ok {
        return err
    }
    var req messageReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.Messenger.Send(ctx, c.Param("id"), id, req.Message)
    if err != nil {
        return respondError(c, h.Log, err, "send message")
    }
    return c.JSON(http.StatusOK, r)
}

// OpenThread handles POST /v1/reservations/:id/seen: mark every message
// seen for the caller and return the refetched reservation.
func (h *ReservationHandler) OpenThread(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    if _, ok, err := h.load(c, id); !ok {
        return err
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.Messenger.Open(ctx, c.Param("id"), id)
    if err != nil {
        return respondError(c, h.Log, err, "load messages")
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": r, "unseen": chat.UnseenCount(r, id.Sender())})
}
