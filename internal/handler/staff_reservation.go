package handler

import (
    "context"  // context is threaded into every remote call
    "net/http" // HTTP status codes
    "strconv"  // strconv parses the line index
    "strings"  // strings trims ids and reasons

    "github.com/labstack/echo/v4" // Echo web framework
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/lab-equipment-reservation/internal/inventory"   // candidate matching and assignment sessions
    "github.com/iliyamo/lab-equipment-reservation/internal/model"       // domain types
    "github.com/iliyamo/lab-equipment-reservation/internal/reservation" // workflow
)

// InventoryReader returns the current inventory snapshot.
type InventoryReader interface {
    Inventory(ctx context.Context) ([]model.InventoryItem, error)
}

// StaffReservationHandler serves the staff-only reservation actions:
// approve, reject, assign and delete.  Routes are mounted behind
// RequireRole(STAFF, ADMIN).
type StaffReservationHandler struct {
    API       ReservationReader
    Inventory InventoryReader
    Workflow  *reservation.Workflow
    Log       *zap.Logger
}

// NewStaffReservationHandler wires the staff review endpoints.  It panics
// on a nil api, inv or wf.
func NewStaffReservationHandler(api ReservationReader, inv InventoryReader, wf *reservation.Workflow, log *zap.Logger) *StaffReservationHandler {
    if api == nil || inv == nil || wf == nil {
        panic("nil dependency passed to NewStaffReservationHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &StaffReservationHandler{API: api, Inventory: inv, Workflow: wf, Log: log}
}

// current refetches the reservation so guards run against the server's
// status, not whatever the browser last saw.
func (h *StaffReservationHandler) current(ctx context.Context, c echo.Context) (*model.Reservation, error) {
    return h.API.Get(ctx, c.Param("id"))
}

// Approve handles POST /v1/staff/reservations/:id/approve.
func (h *StaffReservationHandler) Approve(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.current(ctx, c)
    if err != nil {
        return respondError(c, h.Log, err, "load reservation")
    }
    r, err = h.Workflow.Approve(ctx, r, id)
    if err != nil {
        return respondError(c, h.Log, err, "approve reservation")
    }
    return c.JSON(http.StatusOK, r)
}

type rejectReq struct {
    Reason string `json:"reason"`
}

// Reject handles POST /v1/staff/reservations/:id/reject.  The reason is
// optional.
func (h *StaffReservationHandler) Reject(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    var req rejectReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.current(ctx, c)
    if err != nil {
        return respondError(c, h.Log, err, "load reservation")
    }
    r, err = h.Workflow.Reject(ctx, r, req.Reason, id)
    if err != nil {
        return respondError(c, h.Log, err, "reject reservation")
    }
    return c.JSON(http.StatusOK, r)
}

// Candidates handles GET /v1/staff/reservations/:id/candidates?line=&search=.
// Insufficient items are listed with has_enough=false.
func (h *StaffReservationHandler) Candidates(c echo.Context) error {
    line, err := strconv.Atoi(c.QueryParam("line"))
    if err != nil || line < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "line must be a non-negative index"})
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.current(ctx, c)
    if err != nil {
        return respondError(c, h.Log, err, "load reservation")
    }
    items, err := h.Inventory.Inventory(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load inventory")
    }
    s := inventory.NewSession(r)
    cands, err := s.Candidates(items, line, c.QueryParam("search"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"line": s.Rows()[line], "candidates": cands})
}

// selection picks an inventory item for one requested line, addressed by
// line id or, for reservations created before line ids existed, by index.
type selection struct {
    LineID string `json:"line_id"`
    Index  *int   `json:"index"`
    ItemID string `json:"item_id"`
}

type assignReq struct {
    Selections []selection `json:"selections"`
}

// Assign handles POST /v1/staff/reservations/:id/assign.  Every requested
// line needs a selection with enough stock; the inventory is re-read
// here so stale browser data cannot pass the stock check.  Items picked by
// several lines beyond their stock are reported as warnings only.
func (h *StaffReservationHandler) Assign(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    var req assignReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    r, err := h.current(ctx, c)
    if err != nil {
        return respondError(c, h.Log, err, "load reservation")
    }
    items, err := h.Inventory.Inventory(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load inventory")
    }
    byNum := make(map[string]model.InventoryItem, len(items))
    for _, it := range items {
        byNum[it.Num] = it
    }

    s := inventory.NewSession(r)
    for _, sel := range req.Selections {
        idx, ok := lineIndex(r, sel)
        if !ok {
            return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "unknown requested line"})
        }
        item, ok := byNum[strings.TrimSpace(sel.ItemID)]
        if !ok {
            return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "unknown inventory item " + sel.ItemID})
        }
        if err := s.Select(idx, item); err != nil {
            return respondError(c, h.Log, err, "assign items")
        }
    }

    warnings := s.Overcommitted()
    r, err = h.Workflow.AssignSession(ctx, r, s, id)
    if err != nil {
        return respondError(c, h.Log, err, "assign items")
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": r, "overcommitted": warnings})
}

func lineIndex(r *model.Reservation, sel selection) (int, bool) {
    if sel.LineID != "" {
        for i, it := range r.RequestedItems {
            if it.LineID == sel.LineID {
                return i, true
            }
        }
        return 0, false
    }
    if sel.Index != nil && *sel.Index >= 0 && *sel.Index < len(r.RequestedItems) {
        return *sel.Index, true
    }
    return 0, false
}

// Delete handles DELETE /v1/staff/reservations/:id.
func (h *StaffReservationHandler) Delete(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    if err := h.Workflow.Delete(ctx, c.Param("id"), id); err != nil {
        return respondError(c, h.Log, err, "delete reservation")
    }
    return c.NoContent(http.StatusNoContent)
}

type bulkDeleteReq struct {
    IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// BulkDelete handles POST /v1/staff/reservations/bulk-delete.  The answer
// lists a result per id after reconciling with a fresh list; it is 200
// when every id is gone and 207 otherwise.
func (h *StaffReservationHandler) BulkDelete(c echo.Context) error {
    id, err := identity(c)
    if err != nil {
        return err
    }
    var req bulkDeleteReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ids is required"})
    }
    ctx, cancel := remoteCtx(c)
    defer cancel()
    report, err := h.Workflow.BulkDelete(ctx, req.IDs, id)
    if err != nil {
        // The deletes ran; only the refetch failed.  Report what is known.
        h.Log.Warn("bulk delete refetch failed", zap.Error(err))
        return c.JSON(http.StatusMultiStatus, echo.Map{"results": report.Results, "error": "failed to refresh reservations"})
    }
    status := http.StatusOK
    if report.Failed() > 0 {
        status = http.StatusMultiStatus
    }
    return c.JSON(status, report)
}
