package handler

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "github.com/xuri/excelize/v2"

    "github.com/iliyamo/lab-equipment-reservation/internal/chat"
    "github.com/iliyamo/lab-equipment-reservation/internal/client"
    "github.com/iliyamo/lab-equipment-reservation/internal/middleware"
    "github.com/iliyamo/lab-equipment-reservation/internal/model"
    "github.com/iliyamo/lab-equipment-reservation/internal/reservation"
    "github.com/iliyamo/lab-equipment-reservation/internal/session"
    "github.com/iliyamo/lab-equipment-reservation/internal/utils"
)

const secret = "handler-test"

var (
    faculty = model.Identity{Email: "fac@uni.edu", Role: model.RoleFaculty, Name: "Dr. Cruz"}
    other   = model.Identity{Email: "other@uni.edu", Role: model.RoleFaculty, Name: "Dr. Lim"}
    staff   = model.Identity{Email: "staff@uni.edu", Role: model.RoleStaff, Name: "Sam"}
)

// remote fakes the reservation API for every handler interface.
type remote struct {
    mu       sync.Mutex
    store    map[string]model.Reservation
    items    []model.InventoryItem
    listErr  error
    creates  int
    assigned []model.AssignedItem
    failDel  map[string]bool
}

func newRemote(rs ...model.Reservation) *remote {
    f := &remote{store: map[string]model.Reservation{}, failDel: map[string]bool{}}
    for _, r := range rs {
        f.store[r.ID] = r
    }
    return f
}

func (f *remote) List(context.Context) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.listErr != nil {
        return nil, f.listErr
    }
    out := make([]model.Reservation, 0, len(f.store))
    for _, r := range f.store {
        out = append(out, r)
    }
    return out, nil
}

func (f *remote) Get(_ context.Context, id string) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.store[id]
    if !ok {
        return nil, client.ErrNotFound
    }
    return &r, nil
}

func (f *remote) GetByCode(_ context.Context, code string) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, r := range f.store {
        if r.Code == code {
            return &r, nil
        }
    }
    return nil, client.ErrNotFound
}

func (f *remote) Create(_ context.Context, in model.ReservationInput) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.creates++
    r := model.Reservation{ID: "new", Code: "RES-NEW", Subject: in.Subject, InstructorEmail: in.InstructorEmail, Status: model.StatusPending}
    f.store[r.ID] = r
    return &r, nil
}

func (f *remote) Update(_ context.Context, id string, in model.ReservationInput) (*model.Reservation, error) {
    return f.mutate(id, func(r *model.Reservation) { r.Subject = in.Subject })
}

func (f *remote) Approve(_ context.Context, id, by string) (*model.Reservation, error) {
    return f.mutate(id, func(r *model.Reservation) { r.Status, r.ApprovedBy = model.StatusApproved, by })
}

func (f *remote) Reject(_ context.Context, id, reason, by, name string) (*model.Reservation, error) {
    return f.mutate(id, func(r *model.Reservation) {
        r.Status, r.RejectReason, r.RejectedBy, r.RejectedName = model.StatusRejected, reason, by, name
    })
}

func (f *remote) Assign(_ context.Context, id string, items []model.AssignedItem, by string) (*model.Reservation, error) {
    f.assigned = items
    return f.mutate(id, func(r *model.Reservation) { r.Status, r.AssignedItems, r.AssignedBy = model.StatusAssigned, items, by })
}

func (f *remote) Delete(_ context.Context, id string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.failDel[id] {
        return errors.New("remote refused")
    }
    delete(f.store, id)
    return nil
}

func (f *remote) SendMessage(_ context.Context, id, sender, name, text string) (*model.Reservation, error) {
    return f.mutate(id, func(r *model.Reservation) {
        r.Messages = append(r.Messages, model.Message{Sender: sender, SenderName: name, Message: text, SeenBy: []string{sender}})
    })
}

func (f *remote) MarkSeen(_ context.Context, id, who string) error {
    _, err := f.mutate(id, func(r *model.Reservation) {
        for i := range r.Messages {
            if !r.Messages[i].SeenByUser(who) {
                r.Messages[i].SeenBy = append(r.Messages[i].SeenBy, who)
            }
        }
    })
    return err
}

func (f *remote) Inventory(context.Context) ([]model.InventoryItem, error) { return f.items, nil }

func (f *remote) mutate(id string, fn func(*model.Reservation)) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.store[id]
    if !ok {
        return nil, client.ErrNotFound
    }
    fn(&r)
    f.store[id] = r
    return &r, nil
}

type sessions map[string]model.Identity

func (s sessions) Identity(_ context.Context, sid string) (model.Identity, error) {
    id, ok := s[sid]
    if !ok {
        return model.Identity{}, session.ErrNoSession
    }
    return id, nil
}

// server mounts the handlers the way the router does, minus rate limiting.
func server(f *remote) *echo.Echo {
    e := echo.New()
    e.Validator = utils.NewValidator(nil)
    auth := middleware.JWTAuth(secret, sessions{"fac": faculty, "other": other, "staff": staff})

    wf := reservation.NewWorkflow(f, nil, nil)
    rh := NewReservationHandler(f, wf, chat.NewMessenger(f, nil, nil), nil)
    g := e.Group("/v1/reservations", auth)
    g.GET("", rh.List)
    g.POST("", rh.Create)
    g.GET("/:id", rh.Get)
    g.PUT("/:id", rh.Update)
    g.POST("/:id/messages", rh.SendMessage)
    g.POST("/:id/seen", rh.OpenThread)

    sh := NewStaffReservationHandler(f, f, wf, nil)
    s := e.Group("/v1/staff", auth, middleware.RequireRole(model.RoleStaff, model.RoleAdmin))
    s.POST("/reservations/:id/approve", sh.Approve)
    s.POST("/reservations/:id/reject", sh.Reject)
    s.GET("/reservations/:id/candidates", sh.Candidates)
    s.POST("/reservations/:id/assign", sh.Assign)
    s.POST("/reservations/bulk-delete", sh.BulkDelete)
    return e
}

func do(t *testing.T, e *echo.Echo, method, path, sid, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if sid != "" {
        id := sessions{"fac": faculty, "other": other, "staff": staff}[sid]
        tok, err := utils.NewAccessToken(secret, id.Email, id.Role, sid, 5)
        require.NoError(t, err)
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func pending(id, email string) model.Reservation {
    return model.Reservation{
        ID: id, Code: "RES-" + id, Subject: "Physics " + id, InstructorEmail: email,
        Status: model.StatusPending, GroupCount: 1, DateCreated: time.Now(),
    }
}

func TestListScopesFacultyToOwnReservations(t *testing.T) {
    mine := pending("1", faculty.Email)
    mine.Messages = []model.Message{{Sender: staff.Email, Message: "hi", SeenBy: []string{staff.Email}}}
    e := server(newRemote(mine, pending("2", other.Email)))

    rec := do(t, e, http.MethodGet, "/v1/reservations", "fac", "")
    require.Equal(t, http.StatusOK, rec.Code)
    body := rec.Body.String()
    assert.Contains(t, body, `"id":"1"`)
    assert.NotContains(t, body, `"id":"2"`)
    assert.Contains(t, body, `"unseen_total":1`)
    assert.Contains(t, body, `"approve":false`)

    rec = do(t, e, http.MethodGet, "/v1/reservations", "staff", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"total":2`)
}

func TestListRemoteFailureIsGeneric(t *testing.T) {
    f := newRemote()
    f.listErr = errors.New("dial tcp 10.0.0.1:5000: connection refused")
    rec := do(t, server(f), http.MethodGet, "/v1/reservations", "staff", "")
    assert.Equal(t, http.StatusBadGateway, rec.Code)
    assert.JSONEq(t, `{"error":"failed to load reservations"}`, rec.Body.String())
}

func TestGetOtherFacultyIsForbidden(t *testing.T) {
    e := server(newRemote(pending("1", faculty.Email)))
    assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodGet, "/v1/reservations/1", "other", "").Code)
    assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/v1/reservations/1", "fac", "").Code)
    assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodGet, "/v1/reservations/404", "staff", "").Code)
}

func TestCreateInvalidDraftNeverReachesAPI(t *testing.T) {
    f := newRemote()
    rec := do(t, server(f), http.MethodPost, "/v1/reservations", "fac", `{"subject":""}`)
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    assert.Contains(t, rec.Body.String(), `"field":"subject"`)
    assert.Zero(t, f.creates)
}

func TestCreatePinsFacultyEmail(t *testing.T) {
    f := newRemote()
    body := `{"subject":"Optics","instructor":"Dr. Cruz","instructor_email":"someone@else.edu",
        "course":"PHY101","room":"L2","date":"2026-03-02","startTime":"08:00","endTime":"10:00"}`
    rec := do(t, server(f), http.MethodPost, "/v1/reservations", "fac", body)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    assert.Equal(t, faculty.Email, f.store["new"].InstructorEmail)
}

func TestApproveGuard(t *testing.T) {
    rejected := pending("1", faculty.Email)
    rejected.Status = model.StatusRejected
    f := newRemote(rejected, pending("2", faculty.Email))
    e := server(f)

    assert.Equal(t, http.StatusConflict, do(t, e, http.MethodPost, "/v1/staff/reservations/1/approve", "staff", "").Code)
    assert.Equal(t, model.StatusRejected, f.store["1"].Status)

    rec := do(t, e, http.MethodPost, "/v1/staff/reservations/2/approve", "staff", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, staff.Email, f.store["2"].ApprovedBy)

    assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodPost, "/v1/staff/reservations/2/reject", "fac", `{}`).Code)
}

func TestAssignByLineID(t *testing.T) {
    r := pending("1", faculty.Email)
    r.Status = model.StatusApproved
    r.GroupCount = 3
    r.RequestedItems = []model.RequestedItem{
        {LineID: "l-a", ItemName: "Multimeter", Quantity: 2, ItemType: model.ItemNonConsumable},
        {LineID: "l-b", ItemName: "Wire", Quantity: 5, ItemType: model.ItemConsumable},
    }
    f := newRemote(r)
    f.items = []model.InventoryItem{
        {Num: "10", EquipmentName: "Multimeter", Available: 6},
        {Num: "20", EquipmentName: "Wire", Available: 100, IsConsumable: true},
        {Num: "21", EquipmentName: "Wire (short)", Available: 3, IsConsumable: true},
    }
    e := server(f)

    rec := do(t, e, http.MethodGet, "/v1/staff/reservations/1/candidates?line=1", "staff", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"hasEnough":false`)
    assert.Contains(t, rec.Body.String(), `"totalNeeded":15`)

    short := `{"selections":[{"line_id":"l-a","item_id":"10"},{"line_id":"l-b","item_id":"21"}]}`
    assert.Equal(t, http.StatusUnprocessableEntity, do(t, e, http.MethodPost, "/v1/staff/reservations/1/assign", "staff", short).Code)

    partial := `{"selections":[{"line_id":"l-a","item_id":"10"}]}`
    assert.Equal(t, http.StatusUnprocessableEntity, do(t, e, http.MethodPost, "/v1/staff/reservations/1/assign", "staff", partial).Code)
    assert.Equal(t, model.StatusApproved, f.store["1"].Status)

    ok := `{"selections":[{"line_id":"l-b","item_id":"20"},{"index":0,"item_id":"10"}]}`
    rec = do(t, e, http.MethodPost, "/v1/staff/reservations/1/assign", "staff", ok)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    require.Len(t, f.assigned, 2)
    assert.Equal(t, "l-a", f.assigned[0].LineID)
    assert.Equal(t, 6, f.assigned[0].Quantity)
    assert.Equal(t, 15, f.assigned[1].Quantity)
}

func TestBulkDeleteReportsPartialFailure(t *testing.T) {
    f := newRemote(pending("1", faculty.Email), pending("2", faculty.Email), pending("3", faculty.Email))
    f.failDel["3"] = true
    e := server(f)

    rec := do(t, e, http.MethodPost, "/v1/staff/reservations/bulk-delete", "staff", `{"ids":["1","2","3"]}`)
    assert.Equal(t, http.StatusMultiStatus, rec.Code)
    assert.Contains(t, rec.Body.String(), `"id":"3"`)
    assert.Len(t, f.store, 1)

    assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodPost, "/v1/staff/reservations/bulk-delete", "staff", `{"ids":[]}`).Code)
}

func TestMessagesAndSeen(t *testing.T) {
    f := newRemote(pending("1", faculty.Email))
    e := server(f)

    assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodPost, "/v1/reservations/1/messages", "fac", `{"message":"   "}`).Code)

    rec := do(t, e, http.MethodPost, "/v1/reservations/1/messages", "staff", `{"message":"Items ready at 8"}`)
    require.Equal(t, http.StatusOK, rec.Code)

    rec = do(t, e, http.MethodPost, "/v1/reservations/1/seen", "fac", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"unseen":0`)
    assert.Contains(t, f.store["1"].Messages[0].SeenBy, faculty.Email)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
    e := server(newRemote())
    assert.Equal(t, http.StatusUnauthorized, do(t, e, http.MethodGet, "/v1/reservations", "", "").Code)
}

func TestHealth(t *testing.T) {
    e := echo.New()
    e.GET("/healthz", Health(map[string]HealthCheck{
        "redis": func(context.Context) error { return nil },
        "mysql": func(context.Context) error { return errors.New("down") },
    }))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
    assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

type fakeSheets struct {
    items   []model.MaintenanceItem
    updated []string
}

func (s *fakeSheets) Read(context.Context, string) (*client.Table, error) { return &client.Table{}, nil }
func (s *fakeSheets) Maintenance(context.Context) ([]model.MaintenanceItem, error) {
    return s.items, nil
}
func (s *fakeSheets) UpdateMaintenance(_ context.Context, num, date, by string) error {
    s.updated = append(s.updated, num+"|"+date+"|"+by)
    return nil
}
func (s *fakeSheets) Staff(context.Context) ([]model.StaffMember, error) { return nil, nil }

func TestMaintenanceStatusUsesRequestClock(t *testing.T) {
    sheets := &fakeSheets{items: []model.MaintenanceItem{
        {Num: "1", EquipmentName: "Oscilloscope", Month: "Mar"},
        {Num: "2", EquipmentName: "Balance", Month: "Mar", DateAccomplished: "2026-03-04"},
        {Num: "3", EquipmentName: "Centrifuge", Month: "Jan", DateAccomplished: "2026-01-15"},
    }}
    h := NewSheetHandler(sheets, newRemote(), nil)
    h.Now = func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }

    e := echo.New()
    e.GET("/m", h.Maintenance)
    e.GET("/m/export", h.ExportMaintenance)
    e.PUT("/m/:num", h.UpdateMaintenance)

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/m", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"summary":{"calibrate":1,"completed_this_month":1,"completed":1}`)

    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/m?month=Mar&status=calibrate", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "Oscilloscope")
    assert.NotContains(t, rec.Body.String(), "Balance")

    rec = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPut, "/m/1", strings.NewReader(`{"accomplished_by":"Sam"}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    e.ServeHTTP(rec, req)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, []string{"1|2026-03-20|Sam"}, sheets.updated)

    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/m/export", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "maintenance_2026-03-20.xlsx")
    f, err := excelize.OpenReader(rec.Body)
    require.NoError(t, err)
    defer f.Close()
    v, err := f.GetCellValue("Maintenance", "B2")
    require.NoError(t, err)
    assert.Equal(t, "Oscilloscope", v)
}
