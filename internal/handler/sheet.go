package handler

import (
    "context"  // context is threaded into every remote call
    "net/http" // HTTP status codes
    "strings"  // strings lowercases search terms
    "time"     // time supplies the viewer's clock for classification

    "github.com/labstack/echo/v4" // Echo web framework
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/lab-equipment-reservation/internal/client"      // Table for generic sheet reads
    "github.com/iliyamo/lab-equipment-reservation/internal/maintenance" // status classifier and export
    "github.com/iliyamo/lab-equipment-reservation/internal/middleware"  // CurrentIdentity
    "github.com/iliyamo/lab-equipment-reservation/internal/model"       // domain types
)

// SheetAPI is the slice of the spreadsheet client used by the staff pages.
type SheetAPI interface {
    Read(ctx context.Context, sheet string) (*client.Table, error)
    Maintenance(ctx context.Context) ([]model.MaintenanceItem, error)
    UpdateMaintenance(ctx context.Context, num, dateAccomplished, accomplishedBy string) error
    Staff(ctx context.Context) ([]model.StaffMember, error)
}

// SheetHandler serves the list pages backed by the spreadsheet endpoint
// and the inventory list.  Now is injectable so maintenance status can be
// tested against a fixed clock; it is evaluated on every request.
type SheetHandler struct {
    Sheets    SheetAPI
    Inv       InventoryReader
    Now       func() time.Time
    Log       *zap.Logger
}

// NewSheetHandler returns the inventory and maintenance handler; Now
// defaults to time.Now.
func NewSheetHandler(s SheetAPI, inv InventoryReader, log *zap.Logger) *SheetHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &SheetHandler{Sheets: s, Inv: inv, Now: time.Now, Log: log}
}

// Inventory handles GET /v1/staff/inventory?search=&type=.
func (h *SheetHandler) Inventory(c echo.Context) error {
    ctx, cancel := remoteCtx(c)
    defer cancel()
    items, err := h.Inv.Inventory(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load inventory")
    }
    search := strings.ToLower(strings.TrimSpace(c.QueryParam("search")))
    typ := model.ItemType(c.QueryParam("type"))
    out := make([]model.InventoryItem, 0, len(items))
    for _, it := range items {
        if typ != "" && it.ItemType() != typ {
            continue
        }
        if search != "" && !strings.Contains(strings.ToLower(it.EquipmentName), search) {
            continue
        }
        out = append(out, it)
    }
    return c.JSON(http.StatusOK, out)
}

// Maintenance handles GET /v1/staff/maintenance?month=&status=.  Status is
// derived from the request time, never stored.
func (h *SheetHandler) Maintenance(c echo.Context) error {
    ctx, cancel := remoteCtx(c)
    defer cancel()
    items, err := h.Sheets.Maintenance(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load maintenance schedule")
    }
    if m := c.QueryParam("month"); m != "" {
        month, err := maintenance.ParseMonth(m)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        items = maintenance.DueIn(items, month)
    }
    now := h.Now()
    rows := maintenance.WithStatus(items, now)
    if st := c.QueryParam("status"); st != "" {
        kept := rows[:0]
        for _, r := range rows {
            if strings.EqualFold(r.Status, st) {
                kept = append(kept, r)
            }
        }
        rows = kept
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items":   rows,
        "summary": maintenance.Summarize(items, now),
    })
}

// ExportMaintenance handles GET /v1/staff/maintenance/export and streams
// the schedule as an xlsx attachment.
func (h *SheetHandler) ExportMaintenance(c echo.Context) error {
    ctx, cancel := remoteCtx(c)
    defer cancel()
    items, err := h.Sheets.Maintenance(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load maintenance schedule")
    }
    now := h.Now()
    c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
    c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+maintenance.ExportFileName(now))
    c.Response().WriteHeader(http.StatusOK)
    return maintenance.Export(items, now, c.Response().Writer)
}

type maintenanceUpdateReq struct {
    DateAccomplished string `json:"date_accomplished"`
    AccomplishedBy   string `json:"accomplished_by"`
}

// UpdateMaintenance handles PUT /v1/staff/maintenance/:num.  An empty date
// means today; an empty name means the caller.
func (h *SheetHandler) UpdateMaintenance(c echo.Context) error {
    var req maintenanceUpdateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    now := h.Now()
    date := strings.TrimSpace(req.DateAccomplished)
    if date == "" {
        date = now.Format("2006-01-02")
    } else if _, ok := maintenance.ParseDate(date); !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_accomplished"})
    }
    by := strings.TrimSpace(req.AccomplishedBy)
    if by == "" {
        if id, ok := middleware.CurrentIdentity(c); ok {
            by = id.DisplayName()
        }
    }

    ctx, cancel := remoteCtx(c)
    defer cancel()
    if err := h.Sheets.UpdateMaintenance(ctx, c.Param("num"), date, by); err != nil {
        return respondError(c, h.Log, err, "update maintenance record")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "num":               c.Param("num"),
        "date_accomplished": date,
        "accomplished_by":   by,
        "status":            maintenance.Classify(date, now),
    })
}

// Staff handles GET /v1/staff/staff.
func (h *SheetHandler) Staff(c echo.Context) error {
    ctx, cancel := remoteCtx(c)
    defer cancel()
    staff, err := h.Sheets.Staff(ctx)
    if err != nil {
        return respondError(c, h.Log, err, "load staff")
    }
    return c.JSON(http.StatusOK, staff)
}

// Todo handles GET /v1/staff/todo.  The to-do sheet has no fixed schema,
// so rows are returned keyed by normalized header.
func (h *SheetHandler) Todo(c echo.Context) error {
    ctx, cancel := remoteCtx(c)
    defer cancel()
    t, err := h.Sheets.Read(ctx, client.SheetTodo)
    if err != nil {
        return respondError(c, h.Log, err, "load to-do list")
    }
    return c.JSON(http.StatusOK, t.Records())
}
