package router

// This file registers the staff pages: reservation actions, inventory,
// the maintenance schedule and the staff list.  They are separate from the
// shared reservation routes to keep role checks in one place.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-equipment-reservation/internal/handler"
	"github.com/iliyamo/lab-equipment-reservation/internal/middleware"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// RegisterStaff registers routes mounted under /v1/staff.  All of them
// require a JWT and the STAFF or ADMIN role.
func RegisterStaff(e *echo.Echo, r *handler.StaffReservationHandler, s *handler.SheetHandler, gd Guards) {
	g := e.Group(
		"/v1/staff",
		gd.Auth,
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	// Reservation workflow actions; guards run before any API call.
	g.POST("/reservations/:id/approve", r.Approve, gd.Limit)
	g.POST("/reservations/:id/reject", r.Reject, gd.Limit)
	g.POST("/reservations/:id/assign", r.Assign, gd.Limit)
	g.GET("/reservations/:id/candidates", r.Candidates)
	g.DELETE("/reservations/:id", r.Delete, gd.Limit)
	g.POST("/reservations/bulk-delete", r.BulkDelete, gd.Limit)

	// Spreadsheet-backed pages.
	g.GET("/inventory", s.Inventory)
	g.GET("/maintenance", s.Maintenance)
	g.GET("/maintenance/export", s.ExportMaintenance)
	g.PUT("/maintenance/:num", s.UpdateMaintenance, gd.Limit)
	g.GET("/staff", s.Staff)
	g.GET("/todo", s.Todo)
}
