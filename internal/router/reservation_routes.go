package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-equipment-reservation/internal/handler"
	"github.com/iliyamo/lab-equipment-reservation/internal/middleware"
	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// RegisterReservations registers the reservation pages under /v1.  Every
// signed-in role may list, view and chat; the handler limits faculty to
// their own reservations.  Creating and editing are faculty actions, but
// staff may edit on a faculty member's behalf.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, gd Guards) {
	g := e.Group(
		"/v1/reservations",
		gd.Auth,
		middleware.RequireRole(model.RoleFaculty, model.RoleStaff, model.RoleAdmin),
	)
	g.GET("", h.List)
	g.GET("/code/:code", h.GetByCode)
	g.GET("/:id", h.Get)
	g.POST("/:id/messages", h.SendMessage, gd.Limit)
	g.POST("/:id/seen", h.OpenThread)

	g.POST("", h.Create, middleware.RequireRole(model.RoleFaculty), gd.Limit)
	g.PUT("/:id", h.Update, gd.Limit)
}
