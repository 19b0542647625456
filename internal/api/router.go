package api

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes wires the reservation endpoints. Every route runs the
// Identity middleware; authorization itself happens in the service
// layer so the rules live next to the state machine.
func RegisterRoutes(e *echo.Echo, h *ReservationHandler, jwtSecret string) {
	e.Use(echomw.Recover())
	e.Use(Identity(jwtSecret))

	v1 := e.Group("/api/v1")

	v1.GET("/reserves", h.Search)
	v1.POST("/reserves", h.Create)
	v1.GET("/reserves/:id", h.FindByID)
	v1.PUT("/reserves/:id", h.Update)
	v1.PUT("/reserves/cancel/:id", h.Cancel)
	v1.PUT("/reserves/approve/:id", h.Approve)
	v1.GET("/reserves/:id/dates", h.ListForItemInWindow)
	v1.GET("/users/:userId/reserves", h.SearchForUser)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, echo.Map{"status": "ok"})
	})
}
