package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"clinic-booking-api/internal/clinic"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc        *clinic.Service
	db         Pinger
	log        zerolog.Logger
	clinicName string
}

func New(svc *clinic.Service, db Pinger, log zerolog.Logger, clinicName string) *Handler {
	if clinicName == "" {
		clinicName = "Clinic"
	}
	return &Handler{svc: svc, db: db, log: log, clinicName: clinicName}
}

// RegisterRoutes mounts the REST API under /api plus /health. Auth endpoints
// share the per-IP limiter rl.
func (h *Handler) RegisterRoutes(e *echo.Echo, rl *middleware.RateLimiter) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	authn := middleware.Authenticate(h.svc.Tokens(), h.svc)

	a := api.Group("/auth")
	a.POST("/register", h.Register, middleware.RateLimit(rl))
	a.POST("/login", h.Login, middleware.RateLimit(rl))
	a.POST("/refresh", h.Refresh, middleware.RateLimit(rl))
	a.POST("/logout", h.Logout, authn)

	d := api.Group("/dashboard", authn)
	d.GET("/patient", h.PatientDashboard, middleware.RequireRole(model.RolePatient))
	d.GET("/doctor", h.DoctorDashboard, middleware.RequireRole(model.RoleDoctor))
	d.GET("/admin", h.AdminDashboard, middleware.RequireRole(model.RoleAdmin))

	patient := middleware.RequireRole(model.RolePatient)
	staff := middleware.RequireRole(model.RoleDoctor, model.RoleAdmin)

	ap := api.Group("/appointments", authn)
	ap.GET("/my", h.ListMine, patient)
	ap.GET("/availability", h.Availability, patient)
	ap.POST("/book", h.Book, patient)
	ap.GET("/day", h.ListForDay, staff)
	ap.GET("/day/sheet", h.DaySheet, staff)
	ap.PATCH("/:id/status", h.SetStatus, staff)
}

func currentUser(c echo.Context) *model.User {
	u, _ := middleware.UserFromContext(c.Request().Context())
	return u
}
