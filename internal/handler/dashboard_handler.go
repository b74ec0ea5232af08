package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (h *Handler) PatientDashboard(c echo.Context) error {
	d, err := h.svc.PatientDashboard(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.fail(c, "patient dashboard", "Could not load dashboard", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DoctorDashboard(c echo.Context) error {
	d, err := h.svc.DoctorDashboard(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.fail(c, "doctor dashboard", "Could not load dashboard", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	d, err := h.svc.AdminDashboard(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.fail(c, "admin dashboard", "Could not load dashboard", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
