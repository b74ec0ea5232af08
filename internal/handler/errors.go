package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic-booking-api/internal/model"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// fail maps a service error onto an HTTP error. Anything that is not a
// domain error is a store or internal failure: it is logged under op and the
// client only sees fallback.
func (h *Handler) fail(c echo.Context, op, fallback string, err error) error {
	if msg, ok := model.Message(err); ok {
		return echo.NewHTTPError(statusFor(err), msg)
	}
	rid, _ := c.Get("request_id").(string)
	h.log.Error().Err(err).Str("op", op).Str("request_id", rid).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, fallback)
}

func badBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}
