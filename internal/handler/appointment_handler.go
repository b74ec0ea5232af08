package handler

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/report"
)

type bookRequest struct {
	Service string `json:"service"`
	Date    string `json:"date"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type appointmentResponse struct {
	Message     string             `json:"message"`
	Appointment *model.Appointment `json:"appointment"`
}

func (h *Handler) ListMine(c echo.Context) error {
	list, err := h.svc.ListMine(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return h.fail(c, "list my appointments", "Could not load appointments", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Availability(c echo.Context) error {
	av, err := h.svc.Availability(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return h.fail(c, "check availability", "Could not check availability", err)
	}
	return c.JSON(http.StatusOK, av)
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return badBody()
	}
	a, err := h.svc.Book(c.Request().Context(), currentUser(c).ID, req.Service, req.Date)
	if err != nil {
		return h.fail(c, "book appointment", "Could not book appointment", err)
	}
	return c.JSON(http.StatusCreated, appointmentResponse{Message: "Appointment request submitted.", Appointment: a})
}

func (h *Handler) ListForDay(c echo.Context) error {
	list, err := h.svc.ListForDay(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return h.fail(c, "list day appointments", "Could not load appointments", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) SetStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badBody()
	}
	a, err := h.svc.SetStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return h.fail(c, "update appointment status", "Could not update appointment status", err)
	}
	return c.JSON(http.StatusOK, appointmentResponse{Message: "Appointment status updated.", Appointment: a})
}

// DaySheet serves the day listing as a printable PDF.
func (h *Handler) DaySheet(c echo.Context) error {
	ctx := c.Request().Context()
	day, err := h.svc.DayOrToday(c.QueryParam("date"))
	if err != nil {
		return h.fail(c, "day sheet", "Could not build day sheet", err)
	}
	list, err := h.svc.ListForDay(ctx, model.FormatDay(day))
	if err != nil {
		return h.fail(c, "day sheet", "Could not build day sheet", err)
	}

	var buf bytes.Buffer
	if err := report.DaySheet(&buf, h.clinicName, day, list, h.svc.Now()); err != nil {
		return h.fail(c, "day sheet", "Could not build day sheet", err)
	}
	filename := "day-sheet-" + model.FormatDay(day) + ".pdf"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
