package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic-booking-api/internal/clinic"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	Message string `json:"message,omitempty"`
	*clinic.Session
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badBody()
	}
	sess, err := h.svc.Register(c.Request().Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		return h.fail(c, "register", "Server error during registration", err)
	}
	return c.JSON(http.StatusCreated, sessionResponse{Message: "Patient registered successfully", Session: sess})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badBody()
	}
	sess, err := h.svc.Login(c.Request().Context(), req.Email, req.Password, req.Role)
	if err != nil {
		return h.fail(c, "login", "Server error during login", err)
	}
	return c.JSON(http.StatusOK, sessionResponse{Message: "Logged in successfully", Session: sess})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return badBody()
	}
	sess, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return h.fail(c, "refresh", "Could not refresh session", err)
	}
	return c.JSON(http.StatusOK, sessionResponse{Session: sess})
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context(), currentUser(c).ID); err != nil {
		return h.fail(c, "logout", "Could not log out", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}
