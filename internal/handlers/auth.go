package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/tokens"
	"github.com/Skotchmaster/car_dealership/internal/transport"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Producer mykafka.Publisher
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		case errors.Is(err, service.ErrConflict):
			l.Warn("register_error", "status", 400, "reason", "username taken", "username", req.Username)
			return echo.NewHTTPError(http.StatusBadRequest, "Username is already taken")
		default:
			l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create user")
		}
	}

	c.SetCookie(tokens.CreateCookie(authmw.AccessCookie, res.Token, "/", res.ExpiresAt))
	publish(c, h.Producer, mykafka.TopicUserEvents, res.User.ID, map[string]any{
		"type":     "user_registered",
		"userID":   res.User.ID,
		"username": res.User.Username,
		"is_admin": res.User.IsAdmin,
	})

	l.Info("register_success", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, transport.AuthResponse{
		Message:  "User registered successfully",
		Token:    res.Token,
		UserID:   res.User.ID,
		IsAdmin:  res.User.IsAdmin,
		Username: res.User.Username,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrValidation) {
			l.Warn("login_failed", "status", 401, "username", req.Username)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		l.Error("login_failed", "status", 500, "reason", "cannot check credentials", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check credentials")
	}

	c.SetCookie(tokens.CreateCookie(authmw.AccessCookie, res.Token, "/", res.ExpiresAt))
	l.Info("login_successful", "user_id", res.User.ID)

	return c.JSON(http.StatusOK, transport.AuthResponse{
		Token:    res.Token,
		UserID:   res.User.ID,
		IsAdmin:  res.User.IsAdmin,
		Username: res.User.Username,
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")

	c.SetCookie(tokens.DeleteCookie(authmw.AccessCookie, "/"))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Logged out"})
}
