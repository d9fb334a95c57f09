package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/tokens"
)

const (
	ctxUserID  = "user_id"
	ctxIsAdmin = "is_admin"

	AccessCookie = "accessToken"
)

type AuthMiddleware struct {
	JWTSecret []byte
}

func NewAuthMiddleware(secret []byte) *AuthMiddleware {
	return &AuthMiddleware{JWTSecret: secret}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.AdminOnly("Access denied")(next)
}

// AdminOnly is RequireAdmin with a route specific denial message. Use it
// only where there is no record to look up first, so a missing record
// still answers 404 before the 403.
func (m *AuthMiddleware) AdminOnly(message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
			if !claims.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, message)
			}
			return nil
		})
	}
}

func (m *AuthMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "auth")

		raw := accessToken(c)
		if raw == "" {
			l.Warn("auth_failed", "status", 401, "reason", "missing token")
			return echo.NewHTTPError(http.StatusUnauthorized, "No token provided")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
			c.SetCookie(tokens.DeleteCookie(AccessCookie, "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		if validator != nil {
			if validationErr := validator(claims); validationErr != nil {
				l.Warn("auth_failed", "status", 403, "reason", "not an admin", "user_id", claims.Subject)
				return validationErr
			}
		}

		setUserContext(c, claims)
		return next(c)
	}
}

// accessToken prefers the Authorization header and falls back to the cookie
// set on login.
func accessToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	id, _ := claims.UserID()
	c.Set(ctxUserID, id)
	c.Set(ctxIsAdmin, claims.IsAdmin)
}

// PrincipalFrom returns the caller stored by RequireAuth.
func PrincipalFrom(c echo.Context) (service.Principal, bool) {
	id, ok := c.Get(ctxUserID).(uuid.UUID)
	if !ok {
		return service.Principal{}, false
	}
	isAdmin, _ := c.Get(ctxIsAdmin).(bool)
	return service.Principal{UserID: id, IsAdmin: isAdmin}, true
}

// ValidUUIDParam rejects requests whose path parameter is not a UUID before
// any authentication runs.
func ValidUUIDParam(name, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := uuid.Parse(c.Param(name)); err != nil {
				logging.FromContext(c.Request().Context()).Warn("invalid_id_param",
					"status", 400, "param", name, "value", c.Param(name))
				return echo.NewHTTPError(http.StatusBadRequest, message)
			}
			return next(c)
		}
	}
}
