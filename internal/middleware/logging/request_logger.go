package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
)

// RequestLogger stores a request scoped logger in the context and writes one
// http_request line when the request is done. Handler errors are rendered
// here so the logged status is the one the client sees, and the caller is
// logged once authentication has run.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With("method", req.Method, "route", c.Path())
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("bytes", c.Response().Size),
				slog.String("url", req.URL.RequestURI()),
				slog.String("remote_ip", c.RealIP()),
			}
			if p, ok := authmw.PrincipalFrom(c); ok {
				attrs = append(attrs, slog.String("user_id", p.UserID.String()), slog.Bool("is_admin", p.IsAdmin))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}

			l.LogAttrs(c.Request().Context(), level(c.Path(), status), "http_request", attrs...)
			return nil
		}
	}
}

// level maps a finished request to a log level. Health probes stay at
// debug unless they fail.
func level(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case strings.HasPrefix(route, "/health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
