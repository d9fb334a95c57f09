package loggingmw

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
	"github.com/Skotchmaster/car_dealership/internal/tokens"
)

var secret = []byte("test-jwt-secret")

func newEcho(buf *bytes.Buffer, level string) *echo.Echo {
	e := echo.New()
	e.Use(RequestLogger(logging.NewWithWriter(level, buf)))
	auth := authmw.NewAuthMiddleware(secret)

	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.NoContent(http.StatusOK)
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "gone")
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, auth.RequireAuth)
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	buf.Reset()
	return out
}

func TestRequestLogger_ContextLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	e := newEcho(&buf, "debug")

	req := httptest.NewRequest(http.MethodGet, "/ok?x=1", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "inside", got[0]["msg"])
	assert.Equal(t, "rid-1", got[0]["request_id"])
	assert.Equal(t, "/ok", got[0]["route"])

	assert.Equal(t, "http_request", got[1]["msg"])
	assert.Equal(t, "INFO", got[1]["level"])
	assert.EqualValues(t, 200, got[1]["status"])
	assert.Equal(t, "/ok?x=1", got[1]["url"])
	assert.NotContains(t, got[1], "user_id")
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	e := newEcho(&buf, "debug")

	for path, want := range map[string]string{"/missing": "WARN", "/boom": "ERROR", "/health/live": "DEBUG"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		got := lines(t, &buf)
		require.Len(t, got, 1, path)
		assert.Equal(t, want, got[0]["level"], path)
		assert.EqualValues(t, rec.Code, got[0]["status"], path)
	}
}

func TestRequestLogger_LogsCaller(t *testing.T) {
	var buf bytes.Buffer
	e := newEcho(&buf, "info")

	id := uuid.New()
	tok, _, err := tokens.CreateAccessToken(id, true, time.Hour, secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	e.ServeHTTP(httptest.NewRecorder(), req)

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, id.String(), got[0]["user_id"])
	assert.Equal(t, true, got[0]["is_admin"])

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))
	got = lines(t, &buf)
	require.Len(t, got, 2)
	last := got[len(got)-1]
	assert.EqualValues(t, 401, last["status"])
	assert.Contains(t, last["error"], "No token provided")
	assert.NotContains(t, last, "user_id")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, level("/health/ready", 200))
	assert.Equal(t, slog.LevelError, level("/health/ready", 503))
	assert.Equal(t, slog.LevelInfo, level("/api/cars", 201))
}
