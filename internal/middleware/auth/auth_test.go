package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/tokens"
)

var secret = []byte("test-jwt-secret")

func token(t *testing.T, id uuid.UUID, admin bool) string {
	t.Helper()
	tok, _, err := tokens.CreateAccessToken(id, admin, time.Hour, secret)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *service.Principal, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *service.Principal
	err := mw(func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		require.True(t, ok)
		got = &p
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, err
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func TestRequireAuth_Bearer(t *testing.T) {
	m := NewAuthMiddleware(secret)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, id, false))

	rec, p, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p)
	assert.Equal(t, service.Principal{UserID: id}, *p)
}

func TestRequireAuth_Cookie(t *testing.T) {
	m := NewAuthMiddleware(secret)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token(t, id, true)})

	_, p, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsAdmin)
}

func TestRequireAuth_Rejects(t *testing.T) {
	m := NewAuthMiddleware(secret)
	other, _, err := tokens.CreateAccessToken(uuid.New(), true, time.Hour, []byte("other"))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": "Bearer " + other,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set(echo.HeaderAuthorization, header)
			}
			_, p, err := run(t, m.RequireAuth, req)
			assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
			assert.Nil(t, p)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	m := NewAuthMiddleware(secret)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, uuid.New(), false))
	_, p, err := run(t, m.RequireAdmin, req)
	assert.Equal(t, http.StatusForbidden, httpStatus(t, err))
	assert.Nil(t, p)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, uuid.New(), true))
	_, p, err = run(t, m.RequireAdmin, req)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
}

func TestAdminOnly(t *testing.T) {
	m := NewAuthMiddleware(secret)
	mw := m.AdminOnly("Access denied. Only administrators can create cars.")

	_, _, err := run(t, mw, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, uuid.New(), false))
	_, p, err := run(t, mw, req)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)
	assert.Equal(t, "Access denied. Only administrators can create cars.", he.Message)
	assert.Nil(t, p)

	id := uuid.New()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, id, true))
	_, p, err = run(t, mw, req)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, id, p.UserID)
}

func TestValidUUIDParam(t *testing.T) {
	e := echo.New()
	mw := ValidUUIDParam("id", "Invalid ID format")
	next := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("123")
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, mw(next)(c)))

	rec := httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	require.NoError(t, mw(next)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
