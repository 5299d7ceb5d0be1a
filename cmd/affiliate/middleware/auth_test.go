package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/finvault/affiliate/common/apperr"
)

func runRequireUID(t *testing.T, header string) (int64, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-User-ID", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var uid int64
	handler := RequireUID()(func(c echo.Context) error {
		uid = GetUID(c)
		return nil
	})
	return uid, handler(c)
}

func TestRequireUID(t *testing.T) {
	uid, err := runRequireUID(t, "42")
	require.NoError(t, err)
	require.Equal(t, int64(42), uid)
}

func TestRequireUID_Missing(t *testing.T) {
	_, err := runRequireUID(t, "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRequireUID_NotANumber(t *testing.T) {
	_, err := runRequireUID(t, "alice")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRequireUID_NonPositive(t *testing.T) {
	for _, raw := range []string{"0", "-3"} {
		_, err := runRequireUID(t, raw)
		require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err), "header %q", raw)
	}
}

func TestGetUID_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.Zero(t, GetUID(c))
}
