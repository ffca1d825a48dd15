package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"CryptoEdge/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(logger.Nop()))
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		method  string
		want    string
		code    int
	}{
		{"any origin", nil, "http://ui.local", http.MethodGet, "http://ui.local", http.StatusOK},
		{"listed origin", []string{"http://ui.local"}, "http://ui.local", http.MethodGet, "http://ui.local", http.StatusOK},
		{"unlisted origin", []string{"http://ui.local"}, "http://evil.local", http.MethodGet, "", http.StatusOK},
		{"preflight", nil, "http://ui.local", http.MethodOptions, "http://ui.local", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(CORS(CORSConfig{AllowOrigins: tt.origins, AllowMethods: []string{http.MethodGet}}))
			e.Any("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set(echo.HeaderOrigin, tt.origin)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		})
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(503))
}
