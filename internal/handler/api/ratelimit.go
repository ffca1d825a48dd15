package api

import (
	"CryptoEdge/internal/service/ratelimit"
	xhttp "CryptoEdge/pkg/http"

	"github.com/labstack/echo/v4"
)

// RateLimit rejects callers whose token bucket is empty with 429.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many refresh requests, slow down"))
			}
			return next(c)
		}
	}
}
