package http

import "github.com/labstack/echo/v4"

// Handler mounts its routes on the server. NewServer calls RegisterRoutes
// once per handler, in order.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
