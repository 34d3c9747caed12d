package httpapi

import (
	"github.com/labstack/echo/v4"

	"routectl.dev/internal/correlation"
)

// CorrelationIDHeader is the boundary header: inbound optional, outbound
// mirrored (spec §6).
const CorrelationIDHeader = "Correlation-Id"

// correlationMiddleware binds the inbound Correlation-Id (generating one if
// absent) onto the request context and mirrors it on the response.
func (s *Server) correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(CorrelationIDHeader)
		ctx := c.Request().Context()
		if id == "" {
			id = correlation.NewID()
		}
		ctx = correlation.Bind(ctx, id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(CorrelationIDHeader, id)
		return next(c)
	}
}
