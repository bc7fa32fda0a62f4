package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-vault/internal/logger"
)

// HeaderCorrelationID carries the correlation id in and out of the API.
const HeaderCorrelationID = "X-Correlation-Id"

// RequestLogger tags each request with a correlation id (the incoming
// header, or a new UUID), echoes it back, and logs method, path, status
// and duration when the handler returns.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(HeaderCorrelationID)
			if id == "" {
				id = uuid.NewString()
			}
			ctx := logger.WithCorrelationID(req.Context(), id)
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(HeaderCorrelationID, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Entry(ctx).WithFields(map[string]interface{}{
				"method":      req.Method,
				"path":        c.Path(),
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"owner":       Owner(c),
			}).Info("request")
			return nil
		}
	}
}
