package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer owner token
// and stores its subject under ownerKey.  The secret must match the one
// used by NewAccessToken.  Handlers read the owner with Owner(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			owner, err := utils.ParseOwner(secret, raw)
			if err != nil {
				logger.Debugf(c.Request().Context(), "rejected token from %s: %v", c.RealIP(), err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ownerKey, owner)
			return next(c)
		}
	}
}
