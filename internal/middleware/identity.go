package middleware

import "github.com/labstack/echo/v4"

// ownerKey is the echo.Context key JWTAuth stores the owner under.
const ownerKey = "owner"

// Owner returns the authenticated owner, or "" when JWTAuth did not run
// or rejected the request.
func Owner(c echo.Context) string {
	if s, ok := c.Get(ownerKey).(string); ok {
		return s
	}
	return ""
}

// rateIdentity is the owner for rate-limit keys, "guest" when anonymous.
func rateIdentity(c echo.Context) string {
	if o := Owner(c); o != "" {
		return o
	}
	return "guest"
}
