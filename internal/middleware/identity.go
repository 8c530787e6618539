package middleware

// identity.go holds helpers that read the authenticated user from the Echo
// context populated by JWTAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id.  The second result is false
// when the request did not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the role claim of the authenticated user.
func Role(c echo.Context) (string, bool) {
	role, ok := c.Get(ctxRole).(string)
	return role, ok && role != ""
}

// parseSubject accepts the sub claim either as a decimal string (what
// utils.NewAccessToken issues) or as a JSON number.
func parseSubject(v any) (uint64, bool) {
	switch s := v.(type) {
	case string:
		id, err := strconv.ParseUint(s, 10, 64)
		return id, err == nil && id != 0
	case float64:
		if s <= 0 || s != float64(uint64(s)) {
			return 0, false
		}
		return uint64(s), true
	}
	return 0, false
}
