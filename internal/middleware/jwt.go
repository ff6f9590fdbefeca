package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/utils"
)

// Context keys set by JWTAuth.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects the user id and username into the request context.  A
// request without a bearer token is rejected with 401; a token that fails
// verification is rejected with 403.
func JWTAuth(tokens *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid token"})
			}
			c.Set(UserIDKey, claims.UserID)
			c.Set(UsernameKey, claims.Username)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.  The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
