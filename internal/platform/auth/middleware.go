package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// bearerToken reads the Authorization header. WebSocket upgrades may pass
// the token as the access_token query parameter instead, since browsers
// cannot set headers on them.
func bearerToken(c echo.Context) (string, bool, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if isWebSocketUpgrade(c.Request()) {
			if tok := c.QueryParam("access_token"); tok != "" {
				return tok, true, nil
			}
		}
		return "", false, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", true, echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return parts[1], true, nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func setIdentity(c echo.Context, id Identity) {
	c.Set("user_id", id.UserID)
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
}

// JWTMiddleware requires a valid bearer token on every request not matched
// by skip.
func JWTMiddleware(issuer *TokenIssuer, skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}
			tokenStr, present, err := bearerToken(c)
			if err != nil {
				return err
			}
			if !present {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			id, err := issuer.Parse(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development: requests
// without an Authorization header act as fallback. A presented token is
// still verified.
func DevAuthMiddleware(issuer *TokenIssuer, fallback Identity) echo.MiddlewareFunc {
	strict := JWTMiddleware(issuer, nil)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := strict(next)
		return func(c echo.Context) error {
			if _, present, _ := bearerToken(c); present {
				return verified(c)
			}
			setIdentity(c, fallback)
			return next(c)
		}
	}
}

// SkipPublic skips authentication for health, metrics and login routes.
func SkipPublic(c echo.Context) bool {
	switch c.Path() {
	case "/health", "/metrics", "/api/v1/auth/login":
		return true
	}
	return false
}
