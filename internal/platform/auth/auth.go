// Package auth guards the API with HS256 bearer tokens. The snapshots
// behind this server are patient-level data; even a single-clinic
// deployment does not run open.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims is the validated token payload stored on the request context
// under "user".
type Claims struct {
	Subject string
	Role    string
}

// JWTMiddleware validates Authorization: Bearer tokens signed with the
// shared secret.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(raw, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			claims := Claims{}
			if mc, ok := token.Claims.(jwt.MapClaims); ok {
				claims.Subject, _ = mc["sub"].(string)
				claims.Role, _ = mc["role"].(string)
			}
			c.Set("user", claims)
			return next(c)
		}
	}
}

// DevAuthMiddleware grants every request an admin identity. Development
// only; config.Load refuses to start production without a secret.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user", Claims{Subject: "dev", Role: "admin"})
			return next(c)
		}
	}
}
