package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/shinmj/reservecheck/internal/domain"
)

const principalKey = "principal"

// Identity returns a middleware that resolves the acting principal from
// a Bearer token and stores it in the request context. A missing header
// yields the anonymous principal; every downstream authorization check
// then fails closed. A malformed or badly signed token is rejected
// outright.
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				c.Set(principalKey, domain.Anonymous())
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set(principalKey, principalFromClaims(claims))
			return next(c)
		}
	}
}

// principalFromClaims builds a Principal from the token's subject and
// role claims. Both a single "role" string and a "roles" array are
// accepted.
func principalFromClaims(claims jwt.MapClaims) domain.Principal {
	p := domain.Principal{Authenticated: true}

	if sub, ok := claims["sub"].(string); ok {
		p.ID = sub
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		p.Roles = append(p.Roles, role)
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p
}

// CurrentPrincipal returns the principal stored by the Identity
// middleware, or the anonymous principal when absent.
func CurrentPrincipal(c echo.Context) domain.Principal {
	if p, ok := c.Get(principalKey).(domain.Principal); ok {
		return p
	}
	return domain.Anonymous()
}
