package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
	jsonres "github.com/kyle-eros/eros-scheduling-sub002/pkg/response"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/utils"

	"github.com/labstack/echo/v4"
)

// TokenValidator checks a bearer token against the Redis session store.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// AuthMiddleware is plain JWT authentication without Redis.
func AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Missing authorization header", nil,
				))
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid authorization format", nil,
				))
			}

			tokenString := tokenParts[1]

			claims, err := utils.ParseJWT(tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			expAt, err := claims.GetExpirationTime()
			if err != nil {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Status Forbidden", nil,
				))
			}

			if time.Now().After(expAt.Time) {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Status Forbidden", nil,
				))
			}

			c.Set("caller_id", claims.CallerID)
			c.Set("role", claims.Role)
			c.Set("token", tokenString)

			return next(c)
		}
	}
}

// AuthMiddlewareWithRedis validates the JWT and then checks the token is
// still live in Redis, so revoked service tokens die immediately.
func AuthMiddlewareWithRedis(tokenValidator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Missing authorization header", nil,
				))
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid authorization format", nil,
				))
			}

			tokenString := tokenParts[1]

			claims, err := utils.ParseJWT(tokenString)
			if err != nil {
				logger.Error("Failed to parse JWT", err)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			expAt, err := claims.GetExpirationTime()
			if err != nil {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Status Forbidden", nil,
				))
			}

			if time.Now().After(expAt.Time) {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Token expired", nil,
				))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			callerID, err := tokenValidator.ValidateToken(ctx, tokenString)
			if err != nil {
				logger.Error("Token not found in Redis", err)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Token expired or invalid", nil,
				))
			}

			if callerID != claims.CallerID {
				logger.Error("CallerID mismatch between JWT and Redis")
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			c.Set("caller_id", claims.CallerID)
			c.Set("role", claims.Role)
			c.Set("token", tokenString)

			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := c.Get("role")
			roleStr, ok := role.(string)
			if !ok || strings.ToUpper(roleStr) != "ADMIN" {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Admin access required", nil,
				))
			}

			return next(c)
		}
	}
}
