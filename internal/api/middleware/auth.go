// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any `gin.HandlerFunc`. Each one runs, optionally
// calls c.Next() to pass control down the chain and can call c.Abort() to
// stop it. The router installs Recovery → RequestID → Logger on every
// request and MockAuth on the /deliveries group.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fitmatch/internal/domain/entities"
	"fitmatch/pkg/httputil"
)

// Context keys for request-scoped values set with c.Set.
const (
	RequestIDKey = httputil.RequestIDKey
	UserIDKey    = "user_id"
	UserRoleKey  = "user_role"

	BearerPrefix = "Bearer "
)

// MockAuth extracts the caller from the Authorization header.
// Format: "Bearer <user-id>" where user-id starts with "customer-" or
// "courier-". Any other token is rejected with 401.
//
// This is a stand-in for real token validation; the handlers only depend on
// the actor it stores, so swapping it for JWT verification touches nothing
// else.
func MockAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.ErrorWithCode(c, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			httputil.ErrorWithCode(c, http.StatusUnauthorized, "unauthorized", "invalid authorization format")
			c.Abort()
			return
		}

		userID := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		var role entities.Role

		switch {
		case strings.HasPrefix(userID, "customer-"):
			role = entities.RoleCustomer
		case strings.HasPrefix(userID, "courier-"):
			role = entities.RoleCourier
		default:
			httputil.ErrorWithCode(c, http.StatusUnauthorized, "unauthorized", "invalid user id format")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UserRoleKey, role)
		c.Next()
	}
}

// RequireCustomer ensures the authenticated user is a customer. Must be used
// after MockAuth() in the chain.
func RequireCustomer() gin.HandlerFunc {
	return requireRole(entities.RoleCustomer, "customer access required")
}

// RequireCourier ensures the authenticated user is a courier.
func RequireCourier() gin.HandlerFunc {
	return requireRole(entities.RoleCourier, "courier access required")
}

func requireRole(role entities.Role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetActor(c).Role != role {
			httputil.ErrorWithCode(c, http.StatusForbidden, "forbidden", message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetActor returns the caller stored by MockAuth. Outside an authenticated
// route it returns the zero Actor.
//
// Go Learning Note — Type Assertion:
// c.Get() returns (any, bool). The two-value form `v, ok := x.(T)` yields
// the zero value instead of panicking when the key is missing or holds
// another type.
func GetActor(c *gin.Context) entities.Actor {
	id := c.GetString(UserIDKey)
	v, _ := c.Get(UserRoleKey)
	role, _ := v.(entities.Role)
	return entities.Actor{ID: id, Role: role}
}
