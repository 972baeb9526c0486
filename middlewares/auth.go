package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextParentID = "parent_id"
	ContextDeviceID = "device_id"

	DeviceHeader = "X-Device-ID"
)

// BearerResolver maps a bearer token to a parent id.
type BearerResolver interface {
	ResolveBearer(ctx context.Context, token string) (string, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
}

// AuthMiddleware requires a parent bearer token and stores the parent id in the context.
func AuthMiddleware(resolver BearerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "unauthorized")
			return
		}

		parentID, err := resolver.ResolveBearer(c.Request.Context(), tokenString)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextParentID, parentID)
		c.Next()
	}
}

// DeviceMiddleware requires the X-Device-ID header. Whether that device may act
// for a child is decided later by the session check.
func DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(DeviceHeader))
		if deviceID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": DeviceHeader + " header is required", "code": "invalid_input"})
			return
		}
		c.Set(ContextDeviceID, deviceID)
		c.Next()
	}
}

// ParentOrDevice accepts either a parent bearer token or a device header.
// A bearer token that is present but invalid is rejected, never downgraded.
func ParentOrDevice(resolver BearerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			parentID, err := resolver.ResolveBearer(c.Request.Context(), tokenString)
			if err != nil {
				abortUnauthorized(c, "invalid token")
				return
			}
			c.Set(ContextParentID, parentID)
			c.Next()
			return
		}

		if deviceID := strings.TrimSpace(c.GetHeader(DeviceHeader)); deviceID != "" {
			c.Set(ContextDeviceID, deviceID)
			c.Next()
			return
		}
		abortUnauthorized(c, "unauthorized")
	}
}
