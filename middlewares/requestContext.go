package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/freshfork/supply_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware reads the caller identity from request headers set by
// the API gateway and attaches it to the request context. Requests without
// an identity are rejected before they reach any handler.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIdHeader := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userIdHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		userId, err := strconv.Atoi(userIdHeader)
		if err != nil || userId <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
			return
		}

		ctx := utils.SetUserIdInContext(c.Request.Context(), userId)
		if name := strings.TrimSpace(c.GetHeader("X-User-Name")); name != "" {
			ctx = utils.SetUserNameInContext(ctx, name)
		}
		isStaff := strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Is-Staff")), "true")
		ctx = utils.SetIsStaffInContext(ctx, isStaff)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireStaff guards fulfilment and catalog-management routes.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isStaff, _ := utils.GetIsStaffFromContext(c.Request.Context()); !isStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff access required"})
			return
		}
		c.Next()
	}
}
