package middleware

import (
	"net/http"

	"github.com/D-Tasker207/gazpacho-backend/pkg/response"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

// ContextKeyUserID is the gin context key holding the authenticated user id (int64)
const ContextKeyUserID = "user_id"

// BearerResolver resolves an Authorization header value to a principal
type BearerResolver interface {
	ResolveBearer(header string) (*token.Principal, bool)
}

// Auth requires a valid "Bearer <access token>" header and stores the
// subject under ContextKeyUserID. Anything else is rejected with 401.
func Auth(resolver BearerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := resolver.ResolveBearer(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid or missing access token"))
			return
		}
		c.Set(ContextKeyUserID, principal.UserID)
		c.Next()
	}
}

// GetUserID returns the authenticated user id set by Auth
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
