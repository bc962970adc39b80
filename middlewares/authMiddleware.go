package middlewares

import (
	"net/http"
	"strings"

	fbAuth "firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/crm_backend/appctx"
)

// RequireAuth validates a Firebase ID token (Bearer) and resolves the
// tenant identity into the request context. The tenant is the token's
// uid unless a tenant_id custom claim is present; all document paths
// are scoped under it, so no cross-tenant reads or writes can occur.
func RequireAuth(client *fbAuth.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "firebase auth not configured"})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		idToken := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := client.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		tenantId := token.UID
		if v, ok := token.Claims["tenant_id"].(string); ok && v != "" {
			tenantId = v
		}
		userName, _ := token.Claims["name"].(string)

		ctx := c.Request.Context()
		ctx = appctx.Set(ctx, appctx.ContextKeyTenantId, tenantId)
		ctx = appctx.Set(ctx, appctx.ContextKeyUserId, token.UID)
		ctx = appctx.Set(ctx, appctx.ContextKeyUserName, userName)
		ctx = appctx.Set(ctx, appctx.ContextKeyCorrelationId, uuid.NewString())
		c.Request = c.Request.WithContext(ctx)

		c.Set("tenant_id", tenantId)
		c.Set("user_id", token.UID)
		c.Next()
	}
}
