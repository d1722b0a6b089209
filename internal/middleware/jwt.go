package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/pkg/errcode"
	"github.com/strata-kb/strata/internal/pkg/jwt"
	"github.com/strata-kb/strata/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextOrgIDKey  = "org_id"
	ContextRoleKey   = "role"

	RoleManager = "manager"
)

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		if claims.OrgID == "" {
			response.Error(c, errcode.ErrUnauthorized, "token missing organization")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextOrgIDKey, claims.OrgID)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole gates an endpoint to callers carrying the given role claim.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(ContextRoleKey)
		current, _ := value.(string)
		if !strings.EqualFold(current, role) {
			response.Error(c, errcode.ErrForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}
