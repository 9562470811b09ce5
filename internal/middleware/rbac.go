package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

// PermissionResolver returns the permission set granted to a role.
type PermissionResolver interface {
	PermissionsFor(ctx context.Context, role models.UserRole) (models.PermissionSet, error)
}

// RBAC enforces role-based access control for routes. "SELF" admits the
// caller when the :id route param is their own user id.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{})
	for _, a := range allowed {
		if a == "SELF" {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// RequirePermission admits callers whose role grants module:action.
func RequirePermission(resolver PermissionResolver, module models.PermissionModule, action models.PermissionAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		perms, err := resolver.PermissionsFor(c.Request.Context(), claims.Role)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !perms.Has(module, action) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+models.PermissionKey(module, action)))
			c.Abort()
			return
		}
		c.Next()
	}
}
