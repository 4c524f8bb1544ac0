// Package middleware (access.go) implements module-capability authorization.
//
// Capabilities (view/edit/delete/admin per module) are resolved at request
// time from the user's role assignments rather than being embedded in the
// JWT. This is a deliberate design choice: when a role's module grants are
// updated, the change takes effect on the user's next request after cache
// invalidation without needing to reissue their token. Embedding capabilities
// in the JWT would require token rotation on every grant change, which is
// operationally expensive and error-prone.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/konshedo/planivo/internal/access"
)

// Capability names one of the four per-module capability flags.
type Capability string

const (
	CapabilityView   Capability = "view"
	CapabilityEdit   Capability = "edit"
	CapabilityDelete Capability = "delete"
	CapabilityAdmin  Capability = "admin"
)

// RequireAdmin checks that the authenticated user holds the admin capability
// on at least one module. Org structure, users, and role assignments are not
// owned by a single module, so the administrative surface is open to anyone
// the grant matrix marks as an administrator anywhere.
func RequireAdmin(svc *access.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		matrix, err := svc.LoadAccess(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to resolve module access",
			})
			return
		}

		for _, m := range matrix.Modules() {
			if m.CanAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Administrator access required",
		})
	}
}

// RequireModule checks that the authenticated user holds the given capability
// on the named module. The matrix is loaded (or served from cache) per user;
// unknown modules, unknown capabilities, and unloaded users all deny.
func RequireModule(svc *access.Service, moduleKey string, capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		matrix, err := svc.LoadAccess(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to resolve module access",
			})
			return
		}

		var allowed bool
		switch capability {
		case CapabilityView:
			allowed = matrix.HasAccess(moduleKey)
		case CapabilityEdit:
			allowed = matrix.CanEdit(moduleKey)
		case CapabilityDelete:
			allowed = matrix.CanDelete(moduleKey)
		case CapabilityAdmin:
			allowed = matrix.CanAdmin(moduleKey)
		default:
			allowed = false
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "Missing module capability",
				"module":     moduleKey,
				"capability": string(capability),
			})
			return
		}

		c.Next()
	}
}
