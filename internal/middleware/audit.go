// audit.go provides Gin middleware that records authenticated write operations to the audit
// log, with optional shipping to external audit destinations.
package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/konshedo/planivo/internal/audit"
	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// AuditMiddleware logs authenticated actions to the database only (backward compatible)
func AuditMiddleware(auditRepo *repositories.AuditRepository) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(auditRepo, nil, nil)
}

// AuditMiddlewareWithShipper logs authenticated actions and ships to external destinations
func AuditMiddlewareWithShipper(auditRepo *repositories.AuditRepository, shipper audit.Shipper, auditCfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request first
		c.Next()

		// Skip OPTIONS always
		if c.Request.Method == "OPTIONS" {
			return
		}

		// Determine what to log based on config
		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		// Default behavior: only log successful write operations
		if auditCfg == nil {
			if isReadOp || isFailed {
				return
			}
		} else {
			// With config: check specific settings
			if isReadOp && !logReadOps {
				return
			}
			if isFailed && !logFailedReqs && isReadOp {
				// Skip failed read operations if not configured to log them
				return
			}
		}

		// Extract context
		userID, _ := c.Get("user_id")
		authMethod, _ := c.Get("auth_method")

		// Create audit log entry
		action := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
		ipAddress := c.ClientIP()

		auditLog := &models.AuditLog{
			Action:    action,
			IPAddress: &ipAddress,
			CreatedAt: time.Now(),
		}

		// Set user ID if present
		var userIDStr string
		if userID != nil {
			if uid, ok := userID.(string); ok {
				userIDStr = uid
				auditLog.UserID = &userIDStr
			}
		}

		// Set resource type based on URL path
		path := c.Request.URL.Path
		var resourceType string
		if strings.Contains(path, "/approvals") {
			resourceType = "approval_request"
			// Add specific workflow action details
			if strings.Contains(path, "/submit") {
				action = "approval.submitted"
			} else if strings.Contains(path, "/decisions") {
				action = "approval.decision"
			} else if strings.Contains(path, "/cancel") {
				action = "approval.cancelled"
			} else if c.Request.Method == "POST" {
				action = "approval.created"
			}
			auditLog.Action = action
		} else if strings.Contains(path, "/roles") {
			resourceType = "role_assignment"
		} else if strings.Contains(path, "/grants") {
			resourceType = "module_grant"
		} else if strings.Contains(path, "/modules") {
			resourceType = "module"
		} else if strings.Contains(path, "/users") {
			resourceType = "user"
		} else if strings.Contains(path, "/workspaces") {
			resourceType = "workspace"
		} else if strings.Contains(path, "/facilities") {
			resourceType = "facility"
		} else if strings.Contains(path, "/departments") {
			resourceType = "department"
		} else if strings.Contains(path, "/apikeys") {
			resourceType = "api_key"
		}
		if resourceType != "" {
			auditLog.ResourceType = &resourceType
		}

		// Extract metadata from context if available
		metadata := make(map[string]interface{})

		if authMethod != nil {
			metadata["auth_method"] = authMethod
		}
		metadata["status_code"] = c.Writer.Status()

		if len(metadata) > 0 {
			auditLog.Metadata = metadata
		}

		// Async log creation (non-blocking)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Write to database
			if auditRepo != nil {
				if err := auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
					fmt.Printf("Failed to create audit log in database: %v\n", err)
				}
			}

			// Ship to external destinations
			if shipper != nil {
				authMethodStr := ""
				if am, ok := authMethod.(string); ok {
					authMethodStr = am
				}

				entry := &audit.LogEntry{
					Timestamp:    auditLog.CreatedAt,
					Action:       auditLog.Action,
					UserID:       userIDStr,
					ResourceType: resourceType,
					IPAddress:    ipAddress,
					AuthMethod:   authMethodStr,
					StatusCode:   c.Writer.Status(),
					Metadata:     metadata,
				}

				if err := shipper.Ship(ctx, entry); err != nil {
					fmt.Printf("Failed to ship audit log: %v\n", err)
				}
			}
		}()
	}
}
