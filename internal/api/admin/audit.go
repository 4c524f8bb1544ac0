// audit.go exposes the audit trail written by the audit middleware. Read-only:
// entries are never edited or deleted through the API.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// AuditHandlers handles audit log listing endpoints.
type AuditHandlers struct {
	auditRepo *repositories.AuditRepository
}

// NewAuditHandlers creates a new AuditHandlers instance.
func NewAuditHandlers(db *sqlx.DB) *AuditHandlers {
	return &AuditHandlers{
		auditRepo: repositories.NewAuditRepository(db),
	}
}

// @Summary      List audit logs
// @Description  Lists audit entries newest first, filterable by user, action, resource type, and date range.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        user_id        query  string  false  "Filter by acting user"
// @Param        action         query  string  false  "Filter by action (e.g. approval.decision)"
// @Param        resource_type  query  string  false  "Filter by resource type (e.g. approval_request)"
// @Param        start_date     query  string  false  "RFC3339 lower bound"
// @Param        end_date       query  string  false  "RFC3339 upper bound"
// @Param        page           query  int     false  "Page number (default 1)"
// @Param        per_page       query  int     false  "Page size (default 50, max 200)"
// @Success      200  {object}  map[string]interface{}  "logs, total, page, per_page"
// @Failure      400  {object}  map[string]interface{}  "Invalid date filter"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit-logs [get]
// ListAuditLogsHandler lists audit entries with filters.
// GET /api/v1/admin/audit-logs
func (h *AuditHandlers) ListAuditLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
		if perPage < 1 || perPage > 200 {
			perPage = 50
		}
		offset := (page - 1) * perPage

		var filters repositories.AuditFilters
		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("resource_type"); v != "" {
			filters.ResourceType = &v
		}
		if v := c.Query("start_date"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date, use RFC3339"})
				return
			}
			filters.StartDate = &t
		}
		if v := c.Query("end_date"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date, use RFC3339"})
				return
			}
			filters.EndDate = &t
		}

		logs, total, err := h.auditRepo.ListAuditLogs(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit logs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"logs":     logs,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		})
	}
}

// @Summary      Get audit log
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Audit log ID"
// @Success      200  {object}  map[string]interface{}  "Audit entry"
// @Failure      404  {object}  map[string]interface{}  "Audit log not found"
// @Router       /api/v1/admin/audit-logs/{id} [get]
// GetAuditLogHandler retrieves one audit entry.
// GET /api/v1/admin/audit-logs/:id
func (h *AuditHandlers) GetAuditLogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := h.auditRepo.GetAuditLog(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit log"})
			return
		}
		if entry == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Audit log not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"log": entry})
	}
}
