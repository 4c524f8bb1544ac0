// Package me implements the self-service HTTP handlers mounted under /api/v1/me:
// the caller's profile, their derived module capability matrix, the scopes they
// manage per role, and their in-app notifications. Everything here answers for
// the authenticated user only; administration of other users lives in the
// admin package.
package me

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/konshedo/planivo/internal/access"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// Handlers serves the /me route group.
type Handlers struct {
	svc       *access.Service
	resolver  *access.Resolver
	notifRepo *repositories.NotificationRepository
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *access.Service, resolver *access.Resolver, notifRepo *repositories.NotificationRepository) *Handlers {
	return &Handlers{
		svc:       svc,
		resolver:  resolver,
		notifRepo: notifRepo,
	}
}

// currentUserID pulls the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// @Summary      Current user profile
// @Description  Returns the authenticated user's profile together with every role assignment they hold.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user and role assignments"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me [get]
// ProfileHandler returns the caller's profile and role assignments.
// GET /api/v1/me
func (h *Handlers) ProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		userVal, _ := c.Get("user")
		user, _ := userVal.(*models.User)

		assignments, err := h.resolver.Assignments(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load role assignments",
			})
			return
		}

		authMethod, _ := c.Get("auth_method")

		c.JSON(http.StatusOK, gin.H{
			"user":        user,
			"roles":       assignments,
			"auth_method": authMethod,
		})
	}
}

// @Summary      Accessible dashboard modules
// @Description  Returns the caller's capability matrix: the union of module grants across every role they hold. Modules without any grant are absent from the response and therefore denied.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "modules with view/edit/delete/admin flags"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me/modules [get]
// ModulesHandler returns the caller's derived module capabilities.
// GET /api/v1/me/modules
func (h *Handlers) ModulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		matrix, err := h.svc.LoadAccess(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load module access",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"modules": matrix.Modules(),
		})
	}
}

// parseRole validates the ?role= query parameter.
func parseRole(c *gin.Context) (models.RoleKind, bool) {
	role := models.RoleKind(c.Query("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown role: " + c.Query("role"),
		})
		return "", false
	}
	return role, true
}

// @Summary      Primary managed scope for a role
// @Description  Resolves the single org unit the caller manages as the given role. When several assignments exist the oldest wins; use /me/scopes for the full list.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Param        role  query  string  true  "Role kind (e.g. department_head)"
// @Success      200  {object}  map[string]interface{}  "scope: {type, id}"
// @Failure      400  {object}  map[string]interface{}  "Unknown role"
// @Failure      404  {object}  map[string]interface{}  "No assignment for this role"
// @Failure      500  {object}  map[string]interface{}  "Assignment exists but its scope pointer is missing"
// @Router       /api/v1/me/scope [get]
// ScopeHandler resolves the caller's primary scope for a role.
// GET /api/v1/me/scope?role=
func (h *Handlers) ScopeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		role, ok := parseRole(c)
		if !ok {
			return
		}

		scope, err := h.resolver.ResolveScope(c.Request.Context(), userID, role)
		if err != nil {
			var sre *access.ScopeResolutionError
			switch {
			case errors.Is(err, access.ErrNoAssignment):
				c.JSON(http.StatusNotFound, gin.H{
					"error": "No assignment for role " + string(role),
				})
			case errors.As(err, &sre):
				// Data integrity problem, not a client error.
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Role assignment is missing its scope pointer",
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to resolve scope",
				})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"scope": scope,
		})
	}
}

// @Summary      All managed scopes for a role
// @Description  Resolves every org unit the caller manages as the given role, ordered by assignment age.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Param        role  query  string  true  "Role kind (e.g. facility_supervisor)"
// @Success      200  {object}  map[string]interface{}  "scopes: [{type, id}]"
// @Failure      400  {object}  map[string]interface{}  "Unknown role"
// @Failure      404  {object}  map[string]interface{}  "No assignment for this role"
// @Router       /api/v1/me/scopes [get]
// ScopesHandler resolves every scope the caller manages as a role.
// GET /api/v1/me/scopes?role=
func (h *Handlers) ScopesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		role, ok := parseRole(c)
		if !ok {
			return
		}

		scopes, err := h.resolver.ResolveScopes(c.Request.Context(), userID, role)
		if err != nil {
			if errors.Is(err, access.ErrNoAssignment) {
				c.JSON(http.StatusNotFound, gin.H{
					"error": "No assignment for role " + string(role),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to resolve scopes",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"scopes": scopes,
		})
	}
}

// @Summary      List notifications
// @Description  Lists the caller's in-app notifications, newest first, with the unread count. ?unread=true restricts to unread notifications.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Param        unread    query  bool  false  "Only unread notifications"
// @Param        page      query  int   false  "Page number (default 1)"
// @Param        per_page  query  int   false  "Page size (default 20, max 100)"
// @Success      200  {object}  map[string]interface{}  "notifications, unread_count, page, per_page"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me/notifications [get]
// NotificationsHandler lists the caller's notifications.
// GET /api/v1/me/notifications
func (h *Handlers) NotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		unreadOnly := c.Query("unread") == "true"

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}
		offset := (page - 1) * perPage

		notifications, err := h.notifRepo.ListByUser(c.Request.Context(), userID, unreadOnly, perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list notifications",
			})
			return
		}

		unread, err := h.notifRepo.CountUnread(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to count unread notifications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"notifications": notifications,
			"unread_count":  unread,
			"page":          page,
			"per_page":      perPage,
		})
	}
}

// @Summary      Mark a notification read
// @Description  Marks one of the caller's notifications as read. Marking an already-read notification is a no-op.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Notification ID"
// @Success      200  {object}  map[string]interface{}  "marked read"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me/notifications/{id}/read [post]
// MarkNotificationReadHandler marks one notification as read.
// POST /api/v1/me/notifications/:id/read
func (h *Handlers) MarkNotificationReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		// Scoped to the caller's own rows; a foreign id silently matches nothing.
		if err := h.notifRepo.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to mark notification read",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Notification marked read",
		})
	}
}

// @Summary      Mark all notifications read
// @Description  Marks every unread notification belonging to the caller as read and returns how many were updated.
// @Tags         Me
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "updated count"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me/notifications/read-all [post]
// MarkAllNotificationsReadHandler marks every unread notification as read.
// POST /api/v1/me/notifications/read-all
func (h *Handlers) MarkAllNotificationsReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		updated, err := h.notifRepo.MarkAllRead(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to mark notifications read",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"updated": updated,
		})
	}
}
