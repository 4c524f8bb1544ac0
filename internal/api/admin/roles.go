// roles.go implements role assignment management. Assigning or revoking a
// role changes what the user may see everywhere, so both the capability
// matrix cache and the scope resolver cache are invalidated on every write.
// Other instances pick the change up through the Postgres NOTIFY bridge.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/access"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
	"github.com/konshedo/planivo/internal/validation"
)

// RoleHandlers handles role assignment endpoints.
type RoleHandlers struct {
	roleRepo *repositories.RoleRepository
	userRepo *repositories.UserRepository
	orgRepo  *repositories.OrgRepository
	svc      *access.Service
	resolver *access.Resolver
}

// NewRoleHandlers creates a new RoleHandlers instance.
func NewRoleHandlers(db *sqlx.DB, svc *access.Service, resolver *access.Resolver) *RoleHandlers {
	return &RoleHandlers{
		roleRepo: repositories.NewRoleRepository(db),
		userRepo: repositories.NewUserRepository(db),
		orgRepo:  repositories.NewOrgRepository(db),
		svc:      svc,
		resolver: resolver,
	}
}

// AssignRoleRequest is the body for POST /admin/users/:id/roles. Exactly one
// scope pointer must be set for scoped roles; none for global roles.
type AssignRoleRequest struct {
	Role         string  `json:"role" binding:"required"`
	WorkspaceID  *string `json:"workspace_id"`
	FacilityID   *string `json:"facility_id"`
	DepartmentID *string `json:"department_id"`
}

// invalidate drops the user's cached matrix and assignments after a write.
func (h *RoleHandlers) invalidate(userID string) {
	h.svc.Invalidate(userID)
	h.resolver.Invalidate(userID)
}

// scopeExists verifies that the authoritative scope pointer targets a real
// org unit. Global roles have no pointer and always pass.
func (h *RoleHandlers) scopeExists(c *gin.Context, role models.RoleKind, req *AssignRoleRequest) (bool, error) {
	level, ok := role.ScopeLevel()
	if !ok {
		return true, nil
	}
	switch level {
	case models.ScopeWorkspace:
		w, err := h.orgRepo.GetWorkspace(c.Request.Context(), *req.WorkspaceID)
		return w != nil, err
	case models.ScopeFacility:
		f, err := h.orgRepo.GetFacility(c.Request.Context(), *req.FacilityID)
		return f != nil, err
	case models.ScopeDepartment:
		d, err := h.orgRepo.GetDepartment(c.Request.Context(), *req.DepartmentID)
		return d != nil, err
	}
	return false, nil
}

// @Summary      List role assignments
// @Tags         Roles
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "roles"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/admin/users/{id}/roles [get]
// ListRolesHandler lists a user's role assignments.
// GET /api/v1/admin/users/:id/roles
func (h *RoleHandlers) ListRolesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		user, err := h.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		assignments, err := h.roleRepo.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list role assignments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roles": assignments})
	}
}

// @Summary      Assign role
// @Description  Assigns a role to a user at a point in the org hierarchy. Scoped roles require the scope pointer matching the role's level; global roles reject any scope pointer.
// @Tags         Roles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "User ID"
// @Param        body  body  AssignRoleRequest  true  "Role and scope pointer"
// @Success      201  {object}  map[string]interface{}  "Created assignment"
// @Failure      400  {object}  map[string]interface{}  "Role/scope mismatch"
// @Failure      404  {object}  map[string]interface{}  "User or org unit not found"
// @Router       /api/v1/admin/users/{id}/roles [post]
// AssignRoleHandler assigns a role to a user.
// POST /api/v1/admin/users/:id/roles
func (h *RoleHandlers) AssignRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		var req AssignRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		role := models.RoleKind(req.Role)
		if err := validation.ValidateRoleScope(role, req.WorkspaceID, req.FacilityID, req.DepartmentID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		exists, err := h.scopeExists(c, role, &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify scope"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "Org unit not found"})
			return
		}

		assignment := &models.RoleAssignment{
			UserID:       userID,
			Role:         role,
			WorkspaceID:  req.WorkspaceID,
			FacilityID:   req.FacilityID,
			DepartmentID: req.DepartmentID,
		}
		if err := h.roleRepo.Create(c.Request.Context(), assignment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create role assignment"})
			return
		}

		h.invalidate(userID)
		c.JSON(http.StatusCreated, gin.H{"role": assignment})
	}
}

// @Summary      Revoke role
// @Tags         Roles
// @Security     Bearer
// @Produce      json
// @Param        id       path  string  true  "User ID"
// @Param        role_id  path  string  true  "Role assignment ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      404  {object}  map[string]interface{}  "Assignment not found"
// @Router       /api/v1/admin/users/{id}/roles/{role_id} [delete]
// RevokeRoleHandler removes a role assignment from a user.
// DELETE /api/v1/admin/users/:id/roles/:role_id
func (h *RoleHandlers) RevokeRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		assignment, err := h.roleRepo.GetByID(c.Request.Context(), c.Param("role_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve role assignment"})
			return
		}
		if assignment == nil || assignment.UserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Role assignment not found"})
			return
		}

		if err := h.roleRepo.Delete(c.Request.Context(), assignment.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete role assignment"})
			return
		}

		h.invalidate(userID)
		c.JSON(http.StatusOK, gin.H{"message": "Role assignment deleted"})
	}
}
