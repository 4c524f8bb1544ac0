// Package admin implements the administrative HTTP handlers for Planivo.
// Every route here sits behind authentication plus a RequireModule admin
// capability check (see internal/middleware/access.go) — unlike the /me and
// /approvals groups, which any authenticated user may reach.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// OrgHandlers handles workspace/facility/department management endpoints.
type OrgHandlers struct {
	orgRepo *repositories.OrgRepository
}

// NewOrgHandlers creates a new OrgHandlers instance.
func NewOrgHandlers(db *sqlx.DB) *OrgHandlers {
	return &OrgHandlers{
		orgRepo: repositories.NewOrgRepository(db),
	}
}

// OrgUnitRequest is the shared create/update body for org units.
// MinCoverage 0 means "inherit the configured default".
type OrgUnitRequest struct {
	Name        string `json:"name" binding:"required"`
	MinCoverage int    `json:"min_coverage"`
	// Parent pointers; which one applies depends on the unit level.
	WorkspaceID string `json:"workspace_id"`
	FacilityID  string `json:"facility_id"`
}

// ----------------------------------------------------------------------------
// Workspaces
// ----------------------------------------------------------------------------

// @Summary      List workspaces
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "workspaces"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/workspaces [get]
// ListWorkspacesHandler lists all workspaces.
// GET /api/v1/admin/workspaces
func (h *OrgHandlers) ListWorkspacesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaces, err := h.orgRepo.ListWorkspaces(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list workspaces"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
	}
}

// @Summary      Create workspace
// @Tags         Org
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  OrgUnitRequest  true  "Workspace name and optional min coverage"
// @Success      201  {object}  map[string]interface{}  "Created workspace"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/workspaces [post]
// CreateWorkspaceHandler creates a workspace.
// POST /api/v1/admin/workspaces
func (h *OrgHandlers) CreateWorkspaceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrgUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.MinCoverage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_coverage cannot be negative"})
			return
		}

		w := &models.Workspace{Name: req.Name, MinCoverage: req.MinCoverage}
		if err := h.orgRepo.CreateWorkspace(c.Request.Context(), w); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create workspace"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"workspace": w})
	}
}

// @Summary      Get workspace
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Workspace ID"
// @Success      200  {object}  map[string]interface{}  "Workspace"
// @Failure      404  {object}  map[string]interface{}  "Workspace not found"
// @Router       /api/v1/admin/workspaces/{id} [get]
// GetWorkspaceHandler retrieves one workspace.
// GET /api/v1/admin/workspaces/:id
func (h *OrgHandlers) GetWorkspaceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := h.orgRepo.GetWorkspace(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve workspace"})
			return
		}
		if w == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workspace": w})
	}
}

// @Summary      Update workspace
// @Tags         Org
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Workspace ID"
// @Param        body  body  OrgUnitRequest  true  "New name and min coverage"
// @Success      200  {object}  map[string]interface{}  "Updated workspace"
// @Failure      404  {object}  map[string]interface{}  "Workspace not found"
// @Router       /api/v1/admin/workspaces/{id} [put]
// UpdateWorkspaceHandler updates a workspace's name and min coverage.
// PUT /api/v1/admin/workspaces/:id
func (h *OrgHandlers) UpdateWorkspaceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrgUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.MinCoverage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_coverage cannot be negative"})
			return
		}

		w, err := h.orgRepo.GetWorkspace(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve workspace"})
			return
		}
		if w == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
			return
		}

		w.Name = req.Name
		w.MinCoverage = req.MinCoverage
		if err := h.orgRepo.UpdateWorkspace(c.Request.Context(), w); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update workspace"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workspace": w})
	}
}

// @Summary      Delete workspace
// @Description  Deletes a workspace. Fails while facilities still reference it.
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Workspace ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      409  {object}  map[string]interface{}  "Workspace still has facilities"
// @Router       /api/v1/admin/workspaces/{id} [delete]
// DeleteWorkspaceHandler deletes a workspace.
// DELETE /api/v1/admin/workspaces/:id
func (h *OrgHandlers) DeleteWorkspaceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.orgRepo.DeleteWorkspace(c.Request.Context(), c.Param("id")); err != nil {
			// The FK from facilities is RESTRICT; a violation means the
			// workspace is still in use.
			c.JSON(http.StatusConflict, gin.H{"error": "Workspace still has facilities"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted"})
	}
}

// ----------------------------------------------------------------------------
// Facilities
// ----------------------------------------------------------------------------

// @Summary      List facilities
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        workspace_id  query  string  false  "Filter by workspace"
// @Success      200  {object}  map[string]interface{}  "facilities"
// @Router       /api/v1/admin/facilities [get]
// ListFacilitiesHandler lists facilities, optionally for one workspace.
// GET /api/v1/admin/facilities
func (h *OrgHandlers) ListFacilitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var workspaceID *string
		if v := c.Query("workspace_id"); v != "" {
			workspaceID = &v
		}
		facilities, err := h.orgRepo.ListFacilities(c.Request.Context(), workspaceID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list facilities"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"facilities": facilities})
	}
}

// @Summary      Create facility
// @Tags         Org
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  OrgUnitRequest  true  "Facility name, parent workspace_id, optional min coverage"
// @Success      201  {object}  map[string]interface{}  "Created facility"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      404  {object}  map[string]interface{}  "Parent workspace not found"
// @Router       /api/v1/admin/facilities [post]
// CreateFacilityHandler creates a facility under a workspace.
// POST /api/v1/admin/facilities
func (h *OrgHandlers) CreateFacilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrgUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.WorkspaceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
			return
		}
		if req.MinCoverage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_coverage cannot be negative"})
			return
		}

		parent, err := h.orgRepo.GetWorkspace(c.Request.Context(), req.WorkspaceID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve workspace"})
			return
		}
		if parent == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
			return
		}

		f := &models.Facility{
			WorkspaceID: req.WorkspaceID,
			Name:        req.Name,
			MinCoverage: req.MinCoverage,
		}
		if err := h.orgRepo.CreateFacility(c.Request.Context(), f); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create facility"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"facility": f})
	}
}

// @Summary      Get facility
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Facility ID"
// @Success      200  {object}  map[string]interface{}  "Facility"
// @Failure      404  {object}  map[string]interface{}  "Facility not found"
// @Router       /api/v1/admin/facilities/{id} [get]
// GetFacilityHandler retrieves one facility.
// GET /api/v1/admin/facilities/:id
func (h *OrgHandlers) GetFacilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := h.orgRepo.GetFacility(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facility"})
			return
		}
		if f == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Facility not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"facility": f})
	}
}

// @Summary      Update facility
// @Tags         Org
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Facility ID"
// @Param        body  body  OrgUnitRequest  true  "New name and min coverage"
// @Success      200  {object}  map[string]interface{}  "Updated facility"
// @Failure      404  {object}  map[string]interface{}  "Facility not found"
// @Router       /api/v1/admin/facilities/{id} [put]
// UpdateFacilityHandler updates a facility's name and min coverage.
// Reparenting a facility is not supported; delete and recreate instead.
// PUT /api/v1/admin/facilities/:id
func (h *OrgHandlers) UpdateFacilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrgUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.MinCoverage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_coverage cannot be negative"})
			return
		}

		f, err := h.orgRepo.GetFacility(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facility"})
			return
		}
		if f == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Facility not found"})
			return
		}

		f.Name = req.Name
		f.MinCoverage = req.MinCoverage
		if err := h.orgRepo.UpdateFacility(c.Request.Context(), f); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update facility"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"facility": f})
	}
}

// @Summary      Delete facility
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Facility ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      409  {object}  map[string]interface{}  "Facility still has departments"
// @Router       /api/v1/admin/facilities/{id} [delete]
// DeleteFacilityHandler deletes a facility.
// DELETE /api/v1/admin/facilities/:id
func (h *OrgHandlers) DeleteFacilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.orgRepo.DeleteFacility(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Facility still has departments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Facility deleted"})
	}
}

// ----------------------------------------------------------------------------
// Departments
// ----------------------------------------------------------------------------

// @Summary      List departments
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        facility_id  query  string  false  "Filter by facility"
// @Success      200  {object}  map[string]interface{}  "departments"
// @Router       /api/v1/admin/departments [get]
// ListDepartmentsHandler lists departments, optionally for one facility.
// GET /api/v1/admin/departments
func (h *OrgHandlers) ListDepartmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var facilityID *string
		if v := c.Query("facility_id"); v != "" {
			facilityID = &v
		}
		departments, err := h.orgRepo.ListDepartments(c.Request.Context(), facilityID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list departments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"departments": departments})
	}
}

// @Summary      Create department
// @Tags         Org
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  OrgUnitRequest  true  "Department name, parent facility_id, optional min coverage"
// @Success      201  {object}  map[string]interface{}  "Created department"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      404  {object}  map[string]interface{}  "Parent facility not found"
// @Router       /api/v1/admin/departments [post]
// CreateDepartmentHandler creates a department under a facility.
// POST /api/v1/admin/departments
func (h *OrgHandlers) CreateDepartmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrgUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.FacilityID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "facility_id is required"})
			return
		}
		if req.MinCoverage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_coverage cannot be negative"})
			return
		}

		parent, err := h.orgRepo.GetFacility(c.Request.Context(), req.FacilityID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facility"})
			return
		}
		if parent == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Facility not found"})
			return
		}

		d := &models.Department{
			FacilityID:  req.FacilityID,
			Name:        req.Name,
			MinCoverage: req.MinCoverage,
		}
		if err := h.orgRepo.CreateDepartment(c.Request.Context(), d); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create department"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"department": d})
	}
}

// @Summary      Get department
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Department ID"
// @Success      200  {object}  map[string]interface{}  "Department"
// @Failure      404  {object}  map[string]interface{}  "Department not found"
// @Router       /api/v1/admin/departments/{id} [get]
// GetDepartmentHandler retrieves one department.
// GET /api/v1/admin/departments/:id
func (h *OrgHandlers) GetDepartmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := h.orgRepo.GetDepartment(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve department"})
			return
		}
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"department": d})
	}
}

// @Summary      Update department
// @Tags         Org
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Department ID"
// @Param        body  body  OrgUnitRequest  true  "New name and min coverage"
// @Success      200  {object}  map[string]interface{}  "Updated department"
// @Failure      404  {object}  map[string]interface{}  "Department not found"
// @Router       /api/v1/admin/departments/{id} [put]
// UpdateDepartmentHandler updates a department's name and min coverage.
// PUT /api/v1/admin/departments/:id
func (h *OrgHandlers) UpdateDepartmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrgUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.MinCoverage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_coverage cannot be negative"})
			return
		}

		d, err := h.orgRepo.GetDepartment(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve department"})
			return
		}
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
			return
		}

		d.Name = req.Name
		d.MinCoverage = req.MinCoverage
		if err := h.orgRepo.UpdateDepartment(c.Request.Context(), d); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update department"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"department": d})
	}
}

// @Summary      Delete department
// @Tags         Org
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Department ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      409  {object}  map[string]interface{}  "Department still referenced by assignments or requests"
// @Router       /api/v1/admin/departments/{id} [delete]
// DeleteDepartmentHandler deletes a department.
// DELETE /api/v1/admin/departments/:id
func (h *OrgHandlers) DeleteDepartmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.orgRepo.DeleteDepartment(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Department still referenced by assignments or requests"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Department deleted"})
	}
}
