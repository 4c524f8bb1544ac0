// modules.go implements the dashboard module catalog and per-role capability
// grants. Grant changes affect every user holding the role, so the whole
// capability cache is flushed rather than tracking which users are touched.
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

// ModuleHandlers handles module catalog and grant endpoints.
type ModuleHandlers struct {
	moduleRepo *repositories.ModuleRepository
	svc        *access.Service
}

// NewModuleHandlers creates a new ModuleHandlers instance.
func NewModuleHandlers(db *sqlx.DB, svc *access.Service) *ModuleHandlers {
	return &ModuleHandlers{
		moduleRepo: repositories.NewModuleRepository(db),
		svc:        svc,
	}
}

// ModuleRequest is the create/update body for catalog modules.
type ModuleRequest struct {
	ModuleKey   string  `json:"module_key" binding:"required"`
	ModuleName  string  `json:"module_name" binding:"required"`
	Description *string `json:"description"`
}

// GrantRequest is the body for PUT /admin/modules/:id/grants. Absent booleans
// default to false, matching the fail-closed capability model.
type GrantRequest struct {
	Role      string `json:"role" binding:"required"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
	CanAdmin  bool   `json:"can_admin"`
}

// @Summary      List module catalog
// @Tags         Modules
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "modules"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/modules [get]
// ListModulesHandler lists the module catalog.
// GET /api/v1/admin/modules
func (h *ModuleHandlers) ListModulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		modules, err := h.moduleRepo.ListModules(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list modules"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"modules": modules})
	}
}

// @Summary      Create catalog module
// @Tags         Modules
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ModuleRequest  true  "Module key, display name, optional description"
// @Success      201  {object}  map[string]interface{}  "Created module"
// @Failure      400  {object}  map[string]interface{}  "Invalid module key"
// @Failure      409  {object}  map[string]interface{}  "Module key already exists"
// @Router       /api/v1/admin/modules [post]
// CreateModuleHandler adds a module to the catalog.
// POST /api/v1/admin/modules
func (h *ModuleHandlers) CreateModuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := validation.ValidateModuleKey(req.ModuleKey); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		existing, err := h.moduleRepo.GetModuleByKey(c.Request.Context(), req.ModuleKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check module key"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Module key already exists"})
			return
		}

		m := &models.Module{
			ModuleKey:   req.ModuleKey,
			ModuleName:  req.ModuleName,
			Description: req.Description,
		}
		if err := h.moduleRepo.CreateModule(c.Request.Context(), m); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create module"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"module": m})
	}
}

// @Summary      Get catalog module
// @Tags         Modules
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Module ID"
// @Success      200  {object}  map[string]interface{}  "Module"
// @Failure      404  {object}  map[string]interface{}  "Module not found"
// @Router       /api/v1/admin/modules/{id} [get]
// GetModuleHandler retrieves one catalog module.
// GET /api/v1/admin/modules/:id
func (h *ModuleHandlers) GetModuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := h.moduleRepo.GetModule(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve module"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"module": m})
	}
}

// @Summary      Update catalog module
// @Description  Updates a module's display name and description. The module key is immutable; config and frontend routes reference it.
// @Tags         Modules
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Module ID"
// @Param        body  body  ModuleRequest  true  "New display name and description"
// @Success      200  {object}  map[string]interface{}  "Updated module"
// @Failure      404  {object}  map[string]interface{}  "Module not found"
// @Failure      422  {object}  map[string]interface{}  "Attempted to change the module key"
// @Router       /api/v1/admin/modules/{id} [put]
// UpdateModuleHandler updates a module's display metadata.
// PUT /api/v1/admin/modules/:id
func (h *ModuleHandlers) UpdateModuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		m, err := h.moduleRepo.GetModule(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve module"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
			return
		}
		if req.ModuleKey != m.ModuleKey {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Module key cannot be changed"})
			return
		}

		m.ModuleName = req.ModuleName
		m.Description = req.Description
		if err := h.moduleRepo.UpdateModule(c.Request.Context(), m); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update module"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"module": m})
	}
}

// @Summary      Delete catalog module
// @Description  Removes a module and all its grants. Every user loses access to it immediately.
// @Tags         Modules
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Module ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      404  {object}  map[string]interface{}  "Module not found"
// @Router       /api/v1/admin/modules/{id} [delete]
// DeleteModuleHandler removes a module from the catalog.
// DELETE /api/v1/admin/modules/:id
func (h *ModuleHandlers) DeleteModuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := h.moduleRepo.GetModule(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve module"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
			return
		}

		if err := h.moduleRepo.DeleteModule(c.Request.Context(), m.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete module"})
			return
		}

		h.svc.InvalidateAll()
		c.JSON(http.StatusOK, gin.H{"message": "Module deleted"})
	}
}

// @Summary      List module grants
// @Tags         Modules
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Module ID"
// @Success      200  {object}  map[string]interface{}  "grants"
// @Failure      404  {object}  map[string]interface{}  "Module not found"
// @Router       /api/v1/admin/modules/{id}/grants [get]
// ListGrantsHandler lists every role's grant on one module.
// GET /api/v1/admin/modules/:id/grants
func (h *ModuleHandlers) ListGrantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := h.moduleRepo.GetModule(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve module"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
			return
		}

		grants, err := h.moduleRepo.ListGrantsByModule(c.Request.Context(), m.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list grants"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"grants": grants})
	}
}

// @Summary      Upsert module grant
// @Description  Creates or replaces the capability set a role holds on a module. Capabilities not present in the body are revoked.
// @Tags         Modules
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string        true  "Module ID"
// @Param        body  body  GrantRequest  true  "Role and capability flags"
// @Success      200  {object}  map[string]interface{}  "Stored grant"
// @Failure      400  {object}  map[string]interface{}  "Unknown role"
// @Failure      404  {object}  map[string]interface{}  "Module not found"
// @Router       /api/v1/admin/modules/{id}/grants [put]
// UpsertGrantHandler creates or replaces a role's grant on a module.
// PUT /api/v1/admin/modules/:id/grants
func (h *ModuleHandlers) UpsertGrantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GrantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		role := models.RoleKind(req.Role)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + req.Role})
			return
		}

		m, err := h.moduleRepo.GetModule(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve module"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
			return
		}

		g := &models.ModuleGrant{
			Role:      role,
			ModuleID:  m.ID,
			CanView:   req.CanView,
			CanEdit:   req.CanEdit,
			CanDelete: req.CanDelete,
			CanAdmin:  req.CanAdmin,
		}
		if err := h.moduleRepo.UpsertGrant(c.Request.Context(), g); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store grant"})
			return
		}

		// A grant touches every holder of the role; flush everyone.
		h.svc.InvalidateAll()
		c.JSON(http.StatusOK, gin.H{"grant": g})
	}
}

// @Summary      Delete module grant
// @Description  Revokes a role's grant on a module. With no grant row left, the capability matrix denies the module for that role.
// @Tags         Modules
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "Module ID"
// @Param        role  path  string  true  "Role kind"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      400  {object}  map[string]interface{}  "Unknown role"
// @Failure      404  {object}  map[string]interface{}  "Module not found"
// @Router       /api/v1/admin/modules/{id}/grants/{role} [delete]
// DeleteGrantHandler revokes a role's grant on a module.
// DELETE /api/v1/admin/modules/:id/grants/:role
func (h *ModuleHandlers) DeleteGrantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.RoleKind(c.Param("role"))
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + c.Param("role")})
			return
		}

		m, err := h.moduleRepo.GetModule(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve module"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
			return
		}

		if err := h.moduleRepo.DeleteGrant(c.Request.Context(), role, m.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete grant"})
			return
		}

		h.svc.InvalidateAll()
		c.JSON(http.StatusOK, gin.H{"message": "Grant deleted"})
	}
}
