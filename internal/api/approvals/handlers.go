// Package approvals implements the HTTP handlers for absence approval
// requests: draft creation, submission into the approval chain, per-level
// decisions, cancellation, and listing. The handlers translate the engine's
// sentinel errors into distinct HTTP statuses so the frontend can explain
// why an operation was refused rather than showing a generic failure.
package approvals

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/konshedo/planivo/internal/approval"
	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
	"github.com/konshedo/planivo/internal/validation"
)

// Handlers serves the /approvals route group.
type Handlers struct {
	engine *approval.Engine
	repo   *repositories.ApprovalRepository
	cfg    *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine *approval.Engine, repo *repositories.ApprovalRepository, cfg *config.Config) *Handlers {
	return &Handlers{
		engine: engine,
		repo:   repo,
		cfg:    cfg,
	}
}

// CreateRequest is the body for POST /approvals. Dates are calendar days in
// ISO form; the range is half-open, so end_date is the first day back at work.
type CreateRequest struct {
	ScopeType string  `json:"scope_type" binding:"required"`
	ScopeID   string  `json:"scope_id" binding:"required"`
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Reason    *string `json:"reason"`
}

// DecisionRequest is the body for POST /approvals/:id/decisions.
type DecisionRequest struct {
	Level    int     `json:"level" binding:"required"`
	Decision string  `json:"decision" binding:"required"`
	Note     *string `json:"note"`
}

// writeEngineError maps the engine's sentinel errors onto HTTP statuses.
// Wrapped sentinels are checked most-specific first: ErrDuplicateDecision and
// ErrRequestAlreadyTerminal wrap ErrInvalidTransition, and a bare
// ErrInvalidTransition check would otherwise shadow them.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Approval request not found"})
	case errors.Is(err, approval.ErrDuplicateDecision):
		c.JSON(http.StatusConflict, gin.H{"error": "This step has already been decided"})
	case errors.Is(err, approval.ErrRequestAlreadyTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Request is already in a terminal state"})
	case errors.Is(err, approval.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, approval.ErrNotEligible):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not an eligible approver for this step"})
	case errors.Is(err, approval.ErrNotRequester):
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the requester may perform this action"})
	case errors.Is(err, approval.ErrNoApproverConfigured):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "No approver is configured for this scope"})
	case errors.Is(err, approval.ErrUnknownScope):
		c.JSON(http.StatusNotFound, gin.H{"error": "Org unit not found"})
	case errors.Is(err, approval.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Approval operation failed"})
	}
}

func currentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// @Summary      Create absence request
// @Description  Creates a draft absence request for an org unit. The request stays in draft, invisible to approvers, until submitted.
// @Tags         Approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateRequest  true  "Request scope, date range, and optional reason"
// @Success      201  {object}  map[string]interface{}  "Draft request"
// @Failure      400  {object}  map[string]interface{}  "Invalid scope type, date format, or date range"
// @Failure      404  {object}  map[string]interface{}  "Org unit not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/approvals [post]
// CreateHandler creates a draft absence request.
// POST /api/v1/approvals
func (h *Handlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		scopeType := models.ScopeType(req.ScopeType)
		if !scopeType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scope type: " + req.ScopeType})
			return
		}

		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date, use YYYY-MM-DD"})
			return
		}
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date, use YYYY-MM-DD"})
			return
		}

		if err := validation.ValidateDateRange(start, end, h.cfg.Approvals.MaxRequestDays); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := h.engine.Create(c.Request.Context(), userID, scopeType, req.ScopeID, start, end, req.Reason)
		if err != nil {
			writeEngineError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"request": created})
	}
}

// @Summary      Submit absence request
// @Description  Moves a draft into the approval chain: runs the coverage conflict sweep, verifies a level-1 approver exists, and notifies the level-1 approvers.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]interface{}  "Request now pending level 1"
// @Failure      403  {object}  map[string]interface{}  "Caller is not the requester"
// @Failure      404  {object}  map[string]interface{}  "Request not found"
// @Failure      412  {object}  map[string]interface{}  "No approver configured for the scope"
// @Failure      422  {object}  map[string]interface{}  "Request is not in draft"
// @Router       /api/v1/approvals/{id}/submit [post]
// SubmitHandler submits a draft into the approval chain.
// POST /api/v1/approvals/:id/submit
func (h *Handlers) SubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		req, err := h.engine.Submit(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			writeEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"request": req})
	}
}

// @Summary      Decide on a request
// @Description  Records an approve or reject decision for one level of the chain. Approving the current level advances the request; rejecting it is terminal. Decisions are only accepted for the level that is currently pending.
// @Tags         Approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "Request ID"
// @Param        body  body  DecisionRequest  true  "Level, decision (approved/rejected), optional note"
// @Success      200  {object}  map[string]interface{}  "Updated request"
// @Failure      400  {object}  map[string]interface{}  "Invalid decision value"
// @Failure      403  {object}  map[string]interface{}  "Caller is not an eligible approver"
// @Failure      404  {object}  map[string]interface{}  "Request not found"
// @Failure      409  {object}  map[string]interface{}  "Step already decided or request terminal"
// @Failure      422  {object}  map[string]interface{}  "Decision targets a level that is not pending"
// @Router       /api/v1/approvals/{id}/decisions [post]
// DecideHandler records an approve/reject decision.
// POST /api/v1/approvals/:id/decisions
func (h *Handlers) DecideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req DecisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		decision := models.Decision(req.Decision)
		if decision != models.DecisionApproved && decision != models.DecisionRejected {
			c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be 'approved' or 'rejected'"})
			return
		}

		updated, err := h.engine.Decide(c.Request.Context(), c.Param("id"), req.Level, decision, userID, req.Note)
		if err != nil {
			writeEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"request": updated})
	}
}

// @Summary      Cancel absence request
// @Description  Cancels the caller's own request. Only draft and submitted requests can be cancelled; once a level is pending the request must be decided.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]interface{}  "Cancelled request"
// @Failure      403  {object}  map[string]interface{}  "Caller is not the requester"
// @Failure      404  {object}  map[string]interface{}  "Request not found"
// @Failure      409  {object}  map[string]interface{}  "Request already terminal"
// @Failure      422  {object}  map[string]interface{}  "Request is in review and can no longer be cancelled"
// @Router       /api/v1/approvals/{id}/cancel [post]
// CancelHandler cancels the caller's own request.
// POST /api/v1/approvals/:id/cancel
func (h *Handlers) CancelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		req, err := h.engine.Cancel(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			writeEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"request": req})
	}
}

// @Summary      Get absence request
// @Description  Returns a request together with its full step history.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]interface{}  "Request and steps"
// @Failure      404  {object}  map[string]interface{}  "Request not found"
// @Router       /api/v1/approvals/{id} [get]
// GetHandler returns one request with its steps.
// GET /api/v1/approvals/:id
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.engine.View(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// @Summary      List absence requests
// @Description  Without filters, lists the caller's own requests newest first. scope_type+scope_id list requests for an org unit, optionally narrowed by status; pending_role lists requests awaiting a decision by the given role over that unit.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        scope_type    query  string  false  "workspace, facility, or department"
// @Param        scope_id      query  string  false  "Org unit ID (required with scope_type)"
// @Param        status        query  string  false  "Comma-separated lifecycle states"
// @Param        pending_role  query  string  false  "Role kind; lists requests pending that role's decision"
// @Param        page          query  int     false  "Page number (default 1)"
// @Param        per_page      query  int     false  "Page size (default 20, max 100)"
// @Success      200  {object}  map[string]interface{}  "List of requests"
// @Failure      400  {object}  map[string]interface{}  "Invalid filter combination"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/approvals [get]
// ListHandler lists requests for the caller or for an org unit.
// GET /api/v1/approvals
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}
		offset := (page - 1) * perPage

		scopeTypeParam := c.Query("scope_type")
		scopeID := c.Query("scope_id")

		// Own requests when no scope filter is given.
		if scopeTypeParam == "" && scopeID == "" {
			requests, err := h.repo.ListByRequester(c.Request.Context(), userID, perPage, offset)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requests"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"requests": requests,
				"page":     page,
				"per_page": perPage,
			})
			return
		}

		scopeType := models.ScopeType(scopeTypeParam)
		if !scopeType.Valid() || scopeID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope_type and scope_id must be provided together"})
			return
		}

		if roleParam := c.Query("pending_role"); roleParam != "" {
			role := models.RoleKind(roleParam)
			if !role.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + roleParam})
				return
			}
			requests, err := h.repo.ListPendingForRole(c.Request.Context(), role, scopeType, scopeID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending requests"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"requests": requests})
			return
		}

		statuses, err := parseStatuses(c.Query("status"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		requests, err := h.repo.ListByScopeAndStatus(c.Request.Context(), scopeType, scopeID, statuses)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requests"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"requests": requests})
	}
}
