// Package approval implements the absence approval workflow: a linear state
// machine (draft → submitted → level_k_pending → fully_approved) whose
// approver chain is derived from the org hierarchy, with optimistic
// concurrency on every transition and a minimum-coverage conflict sweep that
// annotates requests without ever blocking them.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/konshedo/planivo/internal/access"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
	"github.com/konshedo/planivo/internal/telemetry"
)

// RequestStore is the slice of the approval repository the engine needs.
type RequestStore interface {
	Create(ctx context.Context, req *models.ApprovalRequest, steps []*models.ApprovalStep) error
	Get(ctx context.Context, id string) (*models.ApprovalRequest, error)
	GetSteps(ctx context.Context, requestID string) ([]*models.ApprovalStep, error)
	ListOverlapping(ctx context.Context, scopeType models.ScopeType, scopeID string, start, end time.Time, excludeID string) ([]*models.ApprovalRequest, error)
	MarkSubmitted(ctx context.Context, id string, hasConflict bool) (bool, error)
	Activate(ctx context.Context, id string) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
	ApplyDecision(ctx context.Context, u repositories.DecisionUpdate) (repositories.DecisionResult, error)
}

// OrgStore resolves org units, their hierarchy chains, and coverage numbers.
type OrgStore interface {
	ResolveChain(ctx context.Context, scopeType models.ScopeType, scopeID string) (*models.ScopeChain, error)
	MinCoverage(ctx context.Context, scopeType models.ScopeType, scopeID string) (int, error)
	CountStaff(ctx context.Context, scopeType models.ScopeType, scopeID string) (int, error)
}

// RoleStore lists the holders of an approver role over a specific org unit.
type RoleStore interface {
	ListByScope(ctx context.Context, role models.RoleKind, scopeType models.ScopeType, scopeID string) ([]*models.RoleAssignment, error)
}

// ScopeResolver resolves the org scopes a user manages under a role.
type ScopeResolver interface {
	ResolveScopes(ctx context.Context, userID string, role models.RoleKind) ([]access.Scope, error)
}

// Notifier delivers a notification. Dispatch errors are collected and logged
// by the engine; they never fail the transition that produced them.
type Notifier interface {
	Dispatch(ctx context.Context, n *models.Notification) error
}

// Config carries the engine's tunables.
type Config struct {
	// DefaultMinCoverage applies to org units whose min_coverage column is
	// zero. Zero disables the conflict sweep for those units.
	DefaultMinCoverage int
}

// RequestView is the read model served to clients: the request joined with
// its full step history.
type RequestView struct {
	Request *models.ApprovalRequest `json:"request"`
	Steps   []*models.ApprovalStep  `json:"steps"`
}

// Engine drives approval requests through their lifecycle.
type Engine struct {
	store    RequestStore
	org      OrgStore
	roles    RoleStore
	resolver ScopeResolver
	notifier Notifier
	cfg      Config

	mu    sync.RWMutex
	views map[string]*RequestView
}

// NewEngine creates an approval engine over the given stores.
func NewEngine(store RequestStore, org OrgStore, roles RoleStore, resolver ScopeResolver, notifier Notifier, cfg Config) *Engine {
	return &Engine{
		store:    store,
		org:      org,
		roles:    roles,
		resolver: resolver,
		notifier: notifier,
		cfg:      cfg,
		views:    make(map[string]*RequestView),
	}
}

// ============================================================================
// Lifecycle operations
// ============================================================================

// Create validates the scope and date range and persists a draft request
// with one pending step per approval level.
func (e *Engine) Create(ctx context.Context, requesterID string, scopeType models.ScopeType, scopeID string, start, end time.Time, reason *string) (*models.ApprovalRequest, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	chain, err := Chain(scopeType)
	if err != nil {
		return nil, err
	}

	orgChain, err := e.org.ResolveChain(ctx, scopeType, scopeID)
	if err != nil {
		return nil, fmt.Errorf("resolving org chain: %w", err)
	}
	if orgChain == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownScope, scopeType, scopeID)
	}

	req := &models.ApprovalRequest{
		RequesterID: requesterID,
		ScopeType:   scopeType,
		ScopeID:     scopeID,
		StartDate:   start,
		EndDate:     end,
		MaxLevel:    len(chain),
		Reason:      reason,
	}

	steps := make([]*models.ApprovalStep, len(chain))
	for i, role := range chain {
		steps[i] = &models.ApprovalStep{Level: i + 1, ApproverRole: role}
	}

	if err := e.store.Create(ctx, req, steps); err != nil {
		return nil, fmt.Errorf("creating approval request: %w", err)
	}

	slog.Info("approval request created",
		"request_id", req.ID,
		"requester_id", requesterID,
		"scope_type", scopeType,
		"scope_id", scopeID,
		"max_level", req.MaxLevel)

	return req, nil
}

// Submit moves a draft to submitted, runs the coverage sweep, and activates
// level 1. Requester-only. Submission requires at least one configured
// level-1 approver; activation and notification happen after the submit
// commits, so a crashed activation leaves a submitted request for the
// reminder job to pick up.
func (e *Engine) Submit(ctx context.Context, requestID, requesterID string) (*models.ApprovalRequest, error) {
	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		e.record("submit", "error")
		return nil, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		e.record("submit", "invalid")
		return nil, ErrNotFound
	}
	if req.RequesterID != requesterID {
		e.record("submit", "denied")
		return nil, ErrNotRequester
	}
	if req.Status != models.StatusDraft {
		e.record("submit", "invalid")
		if req.Status.IsTerminal() {
			return nil, ErrRequestAlreadyTerminal
		}
		return nil, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, req.Status)
	}

	approvers, err := e.levelApprovers(ctx, req, 1)
	if err != nil {
		e.record("submit", "error")
		return nil, err
	}
	if len(approvers) == 0 {
		e.record("submit", "invalid")
		return nil, fmt.Errorf("%w: %s %s has no level-1 approver", ErrNoApproverConfigured, req.ScopeType, req.ScopeID)
	}

	hasConflict, err := e.sweepConflict(ctx, req)
	if err != nil {
		e.record("submit", "error")
		return nil, err
	}

	ok, err := e.store.MarkSubmitted(ctx, requestID, hasConflict)
	if err != nil {
		e.record("submit", "error")
		return nil, fmt.Errorf("submitting request: %w", err)
	}
	if !ok {
		e.record("submit", "invalid")
		return nil, fmt.Errorf("%w: request is no longer a draft", ErrInvalidTransition)
	}
	e.record("submit", "ok")
	if hasConflict {
		telemetry.ApprovalConflictsFlaggedTotal.Inc()
		slog.Warn("approval request submitted with coverage conflict",
			"request_id", requestID,
			"scope_type", req.ScopeType,
			"scope_id", req.ScopeID)
	}

	activated, err := e.store.Activate(ctx, requestID)
	if err != nil || !activated {
		e.record("activate", "error")
		slog.Error("request submitted but not activated, leaving for reminder job",
			"request_id", requestID, "error", err)
	} else {
		e.record("activate", "ok")
		e.notifyUsers(ctx, approvers, req, "approval_pending",
			"Approval needed",
			fmt.Sprintf("An absence request for %s to %s awaits your decision.",
				req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")))
	}

	e.InvalidateView(requestID)
	return e.freshView(ctx, requestID)
}

// Decide applies one approver's decision to the step at the given level.
// The request must be pending at exactly that level, the approver must hold
// the step's role over the request's org unit, and the step must still be
// undecided. Approving the final level re-runs the coverage sweep so the
// conflict flag reflects requests that landed while this one was in review.
func (e *Engine) Decide(ctx context.Context, requestID string, level int, decision models.Decision, approverID string, note *string) (*models.ApprovalRequest, error) {
	transition := "approve"
	if decision == models.DecisionRejected {
		transition = "reject"
	}

	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		e.record(transition, "invalid")
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		e.record(transition, "error")
		return nil, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		e.record(transition, "invalid")
		return nil, ErrNotFound
	}
	if req.Status.IsTerminal() {
		e.record(transition, "invalid")
		return nil, ErrRequestAlreadyTerminal
	}

	pendingLevel, pending := req.Status.PendingLevel()
	if !pending {
		e.record(transition, "invalid")
		return nil, fmt.Errorf("%w: request is %s, not pending", ErrInvalidTransition, req.Status)
	}
	if pendingLevel != level {
		e.record(transition, "invalid")
		return nil, fmt.Errorf("%w: request is pending at level %d, not %d", ErrInvalidTransition, pendingLevel, level)
	}

	role, err := RoleForLevel(req.ScopeType, level)
	if err != nil {
		e.record(transition, "invalid")
		return nil, err
	}
	if err := e.checkEligibility(ctx, req, role, approverID); err != nil {
		if errors.Is(err, ErrNotEligible) {
			e.record(transition, "denied")
		} else {
			e.record(transition, "error")
		}
		return nil, err
	}

	update := repositories.DecisionUpdate{
		RequestID:      requestID,
		Level:          level,
		Decision:       decision,
		DecidedBy:      approverID,
		Note:           note,
		ExpectedStatus: req.Status,
	}

	switch {
	case decision == models.DecisionRejected:
		update.NextStatus = models.StatusRejected
		update.NextLevel = level
		update.Terminal = true

	case level < req.MaxLevel:
		next, err := models.PendingStatusForLevel(level + 1)
		if err != nil {
			e.record(transition, "error")
			return nil, err
		}
		update.NextStatus = next
		update.NextLevel = level + 1

	default:
		hasConflict, err := e.sweepConflict(ctx, req)
		if err != nil {
			e.record(transition, "error")
			return nil, err
		}
		update.NextStatus = models.StatusFullyApproved
		update.NextLevel = level
		update.Terminal = true
		update.HasConflict = &hasConflict
		if hasConflict && !req.HasConflict {
			telemetry.ApprovalConflictsFlaggedTotal.Inc()
		}
	}

	result, err := e.store.ApplyDecision(ctx, update)
	if err != nil {
		e.record(transition, "error")
		return nil, fmt.Errorf("applying decision: %w", err)
	}
	switch result {
	case repositories.DecisionStepTaken:
		e.record(transition, "invalid")
		return nil, ErrDuplicateDecision
	case repositories.DecisionRequestStale:
		e.record(transition, "invalid")
		return nil, fmt.Errorf("%w: request state changed concurrently", ErrInvalidTransition)
	}
	e.record(transition, "ok")

	slog.Info("approval decision applied",
		"request_id", requestID,
		"level", level,
		"decision", decision,
		"decided_by", approverID,
		"next_status", update.NextStatus)

	switch update.NextStatus {
	case models.StatusRejected:
		e.notifyRequester(ctx, req, "approval_rejected",
			"Request rejected",
			fmt.Sprintf("Your absence request was rejected at level %d.", level))
	case models.StatusFullyApproved:
		e.notifyRequester(ctx, req, "approval_approved",
			"Request approved",
			"Your absence request is fully approved.")
	default:
		if approvers, err := e.levelApprovers(ctx, req, level+1); err != nil {
			slog.Error("listing next-level approvers", "request_id", requestID, "level", level+1, "error", err)
		} else {
			e.notifyUsers(ctx, approvers, req, "approval_pending",
				"Approval needed",
				fmt.Sprintf("An absence request reached you at level %d.", level+1))
		}
		e.notifyRequester(ctx, req, "approval_progress",
			"Request moved forward",
			fmt.Sprintf("Your absence request was approved at level %d of %d.", level, req.MaxLevel))
	}

	e.InvalidateView(requestID)
	return e.freshView(ctx, requestID)
}

// Cancel withdraws a request. Requester-only, and only before review starts:
// a request that reached level_1_pending can no longer be cancelled.
func (e *Engine) Cancel(ctx context.Context, requestID, requesterID string) (*models.ApprovalRequest, error) {
	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		e.record("cancel", "error")
		return nil, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		e.record("cancel", "invalid")
		return nil, ErrNotFound
	}
	if req.RequesterID != requesterID {
		e.record("cancel", "denied")
		return nil, ErrNotRequester
	}
	if req.Status.IsTerminal() {
		e.record("cancel", "invalid")
		return nil, ErrRequestAlreadyTerminal
	}
	if req.Status != models.StatusDraft && req.Status != models.StatusSubmitted {
		e.record("cancel", "invalid")
		return nil, fmt.Errorf("%w: cannot cancel a request in review", ErrInvalidTransition)
	}

	ok, err := e.store.Cancel(ctx, requestID)
	if err != nil {
		e.record("cancel", "error")
		return nil, fmt.Errorf("cancelling request: %w", err)
	}
	if !ok {
		e.record("cancel", "invalid")
		return nil, fmt.Errorf("%w: request state changed concurrently", ErrInvalidTransition)
	}
	e.record("cancel", "ok")

	e.notifyRequester(ctx, req, "approval_cancelled",
		"Request cancelled",
		"Your absence request was cancelled.")

	e.InvalidateView(requestID)
	return e.freshView(ctx, requestID)
}

// ============================================================================
// Read model
// ============================================================================

// View returns the request with its step history, cached per request id.
// The realtime bridge invalidates entries when approval tables change.
func (e *Engine) View(ctx context.Context, requestID string) (*RequestView, error) {
	e.mu.RLock()
	if v, ok := e.views[requestID]; ok {
		e.mu.RUnlock()
		return v, nil
	}
	e.mu.RUnlock()

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		return nil, ErrNotFound
	}
	steps, err := e.store.GetSteps(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	view := &RequestView{Request: req, Steps: steps}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.views[requestID]; ok {
		return existing, nil
	}
	e.views[requestID] = view
	return view, nil
}

// InvalidateView drops the cached read model for one request.
func (e *Engine) InvalidateView(requestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.views, requestID)
}

// InvalidateAllViews drops every cached read model.
func (e *Engine) InvalidateAllViews() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.views = make(map[string]*RequestView)
}

// ============================================================================
// Helpers
// ============================================================================

// checkEligibility verifies that the approver's resolved scopes for the
// step's role cover the request's org-unit chain.
func (e *Engine) checkEligibility(ctx context.Context, req *models.ApprovalRequest, role models.RoleKind, approverID string) error {
	targetType, targetID, err := e.approverTarget(ctx, req, role)
	if err != nil {
		return err
	}

	scopes, err := e.resolver.ResolveScopes(ctx, approverID, role)
	if err != nil {
		if errors.Is(err, access.ErrNoAssignment) {
			return fmt.Errorf("%w: user %s holds no %s assignment", ErrNotEligible, approverID, role)
		}
		return fmt.Errorf("resolving approver scopes: %w", err)
	}
	for _, s := range scopes {
		if s.ID == targetID {
			return nil
		}
	}
	return fmt.Errorf("%w: user %s is not %s of %s %s", ErrNotEligible, approverID, role, targetType, targetID)
}

// approverTarget maps a step role to the concrete org unit its holder must
// manage: the request's own unit for level 1, an ancestor for deeper levels.
func (e *Engine) approverTarget(ctx context.Context, req *models.ApprovalRequest, role models.RoleKind) (models.ScopeType, string, error) {
	targetType, ok := role.Manages()
	if !ok {
		return "", "", fmt.Errorf("role %s cannot decide approvals", role)
	}
	chain, err := e.org.ResolveChain(ctx, req.ScopeType, req.ScopeID)
	if err != nil {
		return "", "", fmt.Errorf("resolving org chain: %w", err)
	}
	if chain == nil {
		return "", "", fmt.Errorf("%s %s does not exist", req.ScopeType, req.ScopeID)
	}
	targetID, ok := chain.IDFor(targetType)
	if !ok {
		return "", "", fmt.Errorf("org chain for %s %s has no %s", req.ScopeType, req.ScopeID, targetType)
	}
	return targetType, targetID, nil
}

// levelApprovers returns the users holding the approver role for a level of
// the request's chain.
func (e *Engine) levelApprovers(ctx context.Context, req *models.ApprovalRequest, level int) ([]*models.RoleAssignment, error) {
	role, err := RoleForLevel(req.ScopeType, level)
	if err != nil {
		return nil, err
	}
	targetType, targetID, err := e.approverTarget(ctx, req, role)
	if err != nil {
		return nil, err
	}
	assignments, err := e.roles.ListByScope(ctx, role, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("listing approvers: %w", err)
	}
	return assignments, nil
}

// notifyUsers dispatches one notification per assignment holder,
// fire-and-collect: failures are logged and never propagate.
func (e *Engine) notifyUsers(ctx context.Context, assignments []*models.RoleAssignment, req *models.ApprovalRequest, kind, title, message string) {
	if e.notifier == nil {
		return
	}
	for _, a := range assignments {
		n := &models.Notification{
			UserID:    a.UserID,
			Type:      kind,
			Title:     title,
			Message:   message,
			RelatedID: &req.ID,
		}
		if err := e.notifier.Dispatch(ctx, n); err != nil {
			slog.Error("notification dispatch failed",
				"request_id", req.ID, "user_id", a.UserID, "type", kind, "error", err)
		}
	}
}

func (e *Engine) notifyRequester(ctx context.Context, req *models.ApprovalRequest, kind, title, message string) {
	if e.notifier == nil {
		return
	}
	n := &models.Notification{
		UserID:    req.RequesterID,
		Type:      kind,
		Title:     title,
		Message:   message,
		RelatedID: &req.ID,
	}
	if err := e.notifier.Dispatch(ctx, n); err != nil {
		slog.Error("notification dispatch failed",
			"request_id", req.ID, "user_id", req.RequesterID, "type", kind, "error", err)
	}
}

// freshView reloads the request after a transition so callers see the
// post-transition state.
func (e *Engine) freshView(ctx context.Context, requestID string) (*models.ApprovalRequest, error) {
	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("reloading request: %w", err)
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

func (e *Engine) record(transition, outcome string) {
	telemetry.ApprovalTransitionsTotal.WithLabelValues(transition, outcome).Inc()
}
