// approval_repository.go implements ApprovalRepository, providing database queries for
// approval requests and their per-level steps: transactional creation, optimistic
// status transitions, the decision update that serializes racing approvers, and
// the overlap query behind conflict detection.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/ids"
	"github.com/lib/pq"
)

// DecisionResult reports which optimistic guard, if any, rejected a decision update.
type DecisionResult int

const (
	// DecisionApplied - the step and request were both updated.
	DecisionApplied DecisionResult = iota
	// DecisionStepTaken - the step had already been decided by someone else.
	DecisionStepTaken
	// DecisionRequestStale - the request moved out of the expected status concurrently.
	DecisionRequestStale
)

// DecisionUpdate carries one approver's decision through the transactional update.
type DecisionUpdate struct {
	RequestID      string
	Level          int
	Decision       models.Decision
	DecidedBy      string
	Note           *string
	ExpectedStatus models.ApprovalStatus
	NextStatus     models.ApprovalStatus
	NextLevel      int
	HasConflict    *bool // set when the final sweep ran; nil leaves the flag untouched
	Terminal       bool  // stamps decided_at on the request
}

// ApprovalRepository handles approval request and step database operations
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository creates a new ApprovalRepository
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// ============================================================================
// Requests
// ============================================================================

// Create inserts a draft request and its pending steps in one transaction.
// The request id is a fresh ULID unless the caller supplied one.
func (r *ApprovalRepository) Create(ctx context.Context, req *models.ApprovalRequest, steps []*models.ApprovalStep) error {
	if req.ID == "" {
		req.ID = ids.New()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	req.Status = models.StatusDraft

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reqQuery := `
		INSERT INTO approval_requests
		(id, requester_id, scope_type, scope_id, start_date, end_date, status,
		 current_level, max_level, has_conflict, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, reqQuery,
		req.ID, req.RequesterID, req.ScopeType, req.ScopeID,
		req.StartDate, req.EndDate, req.Status,
		req.CurrentLevel, req.MaxLevel, req.HasConflict, req.Reason,
		req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return err
	}

	stepQuery := `
		INSERT INTO approval_steps (id, request_id, level, approver_role, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, s := range steps {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.RequestID = req.ID
		s.Decision = models.DecisionPending
		s.CreatedAt = req.CreatedAt
		if _, err := tx.ExecContext(ctx, stepQuery, s.ID, s.RequestID, s.Level, s.ApproverRole, s.Decision, s.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get retrieves a request by ID with the requester's name and email joined
func (r *ApprovalRepository) Get(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	query := `
		SELECT ar.id, ar.requester_id, ar.scope_type, ar.scope_id, ar.start_date, ar.end_date,
		       ar.status, ar.current_level, ar.max_level, ar.has_conflict, ar.reason,
		       ar.submitted_at, ar.decided_at, ar.created_at, ar.updated_at,
		       COALESCE(u.name, '') as requester_name,
		       COALESCE(u.email, '') as requester_email
		FROM approval_requests ar
		LEFT JOIN users u ON ar.requester_id = u.id
		WHERE ar.id = $1
	`

	req := &models.ApprovalRequest{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&req.ID, &req.RequesterID, &req.ScopeType, &req.ScopeID, &req.StartDate, &req.EndDate,
		&req.Status, &req.CurrentLevel, &req.MaxLevel, &req.HasConflict, &req.Reason,
		&req.SubmittedAt, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt,
		&req.RequesterName, &req.RequesterEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListByRequester returns a user's requests newest first
func (r *ApprovalRepository) ListByRequester(ctx context.Context, userID string, limit, offset int) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT id, requester_id, scope_type, scope_id, start_date, end_date,
		       status, current_level, max_level, has_conflict, reason,
		       submitted_at, decided_at, created_at, updated_at
		FROM approval_requests
		WHERE requester_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryxContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListByScopeAndStatus returns requests in a scope filtered to the given
// statuses, newest first. An empty status list returns every request in scope.
func (r *ApprovalRepository) ListByScopeAndStatus(ctx context.Context, scopeType models.ScopeType, scopeID string, statuses []models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT ar.id, ar.requester_id, ar.scope_type, ar.scope_id, ar.start_date, ar.end_date,
		       ar.status, ar.current_level, ar.max_level, ar.has_conflict, ar.reason,
		       ar.submitted_at, ar.decided_at, ar.created_at, ar.updated_at,
		       COALESCE(u.name, '') as requester_name,
		       COALESCE(u.email, '') as requester_email
		FROM approval_requests ar
		LEFT JOIN users u ON ar.requester_id = u.id
		WHERE ar.scope_type = $1 AND ar.scope_id = $2
	`

	args := []interface{}{scopeType, scopeID}
	if len(statuses) > 0 {
		query += ` AND ar.status = ANY($3::approval_status[])`
		statusStrings := make([]string, len(statuses))
		for i, s := range statuses {
			statusStrings[i] = string(s)
		}
		args = append(args, pq.Array(statusStrings))
	}
	query += ` ORDER BY ar.id DESC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*models.ApprovalRequest, 0)
	for rows.Next() {
		req := &models.ApprovalRequest{}
		if err := rows.Scan(
			&req.ID, &req.RequesterID, &req.ScopeType, &req.ScopeID, &req.StartDate, &req.EndDate,
			&req.Status, &req.CurrentLevel, &req.MaxLevel, &req.HasConflict, &req.Reason,
			&req.SubmittedAt, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt,
			&req.RequesterName, &req.RequesterEmail); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// ListOverlapping returns requests in the same scope that block coverage for
// any day of [start, end): those already fully approved or pending at some
// level. Half-open interval overlap: start_a < end_b AND start_b < end_a.
// The excluded id keeps a request from conflicting with itself.
func (r *ApprovalRepository) ListOverlapping(ctx context.Context, scopeType models.ScopeType, scopeID string, start, end time.Time, excludeID string) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT id, requester_id, scope_type, scope_id, start_date, end_date,
		       status, current_level, max_level, has_conflict, reason,
		       submitted_at, decided_at, created_at, updated_at
		FROM approval_requests
		WHERE scope_type = $1 AND scope_id = $2
		  AND status IN ('fully_approved', 'level_1_pending', 'level_2_pending', 'level_3_pending')
		  AND start_date < $4 AND $3 < end_date
		  AND id <> $5
		ORDER BY id
	`

	rows, err := r.db.QueryxContext(ctx, query, scopeType, scopeID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListPendingForRole returns requests waiting on a decision from the given
// role at a scope, i.e. an approver's inbox. The request must be pending at
// exactly the level whose step names that role.
func (r *ApprovalRepository) ListPendingForRole(ctx context.Context, role models.RoleKind, scopeType models.ScopeType, scopeID string) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT ar.id, ar.requester_id, ar.scope_type, ar.scope_id, ar.start_date, ar.end_date,
		       ar.status, ar.current_level, ar.max_level, ar.has_conflict, ar.reason,
		       ar.submitted_at, ar.decided_at, ar.created_at, ar.updated_at,
		       COALESCE(u.name, '') as requester_name,
		       COALESCE(u.email, '') as requester_email
		FROM approval_requests ar
		JOIN approval_steps s ON s.request_id = ar.id AND s.level = ar.current_level
		LEFT JOIN users u ON ar.requester_id = u.id
		WHERE s.approver_role = $1
		  AND s.decision = 'pending'
		  AND ar.status IN ('level_1_pending', 'level_2_pending', 'level_3_pending')
		  AND ar.scope_type = $2 AND ar.scope_id = $3
		ORDER BY ar.id
	`

	rows, err := r.db.QueryxContext(ctx, query, role, scopeType, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*models.ApprovalRequest, 0)
	for rows.Next() {
		req := &models.ApprovalRequest{}
		if err := rows.Scan(
			&req.ID, &req.RequesterID, &req.ScopeType, &req.ScopeID, &req.StartDate, &req.EndDate,
			&req.Status, &req.CurrentLevel, &req.MaxLevel, &req.HasConflict, &req.Reason,
			&req.SubmittedAt, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt,
			&req.RequesterName, &req.RequesterEmail); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// ListStalePending returns requests that have sat in a pending status without
// movement since before the cutoff. Used by the reminder job.
func (r *ApprovalRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT id, requester_id, scope_type, scope_id, start_date, end_date,
		       status, current_level, max_level, has_conflict, reason,
		       submitted_at, decided_at, created_at, updated_at
		FROM approval_requests
		WHERE status IN ('level_1_pending', 'level_2_pending', 'level_3_pending')
		  AND updated_at < $1
		ORDER BY id
	`

	rows, err := r.db.QueryxContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListStuckSubmitted returns requests whose activation never happened: still
// 'submitted' since before the cutoff. The reminder job re-activates them.
func (r *ApprovalRepository) ListStuckSubmitted(ctx context.Context, cutoff time.Time) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT id, requester_id, scope_type, scope_id, start_date, end_date,
		       status, current_level, max_level, has_conflict, reason,
		       submitted_at, decided_at, created_at, updated_at
		FROM approval_requests
		WHERE status = 'submitted' AND submitted_at < $1
		ORDER BY id
	`

	rows, err := r.db.QueryxContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ============================================================================
// Status transitions (optimistic)
// ============================================================================

// MarkSubmitted moves a draft to submitted and records the conflict sweep
// outcome. Returns false when the request was not in draft.
func (r *ApprovalRepository) MarkSubmitted(ctx context.Context, id string, hasConflict bool) (bool, error) {
	query := `
		UPDATE approval_requests
		SET status = 'submitted', has_conflict = $2, submitted_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'draft'
	`

	res, err := r.db.ExecContext(ctx, query, id, hasConflict, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Activate moves a submitted request to level_1_pending. Returns false when
// the request was not in submitted (already activated or moved elsewhere).
func (r *ApprovalRepository) Activate(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE approval_requests
		SET status = 'level_1_pending', current_level = 1, updated_at = $2
		WHERE id = $1 AND status = 'submitted'
	`

	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Cancel moves a request to cancelled. Only draft and submitted requests can
// be cancelled; returns false when the request had already left those states.
// The requester-only rule is enforced by the engine before calling this.
func (r *ApprovalRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE approval_requests
		SET status = 'cancelled', decided_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('draft', 'submitted')
	`

	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetConflict updates the conflict flag outside a transition (re-sweeps)
func (r *ApprovalRepository) SetConflict(ctx context.Context, id string, hasConflict bool) error {
	query := `UPDATE approval_requests SET has_conflict = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, hasConflict, time.Now())
	return err
}

// Touch bumps updated_at so the reminder job does not fire again immediately
func (r *ApprovalRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE approval_requests SET updated_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// ApplyDecision records one approver's decision and advances the request, all
// in one transaction. Two optimistic guards serialize racing approvers:
//
//  1. the step update requires decision = 'pending' — a second decision on the
//     same step updates zero rows and reports DecisionStepTaken;
//  2. the request update requires the status the engine read — a concurrent
//     transition updates zero rows, rolls everything back, and reports
//     DecisionRequestStale.
func (r *ApprovalRepository) ApplyDecision(ctx context.Context, u DecisionUpdate) (DecisionResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	stepQuery := `
		UPDATE approval_steps
		SET decision = $3, decided_by = $4, decided_at = $5, note = $6
		WHERE request_id = $1 AND level = $2 AND decision = 'pending'
	`
	res, err := tx.ExecContext(ctx, stepQuery, u.RequestID, u.Level, u.Decision, u.DecidedBy, now, u.Note)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return DecisionStepTaken, nil
	}

	reqQuery := `
		UPDATE approval_requests
		SET status = $3, current_level = $4, updated_at = $5
	`
	args := []interface{}{u.RequestID, u.ExpectedStatus, u.NextStatus, u.NextLevel, now}
	argn := 6
	if u.HasConflict != nil {
		reqQuery += fmt.Sprintf(", has_conflict = $%d", argn)
		args = append(args, *u.HasConflict)
		argn++
	}
	if u.Terminal {
		reqQuery += fmt.Sprintf(", decided_at = $%d", argn)
		args = append(args, now)
		argn++
	}
	reqQuery += ` WHERE id = $1 AND status = $2`

	res, err = tx.ExecContext(ctx, reqQuery, args...)
	if err != nil {
		return 0, err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return DecisionRequestStale, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return DecisionApplied, nil
}

// ============================================================================
// Steps
// ============================================================================

// GetSteps returns a request's steps in level order with decider names joined
func (r *ApprovalRepository) GetSteps(ctx context.Context, requestID string) ([]*models.ApprovalStep, error) {
	query := `
		SELECT s.id, s.request_id, s.level, s.approver_role, s.decision,
		       s.decided_by, s.decided_at, s.note, s.created_at,
		       COALESCE(u.name, '') as decided_by_name
		FROM approval_steps s
		LEFT JOIN users u ON s.decided_by = u.id
		WHERE s.request_id = $1
		ORDER BY s.level
	`

	rows, err := r.db.QueryxContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]*models.ApprovalStep, 0)
	for rows.Next() {
		s := &models.ApprovalStep{}
		if err := rows.Scan(&s.ID, &s.RequestID, &s.Level, &s.ApproverRole, &s.Decision,
			&s.DecidedBy, &s.DecidedAt, &s.Note, &s.CreatedAt, &s.DecidedByName); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}

	return steps, rows.Err()
}

// ============================================================================
// Helpers
// ============================================================================

func scanRequests(rows *sqlx.Rows) ([]*models.ApprovalRequest, error) {
	requests := make([]*models.ApprovalRequest, 0)
	for rows.Next() {
		req := &models.ApprovalRequest{}
		if err := rows.Scan(
			&req.ID, &req.RequesterID, &req.ScopeType, &req.ScopeID, &req.StartDate, &req.EndDate,
			&req.Status, &req.CurrentLevel, &req.MaxLevel, &req.HasConflict, &req.Reason,
			&req.SubmittedAt, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
