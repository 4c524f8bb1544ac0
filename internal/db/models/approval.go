// Package models - approval.go defines the approval request state machine types:
// the request, its per-level steps, and the status/decision enums.
package models

import (
	"fmt"
	"time"
)

// ApprovalStatus represents the lifecycle state of an approval request.
//
// The linear flow is draft → submitted → level_1_pending → ... →
// fully_approved. A reject at any pending level moves the request to
// rejected; the requester may cancel from draft or submitted. The three
// terminal states (fully_approved, rejected, cancelled) accept no further
// transitions.
type ApprovalStatus string

const (
	StatusDraft         ApprovalStatus = "draft"
	StatusSubmitted     ApprovalStatus = "submitted"
	StatusLevel1Pending ApprovalStatus = "level_1_pending"
	StatusLevel2Pending ApprovalStatus = "level_2_pending"
	StatusLevel3Pending ApprovalStatus = "level_3_pending"
	StatusFullyApproved ApprovalStatus = "fully_approved"
	StatusRejected      ApprovalStatus = "rejected"
	StatusCancelled     ApprovalStatus = "cancelled"
)

// IsTerminal reports whether the status accepts no further transitions.
func (s ApprovalStatus) IsTerminal() bool {
	switch s {
	case StatusFullyApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// PendingLevel returns the level k for a level_k_pending status.
// ok is false for every other status.
func (s ApprovalStatus) PendingLevel() (int, bool) {
	switch s {
	case StatusLevel1Pending:
		return 1, true
	case StatusLevel2Pending:
		return 2, true
	case StatusLevel3Pending:
		return 3, true
	}
	return 0, false
}

// PendingStatusForLevel returns the level_k_pending status for levels 1
// through 3, the deepest chain the org hierarchy can produce.
func PendingStatusForLevel(level int) (ApprovalStatus, error) {
	switch level {
	case 1:
		return StatusLevel1Pending, nil
	case 2:
		return StatusLevel2Pending, nil
	case 3:
		return StatusLevel3Pending, nil
	}
	return "", fmt.Errorf("no pending status for level %d", level)
}

// Decision is the state of one approval step.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ApprovalRequest represents an absence request travelling through the
// approval chain. Date ranges are half-open: [StartDate, EndDate).
// IDs are ULIDs, so ordering by id is ordering by creation.
type ApprovalRequest struct {
	ID           string         `json:"id"`
	RequesterID  string         `json:"requester_id"`
	ScopeType    ScopeType      `json:"scope_type"`
	ScopeID      string         `json:"scope_id"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	Status       ApprovalStatus `json:"status"`
	CurrentLevel int            `json:"current_level"`
	MaxLevel     int            `json:"max_level"`
	HasConflict  bool           `json:"has_conflict"`
	Reason       *string        `json:"reason,omitempty"`
	SubmittedAt  *time.Time     `json:"submitted_at,omitempty"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	// Joined fields (not stored in approval_requests table)
	RequesterName  string `json:"requester_name,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
}

// Overlaps reports whether this request's date range intersects [start, end)
// under half-open interval semantics: touching ranges do not overlap.
func (r *ApprovalRequest) Overlaps(start, end time.Time) bool {
	return r.StartDate.Before(end) && start.Before(r.EndDate)
}

// ApprovalStep is one level of a request's approval chain, materialised when
// the request is submitted. Exactly one step exists per (request, level).
type ApprovalStep struct {
	ID           string     `json:"id"`
	RequestID    string     `json:"request_id"`
	Level        int        `json:"level"`
	ApproverRole RoleKind   `json:"approver_role"`
	Decision     Decision   `json:"decision"`
	DecidedBy    *string    `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	Note         *string    `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	// Joined fields (not stored in approval_steps table)
	DecidedByName string `json:"decided_by_name,omitempty"`
}
