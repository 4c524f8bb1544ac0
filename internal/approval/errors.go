package approval

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the approval engine. Handlers map these to
// HTTP status codes; everything else is treated as an internal error.
var (
	// ErrNotFound is returned when the request id does not exist.
	ErrNotFound = errors.New("approval request not found")

	// ErrInvalidTransition is returned when an operation is not legal from
	// the request's current status, including decisions at the wrong level.
	ErrInvalidTransition = errors.New("invalid approval transition")

	// ErrRequestAlreadyTerminal wraps ErrInvalidTransition for operations on
	// requests that reached fully_approved, rejected, or cancelled.
	ErrRequestAlreadyTerminal = fmt.Errorf("%w: request already in a terminal state", ErrInvalidTransition)

	// ErrDuplicateDecision wraps ErrInvalidTransition for a second decision
	// on a step that was already decided.
	ErrDuplicateDecision = fmt.Errorf("%w: step already decided", ErrInvalidTransition)

	// ErrNoApproverConfigured is returned by Submit when nobody holds the
	// level-1 approver role for the request's scope.
	ErrNoApproverConfigured = errors.New("no approver configured for scope")

	// ErrNotEligible is returned when the deciding user does not hold the
	// step's approver role over the request's org unit.
	ErrNotEligible = errors.New("user is not an eligible approver for this step")

	// ErrNotRequester is returned when someone other than the requester
	// attempts a requester-only operation.
	ErrNotRequester = errors.New("only the requester may perform this action")

	// ErrInvalidDateRange is returned by Create for an empty or inverted
	// date range.
	ErrInvalidDateRange = errors.New("end date must be after start date")

	// ErrUnknownScope is returned when the request targets an org unit that
	// does not exist.
	ErrUnknownScope = errors.New("org unit does not exist")
)
