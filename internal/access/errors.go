// errors.go defines the typed errors the access package surfaces to callers.
package access

import (
	"errors"
	"fmt"

	"github.com/konshedo/planivo/internal/db/models"
)

// ErrNoAssignment is returned when a user holds no assignment for the
// requested role class. Match with errors.Is.
var ErrNoAssignment = errors.New("no role assignment")

// ScopeResolutionError reports a role assignment whose authoritative scope
// pointer is NULL. This is a data integrity problem: the assignment exists
// but cannot answer "which unit does this user manage". It is surfaced to
// the caller, never papered over with a default scope.
type ScopeResolutionError struct {
	AssignmentID string
	UserID       string
	Role         models.RoleKind
	Missing      models.ScopeType
}

func (e *ScopeResolutionError) Error() string {
	return fmt.Sprintf("role assignment %s (user %s, role %s) has no %s pointer",
		e.AssignmentID, e.UserID, e.Role, e.Missing)
}
