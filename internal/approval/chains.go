package approval

import (
	"fmt"

	"github.com/konshedo/planivo/internal/db/models"
)

// Approver chains per request scope, level 1 first. A request walks every
// level of its chain before reaching fully_approved, so a department request
// needs sign-off from the department head, the facility supervisor, and
// finally the workplace supervisor.
var chains = map[models.ScopeType][]models.RoleKind{
	models.ScopeDepartment: {
		models.RoleDepartmentHead,
		models.RoleFacilitySupervisor,
		models.RoleWorkplaceSupervisor,
	},
	models.ScopeFacility: {
		models.RoleFacilitySupervisor,
		models.RoleWorkplaceSupervisor,
	},
	models.ScopeWorkspace: {
		models.RoleWorkplaceSupervisor,
	},
}

// Chain returns the approver roles for a request scope, level 1 first.
func Chain(scopeType models.ScopeType) ([]models.RoleKind, error) {
	chain, ok := chains[scopeType]
	if !ok {
		return nil, fmt.Errorf("no approver chain for scope type %q", scopeType)
	}
	return chain, nil
}

// RoleForLevel returns the approver role deciding the given level (1-based)
// of a request with the given scope.
func RoleForLevel(scopeType models.ScopeType, level int) (models.RoleKind, error) {
	chain, err := Chain(scopeType)
	if err != nil {
		return "", err
	}
	if level < 1 || level > len(chain) {
		return "", fmt.Errorf("scope type %q has no approval level %d", scopeType, level)
	}
	return chain[level-1], nil
}
