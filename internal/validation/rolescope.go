// rolescope.go validates role assignment requests: each role kind pairs with
// exactly one level of the org hierarchy, and global roles carry no scope at
// all. Rejecting mismatched pointers at the API boundary keeps the resolver's
// "authoritative pointer" invariant intact.
package validation

import (
	"fmt"

	"github.com/konshedo/planivo/internal/db/models"
)

// ValidateRoleScope checks that the scope pointers supplied for a role
// assignment match the role's authoritative level: global roles must have no
// pointers, scoped roles must have exactly the pointer for their level.
func ValidateRoleScope(role models.RoleKind, workspaceID, facilityID, departmentID *string) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role: %s", role)
	}

	set := func(p *string) bool { return p != nil && *p != "" }

	if role.IsGlobal() {
		if set(workspaceID) || set(facilityID) || set(departmentID) {
			return fmt.Errorf("role %s is global and takes no scope", role)
		}
		return nil
	}

	level, _ := role.ScopeLevel()
	want := map[models.ScopeType]*string{
		models.ScopeWorkspace:  workspaceID,
		models.ScopeFacility:   facilityID,
		models.ScopeDepartment: departmentID,
	}
	for t, p := range want {
		if t == level {
			if !set(p) {
				return fmt.Errorf("role %s requires a %s scope", role, t)
			}
		} else if set(p) {
			return fmt.Errorf("role %s takes a %s scope, not %s", role, level, t)
		}
	}
	return nil
}
