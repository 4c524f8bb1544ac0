// Package models - role_assignment.go defines the RoleKind enum and the
// RoleAssignment model binding a user to a role at a point in the org hierarchy.
package models

import "time"

// RoleKind is the fixed set of roles a user can hold. A user may hold any
// number of assignments across different roles and scopes; authorization is
// always the union over all of them.
type RoleKind string

const (
	RoleSuperAdmin          RoleKind = "super_admin"
	RoleGeneralAdmin        RoleKind = "general_admin"
	RoleWorkplaceSupervisor RoleKind = "workplace_supervisor"
	RoleFacilitySupervisor  RoleKind = "facility_supervisor"
	RoleDepartmentHead      RoleKind = "department_head"
	RoleStaff               RoleKind = "staff"
)

// AllRoleKinds lists every valid role kind, in privilege order.
var AllRoleKinds = []RoleKind{
	RoleSuperAdmin,
	RoleGeneralAdmin,
	RoleWorkplaceSupervisor,
	RoleFacilitySupervisor,
	RoleDepartmentHead,
	RoleStaff,
}

// Valid reports whether the role kind is one of the known roles.
func (r RoleKind) Valid() bool {
	for _, k := range AllRoleKinds {
		if r == k {
			return true
		}
	}
	return false
}

// IsGlobal reports whether the role carries organisation-wide authority with
// no scope pointer (super_admin, general_admin).
func (r RoleKind) IsGlobal() bool {
	return r == RoleSuperAdmin || r == RoleGeneralAdmin
}

// ScopeLevel returns the hierarchy level of the role's authoritative scope
// pointer. ok is false for global roles, which have no scope.
func (r RoleKind) ScopeLevel() (ScopeType, bool) {
	switch r {
	case RoleWorkplaceSupervisor:
		return ScopeWorkspace, true
	case RoleFacilitySupervisor:
		return ScopeFacility, true
	case RoleDepartmentHead, RoleStaff:
		return ScopeDepartment, true
	}
	return "", false
}

// Manages returns the hierarchy level the role has managerial authority over.
// ok is false for roles without managerial scope: staff are placed at a
// department but manage nothing, and global roles derive authority from the
// capability matrix rather than a scope pointer.
func (r RoleKind) Manages() (ScopeType, bool) {
	switch r {
	case RoleWorkplaceSupervisor:
		return ScopeWorkspace, true
	case RoleFacilitySupervisor:
		return ScopeFacility, true
	case RoleDepartmentHead:
		return ScopeDepartment, true
	}
	return "", false
}

// RoleAssignment binds a user to a role at a point in the org hierarchy.
// IDs are ULIDs, so ordering by id is ordering by creation.
//
// Exactly one scope pointer is authoritative, determined by the role kind
// (see RoleKind.ScopeLevel). The remaining pointers may be populated for
// display context but are never consulted for authorization.
type RoleAssignment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Role         RoleKind  `json:"role"`
	WorkspaceID  *string   `json:"workspace_id,omitempty"`
	FacilityID   *string   `json:"facility_id,omitempty"`
	DepartmentID *string   `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	// Joined fields (not stored in user_roles table)
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// ScopePointer returns the assignment's pointer for the given hierarchy level,
// or nil when that pointer is not populated.
func (a *RoleAssignment) ScopePointer(t ScopeType) *string {
	switch t {
	case ScopeWorkspace:
		return a.WorkspaceID
	case ScopeFacility:
		return a.FacilityID
	case ScopeDepartment:
		return a.DepartmentID
	}
	return nil
}
