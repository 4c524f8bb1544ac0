// Package models defines the database model types for Planivo.
// Each type corresponds to a database table and serializes directly in API responses.
// Models are pure data types — business logic belongs in the access and approval
// packages, query logic belongs in the repositories layer.
package models

import "time"

// ScopeType identifies a level of the organisational hierarchy:
// workspace > facility > department.
type ScopeType string

const (
	ScopeWorkspace  ScopeType = "workspace"
	ScopeFacility   ScopeType = "facility"
	ScopeDepartment ScopeType = "department"
)

// Valid reports whether the scope type is one of the known hierarchy levels.
func (s ScopeType) Valid() bool {
	switch s {
	case ScopeWorkspace, ScopeFacility, ScopeDepartment:
		return true
	}
	return false
}

// Workspace is the root of the organisational hierarchy.
// MinCoverage = 0 means "no override; use the configured default".
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MinCoverage int       `json:"min_coverage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Facility is a physical site within a workspace.
type Facility struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	MinCoverage int       `json:"min_coverage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// Joined fields (not stored in facilities table)
	WorkspaceName string `json:"workspace_name,omitempty"`
}

// Department is a team within a facility. Staff are placed in departments.
type Department struct {
	ID          string    `json:"id"`
	FacilityID  string    `json:"facility_id"`
	Name        string    `json:"name"`
	MinCoverage int       `json:"min_coverage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// Joined fields (not stored in departments table)
	FacilityName  string `json:"facility_name,omitempty"`
	WorkspaceID   string `json:"workspace_id,omitempty"`
	WorkspaceName string `json:"workspace_name,omitempty"`
}

// ScopeChain is the resolved ancestry of an org unit: the workspace is always
// present; facility and department are set when the chain starts at or below
// that level.
type ScopeChain struct {
	WorkspaceID  string  `json:"workspace_id"`
	FacilityID   *string `json:"facility_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
}

// IDFor returns the chain element for the given hierarchy level.
// ok is false when the chain does not extend down to that level.
func (c ScopeChain) IDFor(t ScopeType) (string, bool) {
	switch t {
	case ScopeWorkspace:
		return c.WorkspaceID, c.WorkspaceID != ""
	case ScopeFacility:
		if c.FacilityID != nil {
			return *c.FacilityID, true
		}
	case ScopeDepartment:
		if c.DepartmentID != nil {
			return *c.DepartmentID, true
		}
	}
	return "", false
}
