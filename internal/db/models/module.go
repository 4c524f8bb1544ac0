// Package models - module.go defines the dashboard module catalog entry,
// the per-role capability grant, and the per-user derived capability row.
package models

import "time"

// Module represents an entry in the dashboard module catalog
// (task_management, vacation_planning, messaging, ...).
type Module struct {
	ID          string    `json:"id"`
	ModuleKey   string    `json:"module_key"`
	ModuleName  string    `json:"module_name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ModuleGrant is the administratively-configured capability set a role holds
// on one module. At most one grant exists per (role, module) pair.
type ModuleGrant struct {
	ID        string    `json:"id"`
	Role      RoleKind  `json:"role"`
	ModuleID  string    `json:"module_id"`
	CanView   bool      `json:"can_view"`
	CanEdit   bool      `json:"can_edit"`
	CanDelete bool      `json:"can_delete"`
	CanAdmin  bool      `json:"can_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Joined fields (not stored in module_grants table)
	ModuleKey  string `json:"module_key,omitempty"`
	ModuleName string `json:"module_name,omitempty"`
}

// UserModuleCapability is one row of a user's derived capability matrix:
// the union (BOOL_OR) of grants across every role the user holds. Derived at
// read time, never stored.
type UserModuleCapability struct {
	ModuleID   string `json:"module_id"`
	ModuleKey  string `json:"module_key"`
	ModuleName string `json:"module_name"`
	CanView    bool   `json:"can_view"`
	CanEdit    bool   `json:"can_edit"`
	CanDelete  bool   `json:"can_delete"`
	CanAdmin   bool   `json:"can_admin"`
}
