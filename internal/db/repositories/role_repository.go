// role_repository.go implements RoleRepository, providing database queries for role
// assignments: creation, removal, per-user listings in assignment-id order, and
// approver lookups by scope pointer.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/ids"
)

// RoleRepository handles role assignment database operations
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create creates a new role assignment. The id is a fresh ULID unless the
// caller supplied one, so assignment order follows creation order.
func (r *RoleRepository) Create(ctx context.Context, a *models.RoleAssignment) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.CreatedAt = time.Now()

	query := `
		INSERT INTO user_roles (id, user_id, role, workspace_id, facility_id, department_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Role,
		a.WorkspaceID,
		a.FacilityID,
		a.DepartmentID,
		a.CreatedAt,
	)

	return err
}

// GetByID retrieves a role assignment by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.RoleAssignment, error) {
	query := `
		SELECT id, user_id, role, workspace_id, facility_id, department_id, created_at
		FROM user_roles
		WHERE id = $1
	`

	a := &models.RoleAssignment{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Role, &a.WorkspaceID, &a.FacilityID, &a.DepartmentID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByUser returns all of a user's role assignments ordered by assignment id,
// which for ULID keys is creation order.
func (r *RoleRepository) ListByUser(ctx context.Context, userID string) ([]*models.RoleAssignment, error) {
	query := `
		SELECT id, user_id, role, workspace_id, facility_id, department_id, created_at
		FROM user_roles
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*models.RoleAssignment, 0)
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.WorkspaceID, &a.FacilityID, &a.DepartmentID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// ListByUserAndRole returns a user's assignments for one role kind, ordered by
// assignment id.
func (r *RoleRepository) ListByUserAndRole(ctx context.Context, userID string, role models.RoleKind) ([]*models.RoleAssignment, error) {
	query := `
		SELECT id, user_id, role, workspace_id, facility_id, department_id, created_at
		FROM user_roles
		WHERE user_id = $1 AND role = $2
		ORDER BY id
	`

	rows, err := r.db.QueryxContext(ctx, query, userID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*models.RoleAssignment, 0)
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.WorkspaceID, &a.FacilityID, &a.DepartmentID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// ListByScope returns assignments of one role kind whose authoritative scope
// pointer matches the given unit. Used to find the approvers responsible for
// a scope and the targets of approval notifications.
func (r *RoleRepository) ListByScope(ctx context.Context, role models.RoleKind, scopeType models.ScopeType, scopeID string) ([]*models.RoleAssignment, error) {
	var column string
	switch scopeType {
	case models.ScopeWorkspace:
		column = "workspace_id"
	case models.ScopeFacility:
		column = "facility_id"
	case models.ScopeDepartment:
		column = "department_id"
	default:
		return nil, errUnknownScope(scopeType)
	}

	query := `
		SELECT ur.id, ur.user_id, ur.role, ur.workspace_id, ur.facility_id, ur.department_id, ur.created_at,
		       COALESCE(u.name, '') as user_name, COALESCE(u.email, '') as user_email
		FROM user_roles ur
		LEFT JOIN users u ON ur.user_id = u.id
		WHERE ur.role = $1 AND ur.` + column + ` = $2
		ORDER BY ur.id
	`

	rows, err := r.db.QueryxContext(ctx, query, role, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*models.RoleAssignment, 0)
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.WorkspaceID, &a.FacilityID, &a.DepartmentID, &a.CreatedAt,
			&a.UserName, &a.UserEmail); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// ListByRole returns every assignment of one role kind, with user context joined
func (r *RoleRepository) ListByRole(ctx context.Context, role models.RoleKind) ([]*models.RoleAssignment, error) {
	query := `
		SELECT ur.id, ur.user_id, ur.role, ur.workspace_id, ur.facility_id, ur.department_id, ur.created_at,
		       COALESCE(u.name, '') as user_name, COALESCE(u.email, '') as user_email
		FROM user_roles ur
		LEFT JOIN users u ON ur.user_id = u.id
		WHERE ur.role = $1
		ORDER BY ur.id
	`

	rows, err := r.db.QueryxContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*models.RoleAssignment, 0)
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.WorkspaceID, &a.FacilityID, &a.DepartmentID, &a.CreatedAt,
			&a.UserName, &a.UserEmail); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// Delete removes a role assignment
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM user_roles WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
