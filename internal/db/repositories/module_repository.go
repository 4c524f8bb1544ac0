// module_repository.go implements ModuleRepository, providing database queries for the
// dashboard module catalog, per-role capability grants, and the per-user capability
// aggregate that backs the access resolver.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
)

// ModuleRepository handles database operations for modules and grants
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ============================================================================
// Module catalog
// ============================================================================

// CreateModule inserts a new module catalog entry
func (r *ModuleRepository) CreateModule(ctx context.Context, m *models.Module) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt

	query := `
		INSERT INTO modules (id, module_key, module_name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ModuleKey, m.ModuleName, m.Description, m.CreatedAt, m.UpdatedAt)
	return err
}

// GetModule retrieves a module by ID
func (r *ModuleRepository) GetModule(ctx context.Context, id string) (*models.Module, error) {
	query := `SELECT id, module_key, module_name, description, created_at, updated_at
			  FROM modules WHERE id = $1`

	m := &models.Module{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&m.ID, &m.ModuleKey, &m.ModuleName, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetModuleByKey retrieves a module by its stable key
func (r *ModuleRepository) GetModuleByKey(ctx context.Context, key string) (*models.Module, error) {
	query := `SELECT id, module_key, module_name, description, created_at, updated_at
			  FROM modules WHERE module_key = $1`

	m := &models.Module{}
	err := r.db.QueryRowxContext(ctx, query, key).Scan(
		&m.ID, &m.ModuleKey, &m.ModuleName, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListModules returns the whole module catalog ordered by key
func (r *ModuleRepository) ListModules(ctx context.Context) ([]*models.Module, error) {
	query := `SELECT id, module_key, module_name, description, created_at, updated_at
			  FROM modules ORDER BY module_key`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := make([]*models.Module, 0)
	for rows.Next() {
		m := &models.Module{}
		if err := rows.Scan(&m.ID, &m.ModuleKey, &m.ModuleName, &m.Description, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	return modules, rows.Err()
}

// UpdateModule updates a module's display name and description.
// The module_key is stable and never changes after creation.
func (r *ModuleRepository) UpdateModule(ctx context.Context, m *models.Module) error {
	query := `UPDATE modules SET module_name = $2, description = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.ModuleName, m.Description, time.Now())
	return err
}

// DeleteModule deletes a module (cascades to its grants)
func (r *ModuleRepository) DeleteModule(ctx context.Context, id string) error {
	query := `DELETE FROM modules WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ============================================================================
// Capability grants
// ============================================================================

// GetGrant retrieves the grant one role holds on one module
func (r *ModuleRepository) GetGrant(ctx context.Context, role models.RoleKind, moduleID string) (*models.ModuleGrant, error) {
	query := `SELECT id, role, module_id, can_view, can_edit, can_delete, can_admin, created_at, updated_at
			  FROM module_grants WHERE role = $1 AND module_id = $2`

	g := &models.ModuleGrant{}
	err := r.db.QueryRowxContext(ctx, query, role, moduleID).Scan(
		&g.ID, &g.Role, &g.ModuleID, &g.CanView, &g.CanEdit, &g.CanDelete, &g.CanAdmin, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListGrantsByRole returns all grants one role holds, with module context joined
func (r *ModuleRepository) ListGrantsByRole(ctx context.Context, role models.RoleKind) ([]*models.ModuleGrant, error) {
	query := `SELECT g.id, g.role, g.module_id, g.can_view, g.can_edit, g.can_delete, g.can_admin,
			  g.created_at, g.updated_at,
			  COALESCE(m.module_key, '') as module_key,
			  COALESCE(m.module_name, '') as module_name
			  FROM module_grants g
			  LEFT JOIN modules m ON g.module_id = m.id
			  WHERE g.role = $1
			  ORDER BY m.module_key`

	rows, err := r.db.QueryxContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := make([]*models.ModuleGrant, 0)
	for rows.Next() {
		g := &models.ModuleGrant{}
		if err := rows.Scan(&g.ID, &g.Role, &g.ModuleID, &g.CanView, &g.CanEdit, &g.CanDelete, &g.CanAdmin,
			&g.CreatedAt, &g.UpdatedAt, &g.ModuleKey, &g.ModuleName); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// ListGrantsByModule returns every role's grant on one module, in privilege order
func (r *ModuleRepository) ListGrantsByModule(ctx context.Context, moduleID string) ([]*models.ModuleGrant, error) {
	query := `SELECT g.id, g.role, g.module_id, g.can_view, g.can_edit, g.can_delete, g.can_admin,
			  g.created_at, g.updated_at,
			  COALESCE(m.module_key, '') as module_key,
			  COALESCE(m.module_name, '') as module_name
			  FROM module_grants g
			  LEFT JOIN modules m ON g.module_id = m.id
			  WHERE g.module_id = $1
			  ORDER BY g.role`

	rows, err := r.db.QueryxContext(ctx, query, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := make([]*models.ModuleGrant, 0)
	for rows.Next() {
		g := &models.ModuleGrant{}
		if err := rows.Scan(&g.ID, &g.Role, &g.ModuleID, &g.CanView, &g.CanEdit, &g.CanDelete, &g.CanAdmin,
			&g.CreatedAt, &g.UpdatedAt, &g.ModuleKey, &g.ModuleName); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// UpsertGrant creates or replaces the grant a role holds on a module
func (r *ModuleRepository) UpsertGrant(ctx context.Context, g *models.ModuleGrant) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	now := time.Now()

	query := `
		INSERT INTO module_grants (id, role, module_id, can_view, can_edit, can_delete, can_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (role, module_id) DO UPDATE
		SET can_view = EXCLUDED.can_view,
		    can_edit = EXCLUDED.can_edit,
		    can_delete = EXCLUDED.can_delete,
		    can_admin = EXCLUDED.can_admin,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.Role, g.ModuleID, g.CanView, g.CanEdit, g.CanDelete, g.CanAdmin, now, now)
	return err
}

// DeleteGrant removes the grant a role holds on a module
func (r *ModuleRepository) DeleteGrant(ctx context.Context, role models.RoleKind, moduleID string) error {
	query := `DELETE FROM module_grants WHERE role = $1 AND module_id = $2`
	_, err := r.db.ExecContext(ctx, query, role, moduleID)
	return err
}

// ============================================================================
// Per-user capability aggregate
// ============================================================================

// GetUserModules computes the user's capability matrix in a single query:
// the BOOL_OR union of grants across every role the user holds. Modules with
// no grant for any of the user's roles are simply absent from the result.
func (r *ModuleRepository) GetUserModules(ctx context.Context, userID string) ([]*models.UserModuleCapability, error) {
	query := `
		SELECT m.id, m.module_key, m.module_name,
		       BOOL_OR(g.can_view) as can_view,
		       BOOL_OR(g.can_edit) as can_edit,
		       BOOL_OR(g.can_delete) as can_delete,
		       BOOL_OR(g.can_admin) as can_admin
		FROM user_roles ur
		JOIN module_grants g ON g.role = ur.role
		JOIN modules m ON m.id = g.module_id
		WHERE ur.user_id = $1
		GROUP BY m.id, m.module_key, m.module_name
		ORDER BY m.module_key
	`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	caps := make([]*models.UserModuleCapability, 0)
	for rows.Next() {
		c := &models.UserModuleCapability{}
		if err := rows.Scan(&c.ModuleID, &c.ModuleKey, &c.ModuleName,
			&c.CanView, &c.CanEdit, &c.CanDelete, &c.CanAdmin); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}

	return caps, rows.Err()
}
