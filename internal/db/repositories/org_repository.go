// org_repository.go implements OrgRepository, providing database queries for the
// workspace/facility/department hierarchy: unit CRUD, ancestry chain resolution,
// staff headcounts, and minimum-coverage lookups.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
)

// OrgRepository handles database operations for the org hierarchy
type OrgRepository struct {
	db *sqlx.DB
}

func errUnknownScope(t models.ScopeType) error {
	return fmt.Errorf("unknown scope type: %s", t)
}

// NewOrgRepository creates a new OrgRepository
func NewOrgRepository(db *sqlx.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// ============================================================================
// Workspaces
// ============================================================================

// CreateWorkspace creates a new workspace
func (r *OrgRepository) CreateWorkspace(ctx context.Context, w *models.Workspace) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt

	query := `INSERT INTO workspaces (id, name, min_coverage, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, w.ID, w.Name, w.MinCoverage, w.CreatedAt, w.UpdatedAt)
	return err
}

// GetWorkspace retrieves a workspace by ID
func (r *OrgRepository) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	query := `SELECT id, name, min_coverage, created_at, updated_at FROM workspaces WHERE id = $1`

	w := &models.Workspace{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(&w.ID, &w.Name, &w.MinCoverage, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkspaces returns all workspaces
func (r *OrgRepository) ListWorkspaces(ctx context.Context) ([]*models.Workspace, error) {
	query := `SELECT id, name, min_coverage, created_at, updated_at FROM workspaces ORDER BY name`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workspaces := make([]*models.Workspace, 0)
	for rows.Next() {
		w := &models.Workspace{}
		if err := rows.Scan(&w.ID, &w.Name, &w.MinCoverage, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}

	return workspaces, rows.Err()
}

// UpdateWorkspace updates a workspace's name and coverage override
func (r *OrgRepository) UpdateWorkspace(ctx context.Context, w *models.Workspace) error {
	query := `UPDATE workspaces SET name = $2, min_coverage = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, w.ID, w.Name, w.MinCoverage, time.Now())
	return err
}

// DeleteWorkspace deletes a workspace (cascades to facilities and departments)
func (r *OrgRepository) DeleteWorkspace(ctx context.Context, id string) error {
	query := `DELETE FROM workspaces WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ============================================================================
// Facilities
// ============================================================================

// CreateFacility creates a new facility
func (r *OrgRepository) CreateFacility(ctx context.Context, f *models.Facility) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt

	query := `INSERT INTO facilities (id, workspace_id, name, min_coverage, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, f.ID, f.WorkspaceID, f.Name, f.MinCoverage, f.CreatedAt, f.UpdatedAt)
	return err
}

// GetFacility retrieves a facility by ID
func (r *OrgRepository) GetFacility(ctx context.Context, id string) (*models.Facility, error) {
	query := `SELECT f.id, f.workspace_id, f.name, f.min_coverage, f.created_at, f.updated_at,
			  COALESCE(w.name, '') as workspace_name
			  FROM facilities f
			  LEFT JOIN workspaces w ON f.workspace_id = w.id
			  WHERE f.id = $1`

	f := &models.Facility{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&f.ID, &f.WorkspaceID, &f.Name, &f.MinCoverage, &f.CreatedAt, &f.UpdatedAt, &f.WorkspaceName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFacilities returns facilities, optionally filtered to one workspace
func (r *OrgRepository) ListFacilities(ctx context.Context, workspaceID *string) ([]*models.Facility, error) {
	query := `SELECT f.id, f.workspace_id, f.name, f.min_coverage, f.created_at, f.updated_at,
			  COALESCE(w.name, '') as workspace_name
			  FROM facilities f
			  LEFT JOIN workspaces w ON f.workspace_id = w.id`

	var rows *sqlx.Rows
	var err error
	if workspaceID != nil {
		query += ` WHERE f.workspace_id = $1 ORDER BY f.name`
		rows, err = r.db.QueryxContext(ctx, query, *workspaceID)
	} else {
		query += ` ORDER BY f.name`
		rows, err = r.db.QueryxContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facilities := make([]*models.Facility, 0)
	for rows.Next() {
		f := &models.Facility{}
		if err := rows.Scan(&f.ID, &f.WorkspaceID, &f.Name, &f.MinCoverage, &f.CreatedAt, &f.UpdatedAt, &f.WorkspaceName); err != nil {
			return nil, err
		}
		facilities = append(facilities, f)
	}

	return facilities, rows.Err()
}

// UpdateFacility updates a facility's name and coverage override
func (r *OrgRepository) UpdateFacility(ctx context.Context, f *models.Facility) error {
	query := `UPDATE facilities SET name = $2, min_coverage = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.MinCoverage, time.Now())
	return err
}

// DeleteFacility deletes a facility (cascades to departments)
func (r *OrgRepository) DeleteFacility(ctx context.Context, id string) error {
	query := `DELETE FROM facilities WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ============================================================================
// Departments
// ============================================================================

// CreateDepartment creates a new department
func (r *OrgRepository) CreateDepartment(ctx context.Context, d *models.Department) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt

	query := `INSERT INTO departments (id, facility_id, name, min_coverage, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, d.ID, d.FacilityID, d.Name, d.MinCoverage, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetDepartment retrieves a department by ID, with its facility and workspace context
func (r *OrgRepository) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	query := `SELECT d.id, d.facility_id, d.name, d.min_coverage, d.created_at, d.updated_at,
			  COALESCE(f.name, '') as facility_name,
			  COALESCE(f.workspace_id::text, '') as workspace_id,
			  COALESCE(w.name, '') as workspace_name
			  FROM departments d
			  LEFT JOIN facilities f ON d.facility_id = f.id
			  LEFT JOIN workspaces w ON f.workspace_id = w.id
			  WHERE d.id = $1`

	d := &models.Department{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&d.ID, &d.FacilityID, &d.Name, &d.MinCoverage, &d.CreatedAt, &d.UpdatedAt,
		&d.FacilityName, &d.WorkspaceID, &d.WorkspaceName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDepartments returns departments, optionally filtered to one facility
func (r *OrgRepository) ListDepartments(ctx context.Context, facilityID *string) ([]*models.Department, error) {
	query := `SELECT d.id, d.facility_id, d.name, d.min_coverage, d.created_at, d.updated_at,
			  COALESCE(f.name, '') as facility_name
			  FROM departments d
			  LEFT JOIN facilities f ON d.facility_id = f.id`

	var rows *sqlx.Rows
	var err error
	if facilityID != nil {
		query += ` WHERE d.facility_id = $1 ORDER BY d.name`
		rows, err = r.db.QueryxContext(ctx, query, *facilityID)
	} else {
		query += ` ORDER BY d.name`
		rows, err = r.db.QueryxContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := make([]*models.Department, 0)
	for rows.Next() {
		d := &models.Department{}
		if err := rows.Scan(&d.ID, &d.FacilityID, &d.Name, &d.MinCoverage, &d.CreatedAt, &d.UpdatedAt, &d.FacilityName); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}

	return departments, rows.Err()
}

// UpdateDepartment updates a department's name and coverage override
func (r *OrgRepository) UpdateDepartment(ctx context.Context, d *models.Department) error {
	query := `UPDATE departments SET name = $2, min_coverage = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.Name, d.MinCoverage, time.Now())
	return err
}

// DeleteDepartment deletes a department
func (r *OrgRepository) DeleteDepartment(ctx context.Context, id string) error {
	query := `DELETE FROM departments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ============================================================================
// Chain resolution and coverage
// ============================================================================

// ResolveChain resolves the ancestry of an org unit: a department yields
// (workspace, facility, department), a facility yields (workspace, facility),
// a workspace yields itself. Returns (nil, nil) when the unit does not exist.
func (r *OrgRepository) ResolveChain(ctx context.Context, scopeType models.ScopeType, scopeID string) (*models.ScopeChain, error) {
	switch scopeType {
	case models.ScopeWorkspace:
		query := `SELECT id FROM workspaces WHERE id = $1`
		var wsID string
		err := r.db.QueryRowxContext(ctx, query, scopeID).Scan(&wsID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &models.ScopeChain{WorkspaceID: wsID}, nil

	case models.ScopeFacility:
		query := `SELECT f.workspace_id, f.id FROM facilities f WHERE f.id = $1`
		var wsID, facID string
		err := r.db.QueryRowxContext(ctx, query, scopeID).Scan(&wsID, &facID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &models.ScopeChain{WorkspaceID: wsID, FacilityID: &facID}, nil

	case models.ScopeDepartment:
		query := `SELECT f.workspace_id, d.facility_id, d.id
				  FROM departments d
				  JOIN facilities f ON d.facility_id = f.id
				  WHERE d.id = $1`
		var wsID, facID, depID string
		err := r.db.QueryRowxContext(ctx, query, scopeID).Scan(&wsID, &facID, &depID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &models.ScopeChain{WorkspaceID: wsID, FacilityID: &facID, DepartmentID: &depID}, nil
	}

	return nil, errUnknownScope(scopeType)
}

// MinCoverage returns the unit's min_coverage override. Zero means the caller
// should fall back to the configured default. Returns sql.ErrNoRows wrapped
// as a plain error when the unit does not exist.
func (r *OrgRepository) MinCoverage(ctx context.Context, scopeType models.ScopeType, scopeID string) (int, error) {
	var query string
	switch scopeType {
	case models.ScopeWorkspace:
		query = `SELECT min_coverage FROM workspaces WHERE id = $1`
	case models.ScopeFacility:
		query = `SELECT min_coverage FROM facilities WHERE id = $1`
	case models.ScopeDepartment:
		query = `SELECT min_coverage FROM departments WHERE id = $1`
	default:
		return 0, errUnknownScope(scopeType)
	}

	var coverage int
	err := r.db.QueryRowxContext(ctx, query, scopeID).Scan(&coverage)
	if err != nil {
		return 0, err
	}
	return coverage, nil
}

// CountStaff counts distinct users holding a staff assignment whose scope
// pointer for the unit's hierarchy level matches the unit. Staff assignments
// carry all three pointers of their placement, so counting by pointer works
// at every level.
func (r *OrgRepository) CountStaff(ctx context.Context, scopeType models.ScopeType, scopeID string) (int, error) {
	var column string
	switch scopeType {
	case models.ScopeWorkspace:
		column = "workspace_id"
	case models.ScopeFacility:
		column = "facility_id"
	case models.ScopeDepartment:
		column = "department_id"
	default:
		return 0, errUnknownScope(scopeType)
	}

	query := `SELECT COUNT(DISTINCT user_id) FROM user_roles WHERE role = 'staff' AND ` + column + ` = $1`

	var count int
	err := r.db.QueryRowxContext(ctx, query, scopeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
