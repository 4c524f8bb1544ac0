package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
)

var roleCols = []string{"id", "user_id", "role", "workspace_id", "facility_id", "department_id", "created_at"}

var roleJoinedCols = []string{"id", "user_id", "role", "workspace_id", "facility_id", "department_id",
	"created_at", "user_name", "user_email"}

func sampleAssignmentRow() *sqlmock.Rows {
	dep := "dep-1"
	fac := "fac-1"
	ws := "ws-1"
	return sqlmock.NewRows(roleCols).
		AddRow("01ARZ3NDEKTSV4RRFFQ69G5FAV", "user-1", "department_head", ws, fac, dep, time.Now())
}

func newRoleRepo(t *testing.T) (*RoleRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRoleRepository(sqlx.NewDb(db, "sqlmock")), mock
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateAssignment_Success(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnResult(sqlmock.NewResult(1, 1))

	dep := "dep-1"
	a := &models.RoleAssignment{UserID: "user-1", Role: models.RoleDepartmentHead, DepartmentID: &dep}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == "" {
		t.Error("expected ID to be set")
	}
	if len(a.ID) != 26 {
		t.Errorf("len(ID) = %d, want 26 (ULID)", len(a.ID))
	}
}

func TestCreateAssignment_DBError(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnError(errDB)

	a := &models.RoleAssignment{UserID: "user-1", Role: models.RoleStaff}
	if err := repo.Create(context.Background(), a); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestGetAssignmentByID_Found(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery("SELECT.*FROM user_roles.*WHERE id").
		WithArgs("01ARZ3NDEKTSV4RRFFQ69G5FAV").
		WillReturnRows(sampleAssignmentRow())

	a, err := repo.GetByID(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected assignment, got nil")
	}
	if a.Role != models.RoleDepartmentHead {
		t.Errorf("Role = %s, want department_head", a.Role)
	}
}

func TestGetAssignmentByID_NotFound(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery("SELECT.*FROM user_roles.*WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(roleCols))

	a, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("expected nil assignment for not found")
	}
}

// ---------------------------------------------------------------------------
// ListByUser / ListByUserAndRole
// ---------------------------------------------------------------------------

func TestListAssignmentsByUser_OrderedByID(t *testing.T) {
	repo, mock := newRoleRepo(t)
	dep1, dep2 := "dep-1", "dep-2"
	rows := sqlmock.NewRows(roleCols).
		AddRow("01ARZ3NDEKTSV4RRFFQ69G5FAV", "user-1", "department_head", "ws-1", "fac-1", dep1, time.Now()).
		AddRow("01BX5ZZKBKACTAV9WEVGEMMVRY", "user-1", "department_head", "ws-1", "fac-1", dep2, time.Now())
	mock.ExpectQuery("SELECT.*FROM user_roles.*WHERE user_id.*ORDER BY id").
		WithArgs("user-1").
		WillReturnRows(rows)

	assignments, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("len = %d, want 2", len(assignments))
	}
	if assignments[0].ID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("first ID = %s, want the lower ULID", assignments[0].ID)
	}
}

func TestListAssignmentsByUserAndRole_Success(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery("SELECT.*FROM user_roles.*WHERE user_id.*AND role.*ORDER BY id").
		WithArgs("user-1", "department_head").
		WillReturnRows(sampleAssignmentRow())

	assignments, err := repo.ListByUserAndRole(context.Background(), "user-1", models.RoleDepartmentHead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 1 {
		t.Errorf("len = %d, want 1", len(assignments))
	}
}

func TestListAssignmentsByUserAndRole_Empty(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery("SELECT.*FROM user_roles.*WHERE user_id.*AND role").
		WithArgs("user-1", "facility_supervisor").
		WillReturnRows(sqlmock.NewRows(roleCols))

	assignments, err := repo.ListByUserAndRole(context.Background(), "user-1", models.RoleFacilitySupervisor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("len = %d, want 0", len(assignments))
	}
}

// ---------------------------------------------------------------------------
// ListByScope
// ---------------------------------------------------------------------------

func TestListAssignmentsByScope_Success(t *testing.T) {
	repo, mock := newRoleRepo(t)
	dep := "dep-1"
	rows := sqlmock.NewRows(roleJoinedCols).
		AddRow("01ARZ3NDEKTSV4RRFFQ69G5FAV", "user-1", "department_head", "ws-1", "fac-1", dep,
			time.Now(), "Alice", "alice@example.com")
	mock.ExpectQuery("SELECT.*FROM user_roles ur.*WHERE ur.role.*department_id").
		WithArgs("department_head", "dep-1").
		WillReturnRows(rows)

	assignments, err := repo.ListByScope(context.Background(), models.RoleDepartmentHead, models.ScopeDepartment, "dep-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("len = %d, want 1", len(assignments))
	}
	if assignments[0].UserName != "Alice" {
		t.Errorf("UserName = %s, want Alice", assignments[0].UserName)
	}
}

func TestListAssignmentsByScope_UnknownScope(t *testing.T) {
	repo, _ := newRoleRepo(t)

	_, err := repo.ListByScope(context.Background(), models.RoleStaff, models.ScopeType("galaxy"), "x")
	if err == nil {
		t.Error("expected error for unknown scope type")
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDeleteAssignment_Success(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs("01ARZ3NDEKTSV4RRFFQ69G5FAV").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Delete(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteAssignment_DBError(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectExec("DELETE FROM user_roles").
		WillReturnError(errDB)

	if err := repo.Delete(context.Background(), "x"); err == nil {
		t.Error("expected error, got nil")
	}
}
