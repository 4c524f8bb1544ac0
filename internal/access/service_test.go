package access

import (
	"context"
	"errors"
	"testing"

	"github.com/konshedo/planivo/internal/db/models"
)

type fakeMatrixStore struct {
	caps  map[string][]*models.UserModuleCapability
	err   error
	calls int
}

func (f *fakeMatrixStore) GetUserModules(ctx context.Context, userID string) ([]*models.UserModuleCapability, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.caps[userID], nil
}

func grant(key string, view, edit, del, admin bool) *models.UserModuleCapability {
	return &models.UserModuleCapability{
		ModuleID:   "mod-" + key,
		ModuleKey:  key,
		ModuleName: key,
		CanView:    view,
		CanEdit:    edit,
		CanDelete:  del,
		CanAdmin:   admin,
	}
}

// ---------------------------------------------------------------------------
// LoadAccess
// ---------------------------------------------------------------------------

func TestLoadAccess_PointerIdempotent(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {grant("scheduling", true, true, false, false)},
	}}
	svc := NewService(store)

	first, err := svc.LoadAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.LoadAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("repeated LoadAccess must return the same matrix pointer")
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}
}

func TestLoadAccess_EmptyMatrix(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{}}
	svc := NewService(store)

	m, err := svc.LoadAccess(context.Background(), "user-none")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("a user with no grants still gets an (empty) matrix")
	}
	if len(m.Modules()) != 0 {
		t.Errorf("modules = %d, want 0", len(m.Modules()))
	}
	if m.HasAccess("payroll") {
		t.Error("empty matrix must deny access")
	}
}

func TestLoadAccess_StoreError(t *testing.T) {
	store := &fakeMatrixStore{err: errors.New("db down")}
	svc := NewService(store)

	if _, err := svc.LoadAccess(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if svc.Matrix("user-1") != nil {
		t.Error("a failed load must not cache anything")
	}
}

// ---------------------------------------------------------------------------
// Predicates
// ---------------------------------------------------------------------------

func TestMatrix_Predicates(t *testing.T) {
	m := newCapabilityMatrix("user-1", []*models.UserModuleCapability{
		grant("scheduling", true, true, false, false),
		grant("absences", true, false, false, false),
		grant("admin_panel", true, true, true, true),
	})

	tests := []struct {
		key                          string
		view, edit, del, admin, want bool
	}{
		{"scheduling", true, true, false, false, true},
		{"absences", true, false, false, false, true},
		{"admin_panel", true, true, true, true, true},
	}
	for _, tt := range tests {
		if got := m.HasAccess(tt.key); got != tt.view {
			t.Errorf("HasAccess(%s) = %v, want %v", tt.key, got, tt.view)
		}
		if got := m.CanEdit(tt.key); got != tt.edit {
			t.Errorf("CanEdit(%s) = %v, want %v", tt.key, got, tt.edit)
		}
		if got := m.CanDelete(tt.key); got != tt.del {
			t.Errorf("CanDelete(%s) = %v, want %v", tt.key, got, tt.del)
		}
		if got := m.CanAdmin(tt.key); got != tt.admin {
			t.Errorf("CanAdmin(%s) = %v, want %v", tt.key, got, tt.admin)
		}
	}
}

func TestMatrix_UnknownModuleFailsClosed(t *testing.T) {
	m := newCapabilityMatrix("user-1", []*models.UserModuleCapability{
		grant("scheduling", true, true, false, false),
	})

	if m.HasAccess("payroll") || m.CanEdit("payroll") || m.CanDelete("payroll") || m.CanAdmin("payroll") {
		t.Error("a module absent from the matrix must deny every capability")
	}
}

func TestMatrix_NilReceiverFailsClosed(t *testing.T) {
	var m *CapabilityMatrix

	if m.HasAccess("scheduling") || m.CanEdit("scheduling") || m.CanDelete("scheduling") || m.CanAdmin("scheduling") {
		t.Error("nil matrix must deny every capability")
	}
	if m.UserID() != "" {
		t.Error("nil matrix UserID must be empty")
	}
	if m.Modules() != nil {
		t.Error("nil matrix Modules must be nil")
	}
}

func TestService_PredicatesForUnloadedUser(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{}}
	svc := NewService(store)

	if svc.HasAccess("user-ghost", "payroll") || svc.CanAdmin("user-ghost", "payroll") {
		t.Error("predicates for a user with no loaded matrix must be false")
	}
	if store.calls != 0 {
		t.Error("predicates must not trigger a load")
	}
}

func TestService_PredicatesDelegate(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {grant("payroll", true, false, false, false)},
	}}
	svc := NewService(store)

	if _, err := svc.LoadAccess(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.HasAccess("user-1", "payroll") {
		t.Error("HasAccess = false, want true")
	}
	if svc.CanEdit("user-1", "payroll") {
		t.Error("CanEdit = true, want false")
	}
}

// ---------------------------------------------------------------------------
// Monotonicity
// ---------------------------------------------------------------------------

func TestMonotonicityViolations(t *testing.T) {
	caps := []*models.UserModuleCapability{
		grant("scheduling", true, true, false, false),
		grant("payroll", false, false, false, true),
		grant("reports", false, true, false, false),
	}

	got := monotonicityViolations(caps)
	if len(got) != 2 {
		t.Fatalf("violations = %v, want 2 entries", got)
	}
	if got[0] != "payroll" || got[1] != "reports" {
		t.Errorf("violations = %v, want [payroll reports]", got)
	}
}

func TestLoadAccess_MonotonicityViolationKept(t *testing.T) {
	// A violating grant is logged, never repaired: the stored flags stay
	// readable exactly as persisted.
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {grant("payroll", false, false, false, true)},
	}}
	svc := NewService(store)

	m, err := svc.LoadAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.HasAccess("payroll") {
		t.Error("HasAccess = true, want false (can_view is unset)")
	}
	if !m.CanAdmin("payroll") {
		t.Error("CanAdmin = false, want true (flag kept as stored)")
	}
}

// ---------------------------------------------------------------------------
// Invalidation
// ---------------------------------------------------------------------------

func TestService_InvalidateForcesReload(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {grant("scheduling", true, false, false, false)},
	}}
	svc := NewService(store)

	first, err := svc.LoadAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Invalidate("user-1")
	second, err := svc.LoadAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("invalidation must produce a fresh matrix")
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2", store.calls)
	}
}

func TestService_Reload(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {grant("scheduling", true, false, false, false)},
	}}
	svc := NewService(store)

	first, err := svc.LoadAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.caps["user-1"] = append(store.caps["user-1"], grant("absences", true, false, false, false))
	second, err := svc.Reload(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("Reload must replace the cached matrix")
	}
	if len(second.Modules()) != 2 {
		t.Errorf("modules = %d, want 2 after reload", len(second.Modules()))
	}
}

func TestService_InvalidateAll(t *testing.T) {
	store := &fakeMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {grant("scheduling", true, false, false, false)},
		"user-2": {grant("absences", true, false, false, false)},
	}}
	svc := NewService(store)

	for _, u := range []string{"user-1", "user-2"} {
		if _, err := svc.LoadAccess(context.Background(), u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	svc.InvalidateAll()
	if svc.Matrix("user-1") != nil || svc.Matrix("user-2") != nil {
		t.Error("InvalidateAll must drop every cached matrix")
	}
}
