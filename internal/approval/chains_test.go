package approval

import (
	"testing"

	"github.com/konshedo/planivo/internal/db/models"
)

func TestChain(t *testing.T) {
	tests := []struct {
		scope models.ScopeType
		want  []models.RoleKind
	}{
		{models.ScopeDepartment, []models.RoleKind{
			models.RoleDepartmentHead,
			models.RoleFacilitySupervisor,
			models.RoleWorkplaceSupervisor,
		}},
		{models.ScopeFacility, []models.RoleKind{
			models.RoleFacilitySupervisor,
			models.RoleWorkplaceSupervisor,
		}},
		{models.ScopeWorkspace, []models.RoleKind{
			models.RoleWorkplaceSupervisor,
		}},
	}

	for _, tt := range tests {
		chain, err := Chain(tt.scope)
		if err != nil {
			t.Fatalf("Chain(%s): unexpected error: %v", tt.scope, err)
		}
		if len(chain) != len(tt.want) {
			t.Fatalf("Chain(%s) = %v, want %v", tt.scope, chain, tt.want)
		}
		for i := range chain {
			if chain[i] != tt.want[i] {
				t.Errorf("Chain(%s)[%d] = %s, want %s", tt.scope, i, chain[i], tt.want[i])
			}
		}
	}
}

func TestChain_UnknownScope(t *testing.T) {
	if _, err := Chain(models.ScopeType("region")); err == nil {
		t.Error("expected error for unknown scope type")
	}
}

func TestRoleForLevel(t *testing.T) {
	role, err := RoleForLevel(models.ScopeDepartment, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != models.RoleFacilitySupervisor {
		t.Errorf("role = %s, want facility_supervisor", role)
	}

	if _, err := RoleForLevel(models.ScopeWorkspace, 2); err == nil {
		t.Error("expected error: workspace chain has a single level")
	}
	if _, err := RoleForLevel(models.ScopeDepartment, 0); err == nil {
		t.Error("expected error for level 0")
	}
}
