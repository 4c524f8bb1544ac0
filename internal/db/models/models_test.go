package models

import (
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// RoleKind
// ---------------------------------------------------------------------------

func TestRoleKind_Valid(t *testing.T) {
	for _, k := range AllRoleKinds {
		if !k.Valid() {
			t.Errorf("RoleKind(%q).Valid() = false, want true", k)
		}
	}
	if RoleKind("manager").Valid() {
		t.Error(`RoleKind("manager").Valid() = true, want false`)
	}
	if RoleKind("").Valid() {
		t.Error(`RoleKind("").Valid() = true, want false`)
	}
}

func TestRoleKind_ScopeLevel(t *testing.T) {
	cases := []struct {
		role  RoleKind
		want  ScopeType
		hasIt bool
	}{
		{RoleWorkplaceSupervisor, ScopeWorkspace, true},
		{RoleFacilitySupervisor, ScopeFacility, true},
		{RoleDepartmentHead, ScopeDepartment, true},
		{RoleStaff, ScopeDepartment, true},
		{RoleSuperAdmin, "", false},
		{RoleGeneralAdmin, "", false},
	}

	for _, tc := range cases {
		got, ok := tc.role.ScopeLevel()
		if ok != tc.hasIt || got != tc.want {
			t.Errorf("ScopeLevel(%q) = (%q, %v), want (%q, %v)", tc.role, got, ok, tc.want, tc.hasIt)
		}
	}
}

func TestRoleKind_IsGlobal(t *testing.T) {
	if !RoleSuperAdmin.IsGlobal() || !RoleGeneralAdmin.IsGlobal() {
		t.Error("admin roles should be global")
	}
	for _, k := range []RoleKind{RoleWorkplaceSupervisor, RoleFacilitySupervisor, RoleDepartmentHead, RoleStaff} {
		if k.IsGlobal() {
			t.Errorf("RoleKind(%q).IsGlobal() = true, want false", k)
		}
	}
}

func TestRoleKind_Manages(t *testing.T) {
	cases := []struct {
		role  RoleKind
		want  ScopeType
		hasIt bool
	}{
		{RoleWorkplaceSupervisor, ScopeWorkspace, true},
		{RoleFacilitySupervisor, ScopeFacility, true},
		{RoleDepartmentHead, ScopeDepartment, true},
		{RoleStaff, "", false},
		{RoleSuperAdmin, "", false},
		{RoleGeneralAdmin, "", false},
	}

	for _, tc := range cases {
		got, ok := tc.role.Manages()
		if ok != tc.hasIt || got != tc.want {
			t.Errorf("Manages(%q) = (%q, %v), want (%q, %v)", tc.role, got, ok, tc.want, tc.hasIt)
		}
	}
}

// ---------------------------------------------------------------------------
// ScopeType / ScopeChain
// ---------------------------------------------------------------------------

func TestScopeType_Valid(t *testing.T) {
	for _, s := range []ScopeType{ScopeWorkspace, ScopeFacility, ScopeDepartment} {
		if !s.Valid() {
			t.Errorf("ScopeType(%q).Valid() = false, want true", s)
		}
	}
	if ScopeType("team").Valid() {
		t.Error(`ScopeType("team").Valid() = true, want false`)
	}
}

func TestScopeChain_IDFor(t *testing.T) {
	fac := "fac-1"
	dep := "dep-1"

	full := ScopeChain{WorkspaceID: "ws-1", FacilityID: &fac, DepartmentID: &dep}
	if id, ok := full.IDFor(ScopeWorkspace); !ok || id != "ws-1" {
		t.Errorf("IDFor(workspace) = (%q, %v), want (ws-1, true)", id, ok)
	}
	if id, ok := full.IDFor(ScopeFacility); !ok || id != "fac-1" {
		t.Errorf("IDFor(facility) = (%q, %v), want (fac-1, true)", id, ok)
	}
	if id, ok := full.IDFor(ScopeDepartment); !ok || id != "dep-1" {
		t.Errorf("IDFor(department) = (%q, %v), want (dep-1, true)", id, ok)
	}

	wsOnly := ScopeChain{WorkspaceID: "ws-1"}
	if _, ok := wsOnly.IDFor(ScopeFacility); ok {
		t.Error("IDFor(facility) on workspace-only chain should report ok=false")
	}
	if _, ok := wsOnly.IDFor(ScopeDepartment); ok {
		t.Error("IDFor(department) on workspace-only chain should report ok=false")
	}
}

// ---------------------------------------------------------------------------
// RoleAssignment.ScopePointer
// ---------------------------------------------------------------------------

func TestRoleAssignment_ScopePointer(t *testing.T) {
	ws := "ws-1"
	dep := "dep-1"
	a := &RoleAssignment{WorkspaceID: &ws, DepartmentID: &dep}

	if p := a.ScopePointer(ScopeWorkspace); p == nil || *p != "ws-1" {
		t.Errorf("ScopePointer(workspace) = %v, want ws-1", p)
	}
	if p := a.ScopePointer(ScopeFacility); p != nil {
		t.Errorf("ScopePointer(facility) = %v, want nil", p)
	}
	if p := a.ScopePointer(ScopeDepartment); p == nil || *p != "dep-1" {
		t.Errorf("ScopePointer(department) = %v, want dep-1", p)
	}
	if p := a.ScopePointer(ScopeType("bogus")); p != nil {
		t.Errorf("ScopePointer(bogus) = %v, want nil", p)
	}
}

// ---------------------------------------------------------------------------
// ApprovalStatus
// ---------------------------------------------------------------------------

func TestApprovalStatus_IsTerminal(t *testing.T) {
	terminal := []ApprovalStatus{StatusFullyApproved, StatusRejected, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
	}
	live := []ApprovalStatus{StatusDraft, StatusSubmitted, StatusLevel1Pending, StatusLevel2Pending, StatusLevel3Pending}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("IsTerminal(%q) = true, want false", s)
		}
	}
}

func TestApprovalStatus_PendingLevel(t *testing.T) {
	cases := []struct {
		status ApprovalStatus
		level  int
		ok     bool
	}{
		{StatusLevel1Pending, 1, true},
		{StatusLevel2Pending, 2, true},
		{StatusLevel3Pending, 3, true},
		{StatusDraft, 0, false},
		{StatusSubmitted, 0, false},
		{StatusFullyApproved, 0, false},
		{StatusRejected, 0, false},
		{StatusCancelled, 0, false},
	}

	for _, tc := range cases {
		level, ok := tc.status.PendingLevel()
		if level != tc.level || ok != tc.ok {
			t.Errorf("PendingLevel(%q) = (%d, %v), want (%d, %v)", tc.status, level, ok, tc.level, tc.ok)
		}
	}
}

func TestPendingStatusForLevel(t *testing.T) {
	for level, want := range map[int]ApprovalStatus{
		1: StatusLevel1Pending,
		2: StatusLevel2Pending,
		3: StatusLevel3Pending,
	} {
		got, err := PendingStatusForLevel(level)
		if err != nil || got != want {
			t.Errorf("PendingStatusForLevel(%d) = (%q, %v), want (%q, nil)", level, got, err, want)
		}
	}

	for _, level := range []int{0, 4, -1} {
		if _, err := PendingStatusForLevel(level); err == nil {
			t.Errorf("PendingStatusForLevel(%d) should error", level)
		}
	}
}

// ---------------------------------------------------------------------------
// ApprovalRequest.Overlaps — half-open interval semantics
// ---------------------------------------------------------------------------

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestApprovalRequest_Overlaps(t *testing.T) {
	// Request covers [Mar 10, Mar 15).
	r := &ApprovalRequest{StartDate: date(2026, 3, 10), EndDate: date(2026, 3, 15)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical range", date(2026, 3, 10), date(2026, 3, 15), true},
		{"contained within", date(2026, 3, 11), date(2026, 3, 12), true},
		{"overlaps start", date(2026, 3, 8), date(2026, 3, 11), true},
		{"overlaps end", date(2026, 3, 14), date(2026, 3, 20), true},
		{"spans entirely", date(2026, 3, 1), date(2026, 3, 31), true},
		{"touches at start boundary", date(2026, 3, 5), date(2026, 3, 10), false},
		{"touches at end boundary", date(2026, 3, 15), date(2026, 3, 20), false},
		{"fully before", date(2026, 3, 1), date(2026, 3, 5), false},
		{"fully after", date(2026, 3, 20), date(2026, 3, 25), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Overlaps(tc.start, tc.end); got != tc.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v",
					tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestApprovalRequest_OverlapsIsSymmetric(t *testing.T) {
	a := &ApprovalRequest{StartDate: date(2026, 3, 10), EndDate: date(2026, 3, 15)}

	ranges := []struct {
		name       string
		start, end time.Time
	}{
		{"identical range", date(2026, 3, 10), date(2026, 3, 15)},
		{"contained within", date(2026, 3, 11), date(2026, 3, 12)},
		{"overlaps start", date(2026, 3, 8), date(2026, 3, 11)},
		{"overlaps end", date(2026, 3, 14), date(2026, 3, 20)},
		{"spans entirely", date(2026, 3, 1), date(2026, 3, 31)},
		{"touches at start boundary", date(2026, 3, 5), date(2026, 3, 10)},
		{"touches at end boundary", date(2026, 3, 15), date(2026, 3, 20)},
		{"fully before", date(2026, 3, 1), date(2026, 3, 5)},
		{"fully after", date(2026, 3, 20), date(2026, 3, 25)},
	}

	for _, tc := range ranges {
		t.Run(tc.name, func(t *testing.T) {
			b := &ApprovalRequest{StartDate: tc.start, EndDate: tc.end}
			ab := a.Overlaps(b.StartDate, b.EndDate)
			ba := b.Overlaps(a.StartDate, a.EndDate)
			if ab != ba {
				t.Errorf("a.Overlaps(b) = %v but b.Overlaps(a) = %v for [%s, %s)",
					ab, ba, tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"))
			}
		})
	}
}
