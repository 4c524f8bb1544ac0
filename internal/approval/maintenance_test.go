package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/konshedo/planivo/internal/db/models"
)

// ---------------------------------------------------------------------------
// RecoverSubmitted
// ---------------------------------------------------------------------------

func TestRecoverSubmitted_ActivatesAndNotifies(t *testing.T) {
	fx := newFixture()
	req := fx.mustCreate(t)

	// Simulate a crash between MarkSubmitted and Activate.
	fx.store.activateFails = true
	fx.mustSubmit(t, req.ID)
	fx.store.activateFails = false

	stuck := fx.store.requests[req.ID]
	if stuck.Status != models.StatusSubmitted {
		t.Fatalf("setup: status = %s, want submitted", stuck.Status)
	}
	fx.notifier.sent = nil

	if err := fx.engine.RecoverSubmitted(context.Background(), stuck); err != nil {
		t.Fatalf("RecoverSubmitted: %v", err)
	}

	if got := fx.store.requests[req.ID].Status; got != models.StatusLevel1Pending {
		t.Errorf("status = %s, want level_1_pending", got)
	}
	if len(fx.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(fx.notifier.sent))
	}
	n := fx.notifier.sent[0]
	if n.UserID != "dana" || n.Type != "approval_pending" {
		t.Errorf("notification = %s/%s, want dana/approval_pending", n.UserID, n.Type)
	}
}

func TestRecoverSubmitted_NotSubmitted(t *testing.T) {
	fx := newFixture()
	req := fx.mustCreate(t)

	err := fx.engine.RecoverSubmitted(context.Background(), fx.store.requests[req.ID])
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestRecoverSubmitted_AlreadyActivated(t *testing.T) {
	fx := newFixture()
	req := fx.mustCreate(t)

	fx.store.activateFails = true
	fx.mustSubmit(t, req.ID)
	fx.store.activateFails = false

	// Another instance wins the race before our Activate runs.
	stale := *fx.store.requests[req.ID]
	if _, err := fx.store.Activate(context.Background(), req.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	fx.notifier.sent = nil

	if err := fx.engine.RecoverSubmitted(context.Background(), &stale); err != nil {
		t.Fatalf("RecoverSubmitted: %v", err)
	}
	if len(fx.notifier.sent) != 0 {
		t.Errorf("notifications = %d, want 0 when activation was lost", len(fx.notifier.sent))
	}
}

// ---------------------------------------------------------------------------
// RemindPending
// ---------------------------------------------------------------------------

func TestRemindPending_NotifiesCurrentLevel(t *testing.T) {
	fx := newFixture()
	req := fx.mustCreate(t)
	fx.mustSubmit(t, req.ID)
	fx.mustDecide(t, req.ID, 1, models.DecisionApproved, "dana")
	fx.notifier.sent = nil

	// Pending at level 2 now; the reminder must go to the facility supervisor.
	if err := fx.engine.RemindPending(context.Background(), fx.store.requests[req.ID]); err != nil {
		t.Fatalf("RemindPending: %v", err)
	}

	if len(fx.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(fx.notifier.sent))
	}
	n := fx.notifier.sent[0]
	if n.UserID != "frank" || n.Type != "approval_reminder" {
		t.Errorf("notification = %s/%s, want frank/approval_reminder", n.UserID, n.Type)
	}
}

func TestRemindPending_NotPending(t *testing.T) {
	fx := newFixture()
	req := fx.mustCreate(t)

	err := fx.engine.RemindPending(context.Background(), fx.store.requests[req.ID])
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestRemindPending_ApproverGone(t *testing.T) {
	fx := newFixture()
	req := fx.mustCreate(t)
	fx.mustSubmit(t, req.ID)

	// The department head leaves after submission.
	delete(fx.roles.holders, "department_head/department/dep-1")
	fx.notifier.sent = nil

	err := fx.engine.RemindPending(context.Background(), fx.store.requests[req.ID])
	if !errors.Is(err, ErrNoApproverConfigured) {
		t.Errorf("err = %v, want ErrNoApproverConfigured", err)
	}
	if len(fx.notifier.sent) != 0 {
		t.Errorf("notifications = %d, want 0", len(fx.notifier.sent))
	}
}
