// maintenance.go holds the recovery operations driven by the reminder job:
// re-activating requests whose submit committed but whose activation crashed,
// and nudging approvers sitting on stale pending requests. Both operate on a
// single request; the job owns the scanning and scheduling.
package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/konshedo/planivo/internal/db/models"
)

// RecoverSubmitted activates a request stuck in submitted (the submit
// transaction committed but the activation step did not) and notifies the
// level-1 approvers, completing the work Submit started.
func (e *Engine) RecoverSubmitted(ctx context.Context, req *models.ApprovalRequest) error {
	if req.Status != models.StatusSubmitted {
		return fmt.Errorf("%w: request is %s, not submitted", ErrInvalidTransition, req.Status)
	}

	approvers, err := e.levelApprovers(ctx, req, 1)
	if err != nil {
		return err
	}

	activated, err := e.store.Activate(ctx, req.ID)
	if err != nil {
		e.record("activate", "error")
		return fmt.Errorf("activating request: %w", err)
	}
	if !activated {
		// Someone else (another instance, or a cancel) got here first.
		return nil
	}

	e.record("activate", "ok")
	slog.Info("recovered stuck submitted request", "request_id", req.ID)
	e.notifyUsers(ctx, approvers, req, "approval_pending",
		"Approval needed",
		fmt.Sprintf("An absence request for %s to %s awaits your decision.",
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")))

	e.InvalidateView(req.ID)
	return nil
}

// RemindPending re-notifies the approvers of the level a request is currently
// pending at. No state changes; the request stays pending.
func (e *Engine) RemindPending(ctx context.Context, req *models.ApprovalRequest) error {
	level, ok := req.Status.PendingLevel()
	if !ok {
		return fmt.Errorf("%w: request is %s, not pending", ErrInvalidTransition, req.Status)
	}

	approvers, err := e.levelApprovers(ctx, req, level)
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		// Approver left since submission; surface it rather than silently
		// reminding nobody.
		return fmt.Errorf("%w: %s %s has no level-%d approver",
			ErrNoApproverConfigured, req.ScopeType, req.ScopeID, level)
	}

	e.notifyUsers(ctx, approvers, req, "approval_reminder",
		"Approval still pending",
		fmt.Sprintf("An absence request for %s to %s has been waiting for your decision.",
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")))
	return nil
}
