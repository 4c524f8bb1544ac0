// approval_reminder.go implements the ApprovalReminder background job. It does
// two things on each tick: re-activates requests stuck in submitted (the
// activation step after a committed submit can be lost to a crash), and
// re-notifies approvers of requests that have sat pending longer than the
// configured age. State lives entirely in the approval tables, so the job is
// safe to run on every instance of a multi-node deployment.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/konshedo/planivo/internal/approval"
	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// ApprovalReminder periodically recovers stuck submissions and nudges
// approvers sitting on stale pending requests.
type ApprovalReminder struct {
	engine     *approval.Engine
	repo       *repositories.ApprovalRepository
	interval   time.Duration
	pendingAge time.Duration
	stopChan   chan struct{}
}

// NewApprovalReminder creates a new ApprovalReminder from the reminder
// section of the approvals config.
func NewApprovalReminder(engine *approval.Engine, repo *repositories.ApprovalRepository, cfg *config.ApprovalReminderConfig) *ApprovalReminder {
	hours := cfg.CheckIntervalHours
	if hours <= 0 {
		hours = 6
	}
	age := cfg.PendingAgeHours
	if age <= 0 {
		age = 48
	}
	return &ApprovalReminder{
		engine:     engine,
		repo:       repo,
		interval:   time.Duration(hours) * time.Hour,
		pendingAge: time.Duration(age) * time.Hour,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the background reminder loop. It runs an initial sweep
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (j *ApprovalReminder) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("approval reminder started",
		"check_interval", j.interval, "pending_age", j.pendingAge)

	j.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			j.runSweep(ctx)
		case <-j.stopChan:
			slog.Info("approval reminder stopped")
			return
		case <-ctx.Done():
			slog.Info("approval reminder context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (j *ApprovalReminder) Stop() {
	close(j.stopChan)
}

func (j *ApprovalReminder) runSweep(ctx context.Context) {
	j.recoverStuckSubmissions(ctx)
	j.remindStalePending(ctx)
}

// recoverStuckSubmissions finds requests whose submit committed but whose
// activation never ran, and completes the activation. A short grace period
// keeps the sweep from racing a submit that is still in flight.
func (j *ApprovalReminder) recoverStuckSubmissions(ctx context.Context) {
	cutoff := time.Now().Add(-5 * time.Minute)

	stuck, err := j.repo.ListStuckSubmitted(ctx, cutoff)
	if err != nil {
		slog.Error("approval reminder: listing stuck submissions failed", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	slog.Warn("approval reminder: found stuck submissions", "count", len(stuck))
	for _, req := range stuck {
		if err := j.engine.RecoverSubmitted(ctx, req); err != nil {
			slog.Error("approval reminder: recovery failed",
				"request_id", req.ID, "error", err)
		}
	}
}

// remindStalePending re-notifies the approvers of requests pending longer
// than the configured age. The engine touches the request's updated_at as
// part of the decision flow, so a reminded request only comes back after
// another full pendingAge without movement.
func (j *ApprovalReminder) remindStalePending(ctx context.Context) {
	cutoff := time.Now().Add(-j.pendingAge)

	stale, err := j.repo.ListStalePending(ctx, cutoff)
	if err != nil {
		slog.Error("approval reminder: listing stale pending requests failed", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	slog.Info("approval reminder: reminding approvers", "count", len(stale))
	for _, req := range stale {
		if err := j.engine.RemindPending(ctx, req); err != nil {
			slog.Error("approval reminder: reminder failed",
				"request_id", req.ID, "error", err)
			continue
		}
		if err := j.repo.Touch(ctx, req.ID); err != nil {
			slog.Error("approval reminder: touching request failed",
				"request_id", req.ID, "error", err)
		}
	}
}
