// api_key_expiry_notifier.go implements the APIKeyExpiryNotifier background
// job, which periodically scans for API keys approaching their expiry date and
// notifies the owning user through the notification dispatcher (in-app row,
// plus email when SMTP is configured). Sent state is persisted in the database
// (expiry_notified_at column) so each key is warned about exactly once even
// across server restarts.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
	"github.com/konshedo/planivo/internal/notify"
)

// APIKeyExpiryNotifier periodically warns users whose API keys are about to expire.
type APIKeyExpiryNotifier struct {
	apiKeyRepo  *repositories.APIKeyRepository
	dispatcher  notify.Dispatcher
	interval    time.Duration
	warningDays int
	stopChan    chan struct{}
}

// NewAPIKeyExpiryNotifier creates a new APIKeyExpiryNotifier.
func NewAPIKeyExpiryNotifier(
	apiKeyRepo *repositories.APIKeyRepository,
	dispatcher notify.Dispatcher,
	cfg *config.NotificationsConfig,
) *APIKeyExpiryNotifier {
	hours := cfg.APIKeyExpiryCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	days := cfg.APIKeyExpiryWarningDays
	if days <= 0 {
		days = 7
	}
	return &APIKeyExpiryNotifier{
		apiKeyRepo:  apiKeyRepo,
		dispatcher:  dispatcher,
		interval:    time.Duration(hours) * time.Hour,
		warningDays: days,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background expiry-notification loop.
// It runs an initial check immediately, then repeats on the configured
// interval. The loop exits when ctx is cancelled or Stop() is called.
func (n *APIKeyExpiryNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	slog.Info("API key expiry notifier started",
		"check_interval", n.interval, "warning_days", n.warningDays)

	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			slog.Info("API key expiry notifier stopped")
			return
		case <-ctx.Done():
			slog.Info("API key expiry notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *APIKeyExpiryNotifier) Stop() {
	close(n.stopChan)
}

// runCheck queries for expiring keys and dispatches one warning per key.
func (n *APIKeyExpiryNotifier) runCheck(ctx context.Context) {
	window := time.Duration(n.warningDays) * 24 * time.Hour

	keys, err := n.apiKeyRepo.ListExpiring(ctx, window)
	if err != nil {
		slog.Error("API key expiry notifier: listing expiring keys failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	slog.Info("API key expiry notifier: keys approaching expiry", "count", len(keys))

	for _, key := range keys {
		daysLeft := int(time.Until(*key.ExpiresAt).Hours()/24) + 1
		if daysLeft < 0 {
			daysLeft = 0
		}

		keyID := key.ID
		notification := &models.Notification{
			UserID: key.UserID,
			Type:   "api_key_expiring",
			Title:  fmt.Sprintf("API key %q expires in %d day(s)", key.Name, daysLeft),
			Message: fmt.Sprintf(
				"Your API key %q (%s...) expires on %s. Create a replacement key before then to avoid losing access.",
				key.Name, key.KeyPrefix, key.ExpiresAt.UTC().Format("2006-01-02")),
			RelatedID: &keyID,
		}

		if err := n.dispatcher.Dispatch(ctx, notification); err != nil {
			slog.Error("API key expiry notifier: dispatch failed",
				"key_id", key.ID, "user_id", key.UserID, "error", err)
			continue
		}

		if err := n.apiKeyRepo.MarkExpiryNotified(ctx, key.ID); err != nil {
			slog.Error("API key expiry notifier: marking key notified failed",
				"key_id", key.ID, "error", err)
		}
	}
}
