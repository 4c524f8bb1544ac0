// Package notify delivers the notifications produced by the approval
// workflow. The store dispatcher persists in-app notifications; the mailer
// additionally sends email when SMTP is configured. Dispatch failures are
// reported to the caller but, by contract with the approval engine, never
// fail the transition that produced them.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
	"github.com/konshedo/planivo/internal/telemetry"
)

// Dispatcher delivers one notification over one channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification) error
}

// StoreDispatcher writes notifications to the notifications table, the
// always-on in-app channel.
type StoreDispatcher struct {
	repo *repositories.NotificationRepository
}

// NewStoreDispatcher creates a store-backed dispatcher.
func NewStoreDispatcher(repo *repositories.NotificationRepository) *StoreDispatcher {
	return &StoreDispatcher{repo: repo}
}

// Dispatch persists the notification.
func (d *StoreDispatcher) Dispatch(ctx context.Context, n *models.Notification) error {
	if err := d.repo.Create(ctx, n); err != nil {
		telemetry.NotificationsSentTotal.WithLabelValues("store", "error").Inc()
		return fmt.Errorf("storing notification: %w", err)
	}
	telemetry.NotificationsSentTotal.WithLabelValues("store", "ok").Inc()
	return nil
}

// Composite fans one notification out to several dispatchers. Every
// dispatcher is attempted regardless of earlier failures; the joined error
// reports them all.
type Composite struct {
	dispatchers []Dispatcher
}

// NewComposite creates a dispatcher that delivers through all of the given
// dispatchers.
func NewComposite(dispatchers ...Dispatcher) *Composite {
	return &Composite{dispatchers: dispatchers}
}

// Dispatch delivers through every channel, collecting errors.
func (c *Composite) Dispatch(ctx context.Context, n *models.Notification) error {
	var errs []error
	for _, d := range c.dispatchers {
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
