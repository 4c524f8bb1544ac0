// notification_repository.go implements NotificationRepository, providing
// database queries for in-app notifications.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (id, user_id, title, message, type, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.RelatedID, n.CreatedAt)
	return err
}

// ListByUser returns a user's notifications newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, related_id, read_at, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryxContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
			&n.RelatedID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(&count)
	return count, err
}

// MarkRead stamps a single notification as read. The user filter keeps one
// user from acknowledging another's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	query := `UPDATE notifications SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id, userID, time.Now())
	return err
}

// MarkAllRead stamps all of a user's unread notifications as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, userID, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteOld removes read notifications older than the cutoff
func (r *NotificationRepository) DeleteOld(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE read_at IS NOT NULL AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
