// Package models - notification.go defines the Notification model backing the
// in-app notification centre.
package models

import "time"

// Notification represents an in-app notification delivered to one user.
// RelatedID links back to the triggering record (e.g. an approval request id).
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	RelatedID *string    `json:"related_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
