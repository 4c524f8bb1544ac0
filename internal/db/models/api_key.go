// Package models - api_key.go defines the APIKey model for programmatic access.
package models

import "time"

// APIKey represents an API key for authentication
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`       // Friendly name (e.g., "Rostering Integration")
	KeyHash    string     `json:"-"`          // Bcrypt hash of the full key, never serialized
	KeyPrefix  string     `json:"key_prefix"` // First chars for display (e.g., "plv_abc123")
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	// Joined fields (not stored in api_keys table)
	UserName *string `json:"user_name,omitempty"`
}
