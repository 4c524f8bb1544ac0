// api_key_repository.go implements APIKeyRepository, providing database queries for API key
// lookup by prefix, creation, expiry management, and last-used timestamp updates.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/db/models"
)

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sqlx.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sqlx.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a new API key. Only the bcrypt hash is persisted; the caller
// holds the plaintext and shows it to the user exactly once.
func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	apiKey.ID = uuid.New().String()
	apiKey.CreatedAt = time.Now()

	query := `
		INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		apiKey.ID, apiKey.UserID, apiKey.Name, apiKey.KeyHash, apiKey.KeyPrefix,
		apiKey.ExpiresAt, apiKey.LastUsedAt, apiKey.CreatedAt)
	return err
}

// GetByID retrieves an API key by ID
func (r *APIKeyRepository) GetByID(ctx context.Context, keyID string) (*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, key_hash, key_prefix, expires_at, last_used_at, created_at
		FROM api_keys
		WHERE id = $1
	`

	apiKey := &models.APIKey{}
	err := r.db.QueryRowxContext(ctx, query, keyID).Scan(
		&apiKey.ID, &apiKey.UserID, &apiKey.Name, &apiKey.KeyHash, &apiKey.KeyPrefix,
		&apiKey.ExpiresAt, &apiKey.LastUsedAt, &apiKey.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return apiKey, nil
}

// GetByPrefix retrieves API keys matching a prefix. Bcrypt hashes are not
// searchable, so authentication narrows candidates by prefix and compares
// each hash.
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, keyPrefix string) ([]*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, key_hash, key_prefix, expires_at, last_used_at, created_at
		FROM api_keys
		WHERE key_prefix = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryxContext(ctx, query, keyPrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apiKeys := make([]*models.APIKey, 0)
	for rows.Next() {
		apiKey := &models.APIKey{}
		if err := rows.Scan(
			&apiKey.ID, &apiKey.UserID, &apiKey.Name, &apiKey.KeyHash, &apiKey.KeyPrefix,
			&apiKey.ExpiresAt, &apiKey.LastUsedAt, &apiKey.CreatedAt); err != nil {
			return nil, err
		}
		apiKeys = append(apiKeys, apiKey)
	}

	return apiKeys, rows.Err()
}

// ListByUser retrieves all API keys for a user with the owner's name joined
func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]*models.APIKey, error) {
	query := `
		SELECT ak.id, ak.user_id, ak.name, ak.key_hash, ak.key_prefix,
		       ak.expires_at, ak.last_used_at, ak.created_at, u.name as user_name
		FROM api_keys ak
		LEFT JOIN users u ON ak.user_id = u.id
		WHERE ak.user_id = $1
		ORDER BY ak.created_at DESC
	`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apiKeys := make([]*models.APIKey, 0)
	for rows.Next() {
		apiKey := &models.APIKey{}
		if err := rows.Scan(
			&apiKey.ID, &apiKey.UserID, &apiKey.Name, &apiKey.KeyHash, &apiKey.KeyPrefix,
			&apiKey.ExpiresAt, &apiKey.LastUsedAt, &apiKey.CreatedAt, &apiKey.UserName); err != nil {
			return nil, err
		}
		apiKeys = append(apiKeys, apiKey)
	}

	return apiKeys, rows.Err()
}

// UpdateLastUsed updates the last_used_at timestamp for an API key
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID string) error {
	query := `
		UPDATE api_keys
		SET last_used_at = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, keyID, time.Now())
	return err
}

// Delete revokes an API key
func (r *APIKeyRepository) Delete(ctx context.Context, keyID string) error {
	query := `DELETE FROM api_keys WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, keyID)
	return err
}

// ListExpiring returns keys whose expiry falls within the warning window and
// whose owner has not been warned yet. Rows without an expiry never match.
func (r *APIKeyRepository) ListExpiring(ctx context.Context, within time.Duration) ([]*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, key_prefix, expires_at
		FROM api_keys
		WHERE expires_at IS NOT NULL
		  AND expires_at > NOW()
		  AND expires_at <= $1
		  AND expiry_notified_at IS NULL
		ORDER BY expires_at ASC
	`

	rows, err := r.db.QueryxContext(ctx, query, time.Now().Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key := &models.APIKey{}
		if err := rows.Scan(&key.ID, &key.UserID, &key.Name, &key.KeyPrefix, &key.ExpiresAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// MarkExpiryNotified records that the expiry warning for a key has been sent
func (r *APIKeyRepository) MarkExpiryNotified(ctx context.Context, keyID string) error {
	query := `
		UPDATE api_keys
		SET expiry_notified_at = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, keyID, time.Now())
	return err
}

// DeleteExpiredKeys deletes all expired API keys (for cleanup/cron job)
func (r *APIKeyRepository) DeleteExpiredKeys(ctx context.Context) error {
	query := `
		DELETE FROM api_keys
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`

	_, err := r.db.ExecContext(ctx, query, time.Now())
	return err
}
