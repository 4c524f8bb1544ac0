// apikeys.go implements self-service API key management. Keys are always
// scoped to their owner: a key authenticates as the user who created it and
// inherits that user's roles at request time, so there is nothing to manage
// on the key beyond its name and expiry. Only the bcrypt hash is stored; the
// full key is returned exactly once at creation.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/konshedo/planivo/internal/auth"
	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/db/repositories"
)

// APIKeyHandlers handles API key management endpoints.
type APIKeyHandlers struct {
	cfg        *config.Config
	apiKeyRepo *repositories.APIKeyRepository
}

// NewAPIKeyHandlers creates a new APIKeyHandlers instance.
func NewAPIKeyHandlers(cfg *config.Config, db *sqlx.DB) *APIKeyHandlers {
	return &APIKeyHandlers{
		cfg:        cfg,
		apiKeyRepo: repositories.NewAPIKeyRepository(db),
	}
}

// CreateAPIKeyRequest represents the request to create a new API key
type CreateAPIKeyRequest struct {
	Name      string  `json:"name" binding:"required"`
	ExpiresAt *string `json:"expires_at"` // RFC3339 format
}

// CreateAPIKeyResponse represents the response when creating an API key
type CreateAPIKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Key       string     `json:"key"` // Only returned once during creation
	KeyPrefix string     `json:"key_prefix"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// keyPrefix returns the configured key prefix, defaulting to plv.
func (h *APIKeyHandlers) keyPrefix() string {
	if h.cfg.Auth.APIKeys.Prefix != "" {
		return h.cfg.Auth.APIKeys.Prefix
	}
	return "plv"
}

// loadOwnKey fetches a key and verifies the caller owns it. Foreign keys are
// reported as not found rather than forbidden, so ids cannot be probed.
func (h *APIKeyHandlers) loadOwnKey(c *gin.Context) *models.APIKey {
	userIDVal, _ := c.Get("user_id")
	userID, _ := userIDVal.(string)

	apiKey, err := h.apiKeyRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve API key"})
		return nil
	}
	if apiKey == nil || apiKey.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return nil
	}
	return apiKey
}

// @Summary      List API keys
// @Description  Lists the caller's API keys. Hashes are never returned; the key_prefix field identifies each key.
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "List of API keys"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apikeys [get]
// ListAPIKeysHandler lists the caller's API keys.
// GET /api/v1/apikeys
func (h *APIKeyHandlers) ListAPIKeysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		userID, ok := userIDVal.(string)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
			return
		}

		keys, err := h.apiKeyRepo.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list API keys"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"keys": keys})
	}
}

// @Summary      Create API key
// @Description  Creates a new API key for the caller. The full key is only returned once.
// @Tags         API Keys
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateAPIKeyRequest  true  "Key name and optional RFC3339 expiry"
// @Success      201  {object}  CreateAPIKeyResponse  "API key created (full key returned once)"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - user not authenticated"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apikeys [post]
// CreateAPIKeyHandler creates a new API key.
// POST /api/v1/apikeys
func (h *APIKeyHandlers) CreateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAPIKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		userID, ok := userIDVal.(string)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
			return
		}

		var expiresAt *time.Time
		if req.ExpiresAt != nil {
			parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expires_at format. Use RFC3339"})
				return
			}
			if !parsed.After(time.Now()) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be in the future"})
				return
			}
			expiresAt = &parsed
		}

		fullKey, keyHash, displayPrefix, err := auth.GenerateAPIKey(h.keyPrefix())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate API key"})
			return
		}

		apiKey := &models.APIKey{
			UserID:    userID,
			Name:      req.Name,
			KeyHash:   keyHash,
			KeyPrefix: displayPrefix,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now(),
		}
		if err := h.apiKeyRepo.Create(c.Request.Context(), apiKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create API key"})
			return
		}

		// Return full key (only time it's visible)
		c.JSON(http.StatusCreated, CreateAPIKeyResponse{
			ID:        apiKey.ID,
			Name:      apiKey.Name,
			Key:       fullKey,
			KeyPrefix: displayPrefix,
			ExpiresAt: apiKey.ExpiresAt,
			CreatedAt: apiKey.CreatedAt,
		})
	}
}

// @Summary      Get API key
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "API key ID"
// @Success      200  {object}  map[string]interface{}  "API key details"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apikeys/{id} [get]
// GetAPIKeyHandler retrieves one of the caller's API keys.
// GET /api/v1/apikeys/:id
func (h *APIKeyHandlers) GetAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := h.loadOwnKey(c)
		if apiKey == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": apiKey})
	}
}

// @Summary      Delete API key
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "API key ID"
// @Success      200  {object}  map[string]interface{}  "Deletion confirmation"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apikeys/{id} [delete]
// DeleteAPIKeyHandler deletes one of the caller's API keys.
// DELETE /api/v1/apikeys/:id
func (h *APIKeyHandlers) DeleteAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := h.loadOwnKey(c)
		if apiKey == nil {
			return
		}

		if err := h.apiKeyRepo.Delete(c.Request.Context(), apiKey.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete API key"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "API key deleted successfully"})
	}
}

// @Summary      Rotate API key
// @Description  Replaces an API key with a freshly generated one carrying the same name and expiry. The old key stops working immediately; the new full key is returned once.
// @Tags         API Keys
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "API key ID"
// @Success      200  {object}  CreateAPIKeyResponse  "New API key (full key returned once)"
// @Failure      404  {object}  map[string]interface{}  "API key not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/apikeys/{id}/rotate [post]
// RotateAPIKeyHandler replaces a key with a new secret.
// POST /api/v1/apikeys/:id/rotate
func (h *APIKeyHandlers) RotateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		oldKey := h.loadOwnKey(c)
		if oldKey == nil {
			return
		}

		fullKey, keyHash, displayPrefix, err := auth.GenerateAPIKey(h.keyPrefix())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate new API key"})
			return
		}

		newKey := &models.APIKey{
			UserID:    oldKey.UserID,
			Name:      oldKey.Name,
			KeyHash:   keyHash,
			KeyPrefix: displayPrefix,
			ExpiresAt: oldKey.ExpiresAt,
			CreatedAt: time.Now(),
		}
		if err := h.apiKeyRepo.Create(c.Request.Context(), newKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create new API key"})
			return
		}

		// Old key is revoked only after the replacement exists, so a failed
		// rotation never leaves the caller without a working key.
		if err := h.apiKeyRepo.Delete(c.Request.Context(), oldKey.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "New key created but old key revocation failed"})
			return
		}

		c.JSON(http.StatusOK, CreateAPIKeyResponse{
			ID:        newKey.ID,
			Name:      newKey.Name,
			Key:       fullKey,
			KeyPrefix: displayPrefix,
			ExpiresAt: newKey.ExpiresAt,
			CreatedAt: newKey.CreatedAt,
		})
	}
}
