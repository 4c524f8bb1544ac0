// service.go implements the module capability matrix: one cached snapshot of
// every capability a user holds, and the four fail-closed predicates the rest
// of the system asks before showing or touching a module.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/telemetry"
)

// CapabilityMatrix is an immutable snapshot of one user's module
// capabilities. Modules without a grant row for any of the user's roles are
// absent, and every predicate treats absence as false.
type CapabilityMatrix struct {
	userID   string
	loadedAt time.Time
	byKey    map[string]*models.UserModuleCapability
	modules  []*models.UserModuleCapability
}

func newCapabilityMatrix(userID string, caps []*models.UserModuleCapability) *CapabilityMatrix {
	byKey := make(map[string]*models.UserModuleCapability, len(caps))
	for _, c := range caps {
		byKey[c.ModuleKey] = c
	}
	return &CapabilityMatrix{
		userID:   userID,
		loadedAt: time.Now(),
		byKey:    byKey,
		modules:  caps,
	}
}

// UserID returns the user this matrix was computed for.
func (m *CapabilityMatrix) UserID() string {
	if m == nil {
		return ""
	}
	return m.userID
}

// LoadedAt returns when the matrix was computed.
func (m *CapabilityMatrix) LoadedAt() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.loadedAt
}

// Modules returns the capability rows in module-key order. The slice is
// shared; callers must not mutate it.
func (m *CapabilityMatrix) Modules() []*models.UserModuleCapability {
	if m == nil {
		return nil
	}
	return m.modules
}

// HasAccess reports whether the user can see the module at all. Unknown
// module keys and a nil matrix are false.
func (m *CapabilityMatrix) HasAccess(moduleKey string) bool {
	if m == nil {
		return false
	}
	c, ok := m.byKey[moduleKey]
	return ok && c.CanView
}

// CanEdit reports whether the user can modify records inside the module.
func (m *CapabilityMatrix) CanEdit(moduleKey string) bool {
	if m == nil {
		return false
	}
	c, ok := m.byKey[moduleKey]
	return ok && c.CanEdit
}

// CanDelete reports whether the user can remove records inside the module.
func (m *CapabilityMatrix) CanDelete(moduleKey string) bool {
	if m == nil {
		return false
	}
	c, ok := m.byKey[moduleKey]
	return ok && c.CanDelete
}

// CanAdmin reports whether the user can administer the module.
func (m *CapabilityMatrix) CanAdmin(moduleKey string) bool {
	if m == nil {
		return false
	}
	c, ok := m.byKey[moduleKey]
	return ok && c.CanAdmin
}

// MatrixStore is the slice of the module repository the service needs.
type MatrixStore interface {
	GetUserModules(ctx context.Context, userID string) ([]*models.UserModuleCapability, error)
}

// Service caches one CapabilityMatrix per user and exposes the fail-closed
// access predicates. Predicates read the last-loaded state synchronously; a
// user whose matrix has not been loaded simply has no access yet.
type Service struct {
	store MatrixStore

	mu       sync.RWMutex
	matrices map[string]*CapabilityMatrix
}

// NewService creates a Service over the given capability store.
func NewService(store MatrixStore) *Service {
	return &Service{
		store:    store,
		matrices: make(map[string]*CapabilityMatrix),
	}
}

// LoadAccess returns the user's capability matrix, fetching it on first use.
// Repeated calls without an intervening invalidation return the identical
// cached matrix.
func (s *Service) LoadAccess(ctx context.Context, userID string) (*CapabilityMatrix, error) {
	s.mu.RLock()
	m := s.matrices[userID]
	s.mu.RUnlock()
	if m != nil {
		telemetry.AccessMatrixLoadsTotal.WithLabelValues("cache").Inc()
		return m, nil
	}

	caps, err := s.store.GetUserModules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading capability matrix: %w", err)
	}

	m = newCapabilityMatrix(userID, caps)
	for _, key := range monotonicityViolations(caps) {
		slog.Warn("capability grant violates monotonicity",
			"user_id", userID,
			"module_key", key)
	}

	s.mu.Lock()
	if existing := s.matrices[userID]; existing != nil {
		// A concurrent load won; keep it so the idempotence contract holds.
		s.mu.Unlock()
		telemetry.AccessMatrixLoadsTotal.WithLabelValues("cache").Inc()
		return existing, nil
	}
	s.matrices[userID] = m
	s.mu.Unlock()

	telemetry.AccessMatrixLoadsTotal.WithLabelValues("store").Inc()
	return m, nil
}

// Matrix returns the user's cached matrix, or nil when none is loaded. It
// never touches the store.
func (s *Service) Matrix(userID string) *CapabilityMatrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrices[userID]
}

// HasAccess reports whether the user can see the module. False for unloaded
// users and unknown modules.
func (s *Service) HasAccess(userID, moduleKey string) bool {
	return s.Matrix(userID).HasAccess(moduleKey)
}

// CanEdit reports whether the user can modify records inside the module.
func (s *Service) CanEdit(userID, moduleKey string) bool {
	return s.Matrix(userID).CanEdit(moduleKey)
}

// CanDelete reports whether the user can remove records inside the module.
func (s *Service) CanDelete(userID, moduleKey string) bool {
	return s.Matrix(userID).CanDelete(moduleKey)
}

// CanAdmin reports whether the user can administer the module.
func (s *Service) CanAdmin(userID, moduleKey string) bool {
	return s.Matrix(userID).CanAdmin(moduleKey)
}

// Reload drops the user's cached matrix and fetches a fresh one.
func (s *Service) Reload(ctx context.Context, userID string) (*CapabilityMatrix, error) {
	s.Invalidate(userID)
	return s.LoadAccess(ctx, userID)
}

// Invalidate drops the cached matrix for one user. The next LoadAccess
// recomputes it.
func (s *Service) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.matrices, userID)
	s.mu.Unlock()
}

// InvalidateAll drops every cached matrix. Used when grants or the module
// catalog change, which can affect any user.
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	s.matrices = make(map[string]*CapabilityMatrix)
	s.mu.Unlock()
}

// monotonicityViolations returns the module keys whose grants allow a
// stronger capability without can_view. Violations are reported, never
// repaired: the stored grants stay authoritative.
func monotonicityViolations(caps []*models.UserModuleCapability) []string {
	var keys []string
	for _, c := range caps {
		if !c.CanView && (c.CanEdit || c.CanDelete || c.CanAdmin) {
			keys = append(keys, c.ModuleKey)
		}
	}
	return keys
}
