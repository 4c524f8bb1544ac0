// Package access implements the two authorization read models of Planivo:
// scope resolution (which org unit does this user manage, per role class)
// and the per-user module capability matrix with its fail-closed predicates.
//
// Both components cache aggressively and are invalidated by the realtime
// bridge when the underlying tables change; predicates and resolutions are
// synchronous reads that never block on I/O once state is loaded.
package access

import (
	"context"
	"fmt"
	"sync"

	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/telemetry"
)

// Scope identifies one org unit at a known hierarchy level.
type Scope struct {
	Type models.ScopeType `json:"type"`
	ID   string           `json:"id"`
}

// AssignmentStore is the slice of the role repository the resolver needs.
type AssignmentStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.RoleAssignment, error)
}

// Resolver answers "which unit does user U manage as role R". Assignments
// are cached per user until invalidated.
type Resolver struct {
	store AssignmentStore

	mu    sync.RWMutex
	cache map[string][]*models.RoleAssignment
}

// NewResolver creates a Resolver over the given assignment store.
func NewResolver(store AssignmentStore) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string][]*models.RoleAssignment),
	}
}

// ResolveScope resolves the single scope user userID manages as role. When
// the user holds several assignments for the role, the first by assignment
// id wins; ids are ULIDs, so that is the oldest assignment. Callers that
// need every scope use ResolveScopes instead.
//
// Errors: ErrNoAssignment when the user holds no matching assignment or the
// role class has no managerial scope; *ScopeResolutionError when the
// matching assignment's authoritative pointer is NULL.
func (r *Resolver) ResolveScope(ctx context.Context, userID string, role models.RoleKind) (Scope, error) {
	scopes, err := r.ResolveScopes(ctx, userID, role)
	if err != nil {
		return Scope{}, err
	}
	return scopes[0], nil
}

// ResolveScopes resolves every scope user userID manages as role, ordered by
// assignment id. Same error contract as ResolveScope; a single assignment
// with a NULL authoritative pointer fails the whole enumeration.
func (r *Resolver) ResolveScopes(ctx context.Context, userID string, role models.RoleKind) ([]Scope, error) {
	level, ok := role.Manages()
	if !ok {
		telemetry.ScopeResolutionsTotal.WithLabelValues(string(role), "not_found").Inc()
		return nil, fmt.Errorf("%w: role %s has no managerial scope", ErrNoAssignment, role)
	}

	assignments, err := r.assignments(ctx, userID)
	if err != nil {
		telemetry.ScopeResolutionsTotal.WithLabelValues(string(role), "error").Inc()
		return nil, fmt.Errorf("listing role assignments: %w", err)
	}

	scopes := make([]Scope, 0, 1)
	for _, a := range assignments {
		if a.Role != role {
			continue
		}
		ptr := a.ScopePointer(level)
		if ptr == nil || *ptr == "" {
			telemetry.ScopeResolutionsTotal.WithLabelValues(string(role), "integrity_error").Inc()
			return nil, &ScopeResolutionError{
				AssignmentID: a.ID,
				UserID:       userID,
				Role:         role,
				Missing:      level,
			}
		}
		scopes = append(scopes, Scope{Type: level, ID: *ptr})
	}

	if len(scopes) == 0 {
		telemetry.ScopeResolutionsTotal.WithLabelValues(string(role), "not_found").Inc()
		return nil, fmt.Errorf("%w: user %s holds no %s assignment", ErrNoAssignment, userID, role)
	}

	telemetry.ScopeResolutionsTotal.WithLabelValues(string(role), "ok").Inc()
	return scopes, nil
}

// Assignments returns the user's role assignments, cached. The returned
// slice is shared; callers must not mutate it.
func (r *Resolver) Assignments(ctx context.Context, userID string) ([]*models.RoleAssignment, error) {
	return r.assignments(ctx, userID)
}

func (r *Resolver) assignments(ctx context.Context, userID string) ([]*models.RoleAssignment, error) {
	r.mu.RLock()
	cached, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	assignments, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// A concurrent load may have won; keep whichever landed first so callers
	// racing on the same user observe one consistent snapshot.
	if existing, ok := r.cache[userID]; ok {
		assignments = existing
	} else {
		r.cache[userID] = assignments
	}
	r.mu.Unlock()

	return assignments, nil
}

// Invalidate drops the cached assignments for one user.
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached assignment set.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string][]*models.RoleAssignment)
	r.mu.Unlock()
}
