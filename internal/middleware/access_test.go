package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/konshedo/planivo/internal/access"
	"github.com/konshedo/planivo/internal/db/models"
)

// stubMatrixStore serves a fixed capability set per user.
type stubMatrixStore struct {
	caps map[string][]*models.UserModuleCapability
	err  error
}

func (s *stubMatrixStore) GetUserModules(_ context.Context, userID string) ([]*models.UserModuleCapability, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.caps[userID], nil
}

func newAccessRouter(svc *access.Service, userID, moduleKey string, capability Capability) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/", RequireModule(svc, moduleKey, capability), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doAccessRequest(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireModule_AllowsViewCapability(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {{ModuleKey: "vacation_planning", CanView: true}},
	}})

	w := doAccessRequest(newAccessRouter(svc, "user-1", "vacation_planning", CapabilityView))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireModule_DeniesMissingCapability(t *testing.T) {
	// View granted but edit is not.
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {{ModuleKey: "vacation_planning", CanView: true}},
	}})

	w := doAccessRequest(newAccessRouter(svc, "user-1", "vacation_planning", CapabilityEdit))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireModule_DeniesUnknownModule(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {{ModuleKey: "vacation_planning", CanView: true}},
	}})

	w := doAccessRequest(newAccessRouter(svc, "user-1", "payroll", CapabilityView))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for unknown module", w.Code)
	}
}

func TestRequireModule_DeniesWithoutUser(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{})

	w := doAccessRequest(newAccessRouter(svc, "", "vacation_planning", CapabilityView))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 without user_id", w.Code)
	}
}

func TestRequireModule_DeniesUnknownCapability(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {{ModuleKey: "vacation_planning", CanView: true, CanEdit: true, CanDelete: true, CanAdmin: true}},
	}})

	w := doAccessRequest(newAccessRouter(svc, "user-1", "vacation_planning", Capability("own")))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for unknown capability", w.Code)
	}
}

func TestRequireModule_StoreErrorIs500(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{err: errors.New("db down")})

	w := doAccessRequest(newAccessRouter(svc, "user-1", "vacation_planning", CapabilityView))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on store failure", w.Code)
	}
}

func TestRequireModule_AdminCapability(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"admin-1": {{ModuleKey: "administration", CanView: true, CanAdmin: true}},
	}})

	w := doAccessRequest(newAccessRouter(svc, "admin-1", "administration", CapabilityAdmin))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireModule_ErrorBodyNamesModuleAndCapability(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{})

	w := doAccessRequest(newAccessRouter(svc, "user-1", "payroll", CapabilityDelete))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"payroll", "delete"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q does not mention %q", body, want)
		}
	}
}

func newAdminRouter(svc *access.Service, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/", RequireAdmin(svc), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAdmin_AllowsAdminOnAnyModule(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		// Admin on one module out of several is enough.
		"user-1": {
			{ModuleKey: "vacation_planning", CanView: true},
			{ModuleKey: "reporting", CanView: true, CanAdmin: true},
		},
	}})

	w := doAccessRequest(newAdminRouter(svc, "user-1"))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireAdmin_DeniesWithoutAdminCapability(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{caps: map[string][]*models.UserModuleCapability{
		"user-1": {
			{ModuleKey: "vacation_planning", CanView: true, CanEdit: true, CanDelete: true},
		},
	}})

	w := doAccessRequest(newAdminRouter(svc, "user-1"))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Administrator access required") {
		t.Errorf("body = %q, want administrator error", w.Body.String())
	}
}

func TestRequireAdmin_DeniesUnauthenticated(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{})

	w := doAccessRequest(newAdminRouter(svc, ""))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 without user_id", w.Code)
	}
}

func TestRequireAdmin_StoreErrorIs500(t *testing.T) {
	svc := access.NewService(&stubMatrixStore{err: errors.New("db down")})

	w := doAccessRequest(newAdminRouter(svc, "user-1"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on store failure", w.Code)
	}
}
