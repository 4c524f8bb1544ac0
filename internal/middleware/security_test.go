package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// applySecurityHeaders runs a GET / through SecurityHeadersMiddleware and
// returns the recorder so callers can inspect headers.
func applySecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestAPISecurityHeadersConfig(t *testing.T) {
	cfg := APISecurityHeadersConfig()

	if !cfg.EnableHSTS {
		t.Error("EnableHSTS = false, want true")
	}
	if cfg.HSTSMaxAge != 31536000 {
		t.Errorf("HSTSMaxAge = %d, want 31536000", cfg.HSTSMaxAge)
	}
	if cfg.HSTSPreload {
		t.Error("HSTSPreload = true, want false")
	}
	if cfg.FrameOptionsValue != "DENY" {
		t.Errorf("FrameOptionsValue = %q, want DENY", cfg.FrameOptionsValue)
	}
	if !strings.Contains(cfg.ContentSecurityPolicy, "default-src 'none'") {
		t.Errorf("CSP = %q, want a deny-all policy", cfg.ContentSecurityPolicy)
	}
	if cfg.ReferrerPolicy != "no-referrer" {
		t.Errorf("ReferrerPolicy = %q, want no-referrer", cfg.ReferrerPolicy)
	}
	if cfg.PermissionsPolicy == "" {
		t.Error("PermissionsPolicy is empty, want feature denials")
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	t.Run("with subdomains and no preload", func(t *testing.T) {
		w := applySecurityHeaders(SecurityHeadersConfig{
			EnableHSTS:            true,
			HSTSMaxAge:            31536000,
			HSTSIncludeSubdomains: true,
		})
		hsts := w.Header().Get("Strict-Transport-Security")
		if !strings.Contains(hsts, "max-age=31536000") {
			t.Errorf("HSTS = %q, want to contain max-age=31536000", hsts)
		}
		if !strings.Contains(hsts, "includeSubDomains") {
			t.Errorf("HSTS = %q, want to contain includeSubDomains", hsts)
		}
		if strings.Contains(hsts, "preload") {
			t.Errorf("HSTS = %q, should not contain preload", hsts)
		}
	})

	t.Run("with preload", func(t *testing.T) {
		w := applySecurityHeaders(SecurityHeadersConfig{
			EnableHSTS:  true,
			HSTSMaxAge:  86400,
			HSTSPreload: true,
		})
		hsts := w.Header().Get("Strict-Transport-Security")
		if !strings.Contains(hsts, "max-age=86400") {
			t.Errorf("HSTS = %q, want to contain max-age=86400", hsts)
		}
		if !strings.Contains(hsts, "preload") {
			t.Errorf("HSTS = %q, want to contain preload", hsts)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		w := applySecurityHeaders(SecurityHeadersConfig{})
		if got := w.Header().Get("Strict-Transport-Security"); got != "" {
			t.Errorf("HSTS should be absent when disabled, got %q", got)
		}
	})
}

func TestSecurityHeadersMiddleware_OptionalHeaders(t *testing.T) {
	cases := []struct {
		name   string
		cfg    SecurityHeadersConfig
		header string
		want   string
	}{
		{"frame options DENY", SecurityHeadersConfig{FrameOptionsValue: "DENY"}, "X-Frame-Options", "DENY"},
		{"frame options SAMEORIGIN", SecurityHeadersConfig{FrameOptionsValue: "SAMEORIGIN"}, "X-Frame-Options", "SAMEORIGIN"},
		{"frame options absent", SecurityHeadersConfig{}, "X-Frame-Options", ""},
		{"csp set", SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'none'"}, "Content-Security-Policy", "default-src 'none'"},
		{"csp absent", SecurityHeadersConfig{}, "Content-Security-Policy", ""},
		{"referrer policy set", SecurityHeadersConfig{ReferrerPolicy: "no-referrer"}, "Referrer-Policy", "no-referrer"},
		{"referrer policy absent", SecurityHeadersConfig{}, "Referrer-Policy", ""},
		{"permissions policy set", SecurityHeadersConfig{PermissionsPolicy: "camera=()"}, "Permissions-Policy", "camera=()"},
		{"permissions policy absent", SecurityHeadersConfig{}, "Permissions-Policy", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := applySecurityHeaders(tc.cfg)
			if got := w.Header().Get(tc.header); got != tc.want {
				t.Errorf("%s = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_AlwaysOnHeaders(t *testing.T) {
	// Unconditional regardless of config.
	w := applySecurityHeaders(SecurityHeadersConfig{})

	always := map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	}
	for header, want := range always {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}
