// security.go sets protective response headers on every route. Planivo is a
// JSON API consumed by the scheduling frontend, so the baseline policy forbids
// loading any content at all; the swagger UI handler overrides the CSP per
// request with a script nonce.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig selects which protective headers are emitted. Empty
// string values disable the corresponding header.
type SecurityHeadersConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	FrameOptionsValue     string // DENY or SAMEORIGIN
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// APISecurityHeadersConfig is the policy applied router-wide: nothing may be
// loaded or framed, request URLs never leak through referrers, and the
// browser features an absence-planning API has no use for are denied.
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameOptionsValue:     "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
	}
}

// SecurityHeadersMiddleware emits the configured headers on every response.
// X-Content-Type-Options and the cross-origin isolation headers are not
// configurable; there is no deployment where we want them off.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.EnableHSTS {
			hsts := "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
			if cfg.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			if cfg.HSTSPreload {
				hsts += "; preload"
			}
			c.Header("Strict-Transport-Security", hsts)
		}

		if cfg.FrameOptionsValue != "" {
			c.Header("X-Frame-Options", cfg.FrameOptionsValue)
		}
		if cfg.ContentSecurityPolicy != "" {
			c.Header("Content-Security-Policy", cfg.ContentSecurityPolicy)
		}
		if cfg.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", cfg.ReferrerPolicy)
		}
		if cfg.PermissionsPolicy != "" {
			c.Header("Permissions-Policy", cfg.PermissionsPolicy)
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")

		c.Next()
	}
}
