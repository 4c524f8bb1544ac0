// Package api wires together all HTTP routes for the Planivo backend.
//
// Route grouping philosophy:
//   - Probes (/health, /ready, /version) and the API docs are unauthenticated
//     so load balancers and the frontend can reach them without credentials.
//   - Everything under /api/v1 requires authentication (JWT bearer or API
//     key). Feature routes are additionally gated on module capabilities
//     resolved from the caller's role assignments; administrative routes
//     require the admin capability.
//
// The Swagger UI at /api-docs/ uses a nonce-based Content Security Policy
// rather than hash-based CSP. The CDN-loaded Swagger UI bundle contains inline
// <script> elements whose hashes would change with every CDN version update. A
// per-request cryptographic nonce allows those inline scripts to execute while
// keeping the CSP strict for all other content.
package api

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/konshedo/planivo/docs"
	"github.com/konshedo/planivo/internal/access"
	"github.com/konshedo/planivo/internal/api/admin"
	"github.com/konshedo/planivo/internal/api/approvals"
	"github.com/konshedo/planivo/internal/api/me"
	"github.com/konshedo/planivo/internal/approval"
	"github.com/konshedo/planivo/internal/audit"
	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/repositories"
	"github.com/konshedo/planivo/internal/jobs"
	"github.com/konshedo/planivo/internal/middleware"
	"github.com/konshedo/planivo/internal/notify"
	"github.com/konshedo/planivo/internal/realtime"
	"github.com/konshedo/planivo/internal/redis"
	"github.com/konshedo/planivo/internal/safego"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	reminderJob    *jobs.ApprovalReminder
	expiryNotifier *jobs.APIKeyExpiryNotifier
	bridge         *realtime.Bridge
	auditShipper   *audit.MultiShipper
	memLimiter     *middleware.RateLimiter
	redisClient    *goredis.Client
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.reminderJob != nil {
		bg.reminderJob.Stop()
	}
	if bg.expiryNotifier != nil {
		bg.expiryNotifier.Stop()
	}
	if bg.bridge != nil {
		if err := bg.bridge.Close(); err != nil {
			slog.Error("closing realtime bridge", "error", err)
		}
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Error("closing audit shippers", "error", err)
		}
	}
	if bg.memLimiter != nil {
		bg.memLimiter.Stop()
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Error("closing redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Initialize repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	userRepo := repositories.NewUserRepository(sqlxDB)
	apiKeyRepo := repositories.NewAPIKeyRepository(sqlxDB)
	roleRepo := repositories.NewRoleRepository(sqlxDB)
	orgRepo := repositories.NewOrgRepository(sqlxDB)
	moduleRepo := repositories.NewModuleRepository(sqlxDB)
	approvalRepo := repositories.NewApprovalRepository(sqlxDB)
	notifRepo := repositories.NewNotificationRepository(sqlxDB)
	auditRepo := repositories.NewAuditRepository(sqlxDB)

	// Capability matrix and scope resolution, cached per user
	svc := access.NewService(moduleRepo)
	resolver := access.NewResolver(roleRepo)

	// Notifications always land in the notifications table; email delivery is
	// added on top when SMTP is configured.
	var notifier notify.Dispatcher = notify.NewStoreDispatcher(notifRepo)
	mailer := notify.NewMailer(userRepo, &cfg.Notifications)
	if mailer.Enabled() {
		notifier = notify.NewComposite(notify.NewStoreDispatcher(notifRepo), mailer)
	}

	engine := approval.NewEngine(approvalRepo, orgRepo, roleRepo, resolver, notifier, approval.Config{
		DefaultMinCoverage: cfg.Approvals.MinCoverage,
	})

	// Background jobs
	if cfg.Approvals.Reminder.Enabled {
		bg.reminderJob = jobs.NewApprovalReminder(engine, approvalRepo, &cfg.Approvals.Reminder)
		reminderJob := bg.reminderJob
		safego.Go("approval-reminder", func() { reminderJob.Start(context.Background()) })
	}

	bg.expiryNotifier = jobs.NewAPIKeyExpiryNotifier(apiKeyRepo, notifier, &cfg.Notifications)
	expiryNotifier := bg.expiryNotifier
	safego.Go("api-key-expiry-notifier", func() { expiryNotifier.Start(context.Background()) })

	// Realtime bridge: LISTEN/NOTIFY events invalidate the in-process caches
	// so grant and role changes propagate across instances without restarts.
	if cfg.Realtime.Enabled {
		bridge := realtime.NewBridge(cfg.Database.GetDSN(), cfg.Realtime.Channel, cfg.Realtime.PingInterval)
		bridge.Subscribe(realtime.EntityRoleAssignments, realtime.ChangeAny, func(ev realtime.Event) {
			if ev.Key == "" {
				svc.InvalidateAll()
				resolver.InvalidateAll()
				return
			}
			svc.Invalidate(ev.Key)
			resolver.Invalidate(ev.Key)
		})
		bridge.Subscribe(realtime.EntityModules, realtime.ChangeAny, func(ev realtime.Event) {
			svc.InvalidateAll()
		})
		bridge.Subscribe(realtime.EntityModuleGrants, realtime.ChangeAny, func(ev realtime.Event) {
			svc.InvalidateAll()
		})
		invalidateRequest := func(ev realtime.Event) {
			if ev.Key == "" {
				engine.InvalidateAllViews()
				return
			}
			engine.InvalidateView(ev.Key)
		}
		bridge.Subscribe(realtime.EntityApprovalRequests, realtime.ChangeAny, invalidateRequest)
		bridge.Subscribe(realtime.EntityApprovalSteps, realtime.ChangeAny, invalidateRequest)

		if err := bridge.Start(); err != nil {
			// Degraded, not fatal: the caches have no TTL, so stale grants
			// persist until an explicit reload or a process restart.
			slog.Error("realtime bridge failed to start, continuing without live invalidation", "error", err)
		} else {
			bg.bridge = bridge
			slog.Info("realtime bridge started", "channel", cfg.Realtime.Channel)
		}
	}

	// Rate limiting: Redis-backed when configured for multi-replica
	// deployments, per-process token bucket otherwise.
	var limiter middleware.Limiter
	if cfg.Security.RateLimiting.Enabled {
		rlConfig := middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
			CleanupInterval:   5 * time.Minute,
		}
		if cfg.Security.RateLimiting.Backend == "redis" && cfg.Redis.Enabled {
			client, err := redis.Connect(&cfg.Redis)
			if err != nil {
				slog.Error("redis connection failed, falling back to in-memory rate limiting", "error", err)
			} else {
				bg.redisClient = client
				limiter = middleware.NewRedisRateLimiter(client, rlConfig)
				slog.Info("rate limiting backed by redis", "addr", cfg.Redis.Addr)
			}
		}
		if limiter == nil {
			bg.memLimiter = middleware.NewRateLimiter(rlConfig)
			limiter = bg.memLimiter
		}
	}

	// Audit trail middleware, optionally shipping entries to external sinks
	var auditMW gin.HandlerFunc
	if cfg.Audit.Enabled {
		auditMW = middleware.AuditMiddleware(auditRepo)
		if len(cfg.Audit.Shippers) > 0 {
			shipper, err := audit.NewMultiShipper(cfg.Audit.Shippers)
			if err != nil {
				slog.Error("audit shipper initialization failed, keeping database-only audit", "error", err)
			} else {
				bg.auditShipper = shipper
				auditMW = middleware.AuditMiddlewareWithShipper(auditRepo, shipper, &cfg.Audit)
			}
		}
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Swagger UI - serve from CDN
	serveSwaggerUI := func(c *gin.Context) {
		// Generate a per-request nonce for CSP
		nb := make([]byte, 16)
		if _, err := rand.Read(nb); err != nil {
			c.String(http.StatusInternalServerError, "failed to generate nonce")
			return
		}
		nonce := base64.StdEncoding.EncodeToString(nb)

		// Allow same-origin framing so the frontend React app can embed this page
		c.Header("X-Frame-Options", "SAMEORIGIN")

		// Set a nonce-based Content Security Policy allowing the generated
		// nonce for inline scripts and styles. This is safe for serving the
		// Swagger UI page while keeping the global API CSP strict.
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Header("Content-Security-Policy", fmt.Sprintf(
			"default-src 'self' https:; script-src 'self' 'nonce-%s' https:; style-src 'self' 'nonce-%s' https:; img-src 'self' data: https:; font-src 'self' https:; connect-src 'self' https:",
			nonce, nonce,
		))

		html := fmt.Sprintf(`<!DOCTYPE html>
<html>
	<head>
		<title>Planivo API</title>
		<meta charset="utf-8"/>
		<meta name="viewport" content="width=device-width, initial-scale=1">
		<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/swagger-ui/4.15.5/swagger-ui.min.css">
		<style nonce="%s">
			html{
				box-sizing: border-box;
				overflow: -moz-scrollbars-vertical;
				overflow-y: scroll;
			}
			*,
			*:before,
			*:after{
				box-sizing: inherit;
			}
			body {@font-family: sans-serif;
				color: #fafafa;
			}
		</style>
	</head>

	<body>
		<div id="swagger-ui"></div>

		<script src="https://cdnjs.cloudflare.com/ajax/libs/swagger-ui/4.15.5/swagger-ui-bundle.min.js" crossorigin></script>
		<script src="https://cdnjs.cloudflare.com/ajax/libs/swagger-ui/4.15.5/swagger-ui-standalone-preset.min.js" crossorigin></script>
		<script nonce="%s">
		window.onload = function() {
			const ui = SwaggerUIBundle({
				url: "/swagger.json",
				dom_id: '#swagger-ui',
				deepLinking: true,
				presets: [
					SwaggerUIBundle.presets.apis,
					SwaggerUIBundle.SwaggerUIStandalonePreset
				],
				plugins: [
					SwaggerUIBundle.plugins.DownloadUrl
				],
				layout: "BaseLayout",
				docExpansion: "list"
			})
			window.ui = ui
		}
	</script>
	</body>
</html>`, nonce, nonce)

		c.Data(200, "text/html; charset=utf-8", []byte(html))
	}

	// Register both exact and trailing-slash routes for Swagger UI
	router.GET("/api-docs/index.html", serveSwaggerUI)
	router.GET("/api-docs/", serveSwaggerUI)
	// Redirect /api-docs -> /api-docs/
	router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api-docs/")
	})

	// Raw Swagger JSON endpoint - serve embedded spec with runtime metadata
	router.GET("/swagger.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.Header("Access-Control-Allow-Origin", "*")

		data := docs.SwaggerJSON

		// Unmarshal to a generic map so we can override the info fields
		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			slog.Error("failed to unmarshal swagger.json", "error", err)
			c.Data(http.StatusOK, "application/json", data)
			return
		}

		// Ensure info object exists
		info, _ := doc["info"].(map[string]interface{})
		if info == nil {
			info = map[string]interface{}{}
			doc["info"] = info
		}

		// Inject configured metadata if provided
		if cfg.ApiDocs.TermsOfService != "" {
			info["termsOfService"] = cfg.ApiDocs.TermsOfService
		}
		// Contact
		contact, _ := info["contact"].(map[string]interface{})
		if contact == nil {
			contact = map[string]interface{}{}
			info["contact"] = contact
		}
		if cfg.ApiDocs.ContactName != "" {
			contact["name"] = cfg.ApiDocs.ContactName
		}
		if cfg.ApiDocs.ContactEmail != "" {
			contact["email"] = cfg.ApiDocs.ContactEmail
		}

		// License
		if cfg.ApiDocs.License != "" {
			license := map[string]interface{}{"name": cfg.ApiDocs.License}
			info["license"] = license
		}

		// Marshal back to JSON and return
		out, err := json.Marshal(doc)
		if err != nil {
			slog.Error("failed to marshal modified swagger.json", "error", err)
			c.Data(http.StatusOK, "application/json", data)
			return
		}

		c.Data(http.StatusOK, "application/json", out)
	})

	// Authenticated API
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(cfg, userRepo, apiKeyRepo))
	if limiter != nil {
		apiV1.Use(middleware.RateLimitMiddleware(limiter))
	}
	if auditMW != nil {
		apiV1.Use(auditMW)
	}

	// Self-service: profile, capabilities, scopes, notifications
	meHandlers := me.NewHandlers(svc, resolver, notifRepo)
	meGroup := apiV1.Group("/me")
	{
		meGroup.GET("", meHandlers.ProfileHandler())
		meGroup.GET("/modules", meHandlers.ModulesHandler())
		meGroup.GET("/scope", meHandlers.ScopeHandler())
		meGroup.GET("/scopes", meHandlers.ScopesHandler())
		meGroup.GET("/notifications", meHandlers.NotificationsHandler())
		meGroup.POST("/notifications/:id/read", meHandlers.MarkNotificationReadHandler())
		meGroup.POST("/notifications/read-all", meHandlers.MarkAllNotificationsReadHandler())
	}

	// Approval workflow, gated on the vacation planning module
	approvalHandlers := approvals.NewHandlers(engine, approvalRepo, cfg)
	approvalsGroup := apiV1.Group("/approvals")
	approvalsGroup.Use(middleware.RequireModule(svc, "vacation_planning", middleware.CapabilityView))
	{
		approvalsGroup.POST("", approvalHandlers.CreateHandler())
		approvalsGroup.GET("", approvalHandlers.ListHandler())
		approvalsGroup.GET("/:id", approvalHandlers.GetHandler())
		approvalsGroup.POST("/:id/submit", approvalHandlers.SubmitHandler())
		approvalsGroup.POST("/:id/decisions", approvalHandlers.DecideHandler())
		approvalsGroup.POST("/:id/cancel", approvalHandlers.CancelHandler())
	}

	// API keys are self-service: every authenticated user manages their own
	apiKeyHandlers := admin.NewAPIKeyHandlers(cfg, sqlxDB)
	apiKeysGroup := apiV1.Group("/apikeys")
	{
		apiKeysGroup.GET("", apiKeyHandlers.ListAPIKeysHandler())
		apiKeysGroup.POST("", apiKeyHandlers.CreateAPIKeyHandler())
		apiKeysGroup.GET("/:id", apiKeyHandlers.GetAPIKeyHandler())
		apiKeysGroup.DELETE("/:id", apiKeyHandlers.DeleteAPIKeyHandler())
		apiKeysGroup.POST("/:id/rotate", apiKeyHandlers.RotateAPIKeyHandler())
	}

	// Administration: org structure, users, roles, module catalog, audit trail
	orgHandlers := admin.NewOrgHandlers(sqlxDB)
	userHandlers := admin.NewUserHandlers(sqlxDB)
	roleHandlers := admin.NewRoleHandlers(sqlxDB, svc, resolver)
	moduleHandlers := admin.NewModuleHandlers(sqlxDB, svc)
	auditHandlers := admin.NewAuditHandlers(sqlxDB)

	adminGroup := apiV1.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(svc))
	{
		workspacesGroup := adminGroup.Group("/workspaces")
		{
			workspacesGroup.GET("", orgHandlers.ListWorkspacesHandler())
			workspacesGroup.POST("", orgHandlers.CreateWorkspaceHandler())
			workspacesGroup.GET("/:id", orgHandlers.GetWorkspaceHandler())
			workspacesGroup.PUT("/:id", orgHandlers.UpdateWorkspaceHandler())
			workspacesGroup.DELETE("/:id", orgHandlers.DeleteWorkspaceHandler())
		}

		facilitiesGroup := adminGroup.Group("/facilities")
		{
			facilitiesGroup.GET("", orgHandlers.ListFacilitiesHandler())
			facilitiesGroup.POST("", orgHandlers.CreateFacilityHandler())
			facilitiesGroup.GET("/:id", orgHandlers.GetFacilityHandler())
			facilitiesGroup.PUT("/:id", orgHandlers.UpdateFacilityHandler())
			facilitiesGroup.DELETE("/:id", orgHandlers.DeleteFacilityHandler())
		}

		departmentsGroup := adminGroup.Group("/departments")
		{
			departmentsGroup.GET("", orgHandlers.ListDepartmentsHandler())
			departmentsGroup.POST("", orgHandlers.CreateDepartmentHandler())
			departmentsGroup.GET("/:id", orgHandlers.GetDepartmentHandler())
			departmentsGroup.PUT("/:id", orgHandlers.UpdateDepartmentHandler())
			departmentsGroup.DELETE("/:id", orgHandlers.DeleteDepartmentHandler())
		}

		usersGroup := adminGroup.Group("/users")
		{
			usersGroup.GET("", userHandlers.ListUsersHandler())
			usersGroup.POST("", userHandlers.CreateUserHandler())
			usersGroup.GET("/:id", userHandlers.GetUserHandler())
			usersGroup.PUT("/:id", userHandlers.UpdateUserHandler())
			usersGroup.DELETE("/:id", userHandlers.DeleteUserHandler())

			usersGroup.GET("/:id/roles", roleHandlers.ListRolesHandler())
			usersGroup.POST("/:id/roles", roleHandlers.AssignRoleHandler())
			usersGroup.DELETE("/:id/roles/:role_id", roleHandlers.RevokeRoleHandler())
		}

		modulesGroup := adminGroup.Group("/modules")
		{
			modulesGroup.GET("", moduleHandlers.ListModulesHandler())
			modulesGroup.POST("", moduleHandlers.CreateModuleHandler())
			modulesGroup.GET("/:id", moduleHandlers.GetModuleHandler())
			modulesGroup.PUT("/:id", moduleHandlers.UpdateModuleHandler())
			modulesGroup.DELETE("/:id", moduleHandlers.DeleteModuleHandler())

			modulesGroup.GET("/:id/grants", moduleHandlers.ListGrantsHandler())
			modulesGroup.PUT("/:id/grants", moduleHandlers.UpsertGrantHandler())
			modulesGroup.DELETE("/:id/grants/:role", moduleHandlers.DeleteGrantHandler())
		}

		adminGroup.GET("/audit-logs", auditHandlers.ListAuditLogsHandler())
		adminGroup.GET("/audit-logs/:id", auditHandlers.GetAuditLogHandler())
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. The database
// is the only hard dependency; Redis and SMTP degrade gracefully, so they do
// not gate readiness.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
