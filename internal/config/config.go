// Package config loads and validates the Planivo configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the PLV_ prefix (e.g., PLV_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
//
// The PLV_JWT_SECRET variable is read directly by internal/auth rather than
// through this package because it must never be written to a config file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Approvals     ApprovalsConfig     `mapstructure:"approvals"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
	// ApiDocs holds OpenAPI/Swagger metadata that can be overridden at deploy-time
	ApiDocs ApiDocsConfig `mapstructure:"api_docs"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// RedisConfig holds the optional Redis connection used by the distributed rate
// limiter. When Enabled is false the server falls back to per-process in-memory
// rate limiting, which is fine for single-replica deployments.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWT     JWTConfig    `mapstructure:"jwt"`
	APIKeys APIKeyConfig `mapstructure:"api_keys"`
}

// JWTConfig holds session token configuration. The signing secret itself comes
// from the PLV_JWT_SECRET environment variable (see internal/auth).
type JWTConfig struct {
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// APIKeyConfig holds API key authentication configuration
type APIKeyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// ApprovalsConfig holds approval workflow configuration
type ApprovalsConfig struct {
	// MinCoverage is the default minimum number of staff that must remain
	// present in a scope for a day to be conflict-free. Org units can override
	// it with their own min_coverage column; 0 there falls back to this value.
	MinCoverage int `mapstructure:"min_coverage"`
	// MaxRequestDays caps the length of a single request interval in days.
	MaxRequestDays int `mapstructure:"max_request_days"`
	// Reminder configures the background job that re-activates stuck
	// submissions and nudges approvers sitting on pending decisions.
	Reminder ApprovalReminderConfig `mapstructure:"reminder"`
}

// ApprovalReminderConfig holds settings for the approval reminder job
type ApprovalReminderConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// CheckIntervalHours determines how often the job runs (default 6)
	CheckIntervalHours int `mapstructure:"check_interval_hours"`
	// PendingAgeHours is how long a decision may sit pending before approvers
	// are reminded (default 48)
	PendingAgeHours int `mapstructure:"pending_age_hours"`
}

// RealtimeConfig holds LISTEN/NOTIFY bridge configuration
type RealtimeConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Channel is the Postgres notification channel the bridge listens on.
	// It must match the channel used by the planivo_notify trigger function.
	Channel              string        `mapstructure:"channel"`
	MinReconnectInterval time.Duration `mapstructure:"min_reconnect_interval"`
	MaxReconnectInterval time.Duration `mapstructure:"max_reconnect_interval"`
	// PingInterval is how often the listener connection is probed when idle.
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration.
// Backend selects the limiter implementation: "memory" (per-process token
// bucket) or "redis" (shared counters via redis_rate, requires redis.enabled).
type RateLimitingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Backend           string `mapstructure:"backend"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool            `mapstructure:"enabled"`
	ServiceName string          `mapstructure:"service_name"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Profiling   ProfilingConfig `mapstructure:"profiling"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// ProfilingConfig holds profiling configuration
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// AuditConfig holds audit logging configuration
type AuditConfig struct {
	// Enabled determines if audit logging is active
	Enabled bool `mapstructure:"enabled"`
	// LogReadOperations determines if GET requests should be logged
	LogReadOperations bool `mapstructure:"log_read_operations"`
	// LogFailedRequests determines if failed requests (4xx/5xx) should be logged
	LogFailedRequests bool `mapstructure:"log_failed_requests"`
	// Shippers configures external log shipping
	Shippers []AuditShipperConfig `mapstructure:"shippers"`
}

// AuditShipperConfig holds configuration for a single audit shipper
type AuditShipperConfig struct {
	// Enabled determines if this shipper is active
	Enabled bool `mapstructure:"enabled"`
	// Type is the shipper type (webhook, file)
	Type string `mapstructure:"type"`
	// Webhook configuration
	Webhook *AuditWebhookConfig `mapstructure:"webhook"`
	// File configuration
	File *AuditFileConfig `mapstructure:"file"`
}

// AuditWebhookConfig holds webhook shipper configuration
type AuditWebhookConfig struct {
	URL         string            `mapstructure:"url"`
	Headers     map[string]string `mapstructure:"headers"`
	TimeoutSecs int               `mapstructure:"timeout_secs"`
}

// AuditFileConfig holds file shipper configuration
type AuditFileConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationsConfig holds settings for outbound notification emails.
// In-app notifications (the notifications table) are always written; email
// delivery is additional and requires SMTP to be configured.
type NotificationsConfig struct {
	// EmailEnabled toggles outbound notification emails
	EmailEnabled bool `mapstructure:"email_enabled"`
	// SMTP holds the outbound mail server settings
	SMTP SMTPConfig `mapstructure:"smtp"`
	// APIKeyExpiryWarningDays is how far ahead of an API key expiry the
	// owner is warned (default 7)
	APIKeyExpiryWarningDays int `mapstructure:"api_key_expiry_warning_days"`
	// APIKeyExpiryCheckIntervalHours is how often expiring keys are scanned
	// (default 24)
	APIKeyExpiryCheckIntervalHours int `mapstructure:"api_key_expiry_check_interval_hours"`
}

// SMTPConfig holds outbound mail server configuration for notification emails
type SMTPConfig struct {
	// Host is the SMTP server hostname (e.g. smtp.sendgrid.net)
	Host string `mapstructure:"host"`
	// Port is the SMTP server port (587 for STARTTLS, 25 for plain)
	Port int `mapstructure:"port"`
	// Username for SMTP authentication
	Username string `mapstructure:"username"`
	// Password for SMTP authentication
	Password string `mapstructure:"password"`
	// From is the sender address shown in notification emails
	From string `mapstructure:"from"`
	// UseTLS enables STARTTLS; false = plain SMTP
	UseTLS bool `mapstructure:"use_tls"`
}

// BootstrapConfig seeds the first super_admin when the users table is empty.
type BootstrapConfig struct {
	AdminEmail string `mapstructure:"admin_email"`
	AdminName  string `mapstructure:"admin_name"`
}

// ApiDocsConfig holds configurable metadata for the generated OpenAPI/Swagger docs
type ApiDocsConfig struct {
	TermsOfService string `mapstructure:"terms_of_service"`
	ContactName    string `mapstructure:"contact_name"`
	ContactEmail   string `mapstructure:"contact_email"`
	License        string `mapstructure:"license"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Redis
		"redis.enabled",
		"redis.addr",
		"redis.password",
		"redis.db",
		"redis.dial_timeout",

		// Auth
		"auth.jwt.issuer",
		"auth.jwt.token_ttl",
		"auth.api_keys.enabled",
		"auth.api_keys.prefix",

		// Approvals
		"approvals.min_coverage",
		"approvals.max_request_days",
		"approvals.reminder.enabled",
		"approvals.reminder.check_interval_hours",
		"approvals.reminder.pending_age_hours",

		// Realtime
		"realtime.enabled",
		"realtime.channel",
		"realtime.min_reconnect_interval",
		"realtime.max_reconnect_interval",
		"realtime.ping_interval",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.backend",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",
		"logging.output",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
		"telemetry.profiling.enabled",
		"telemetry.profiling.port",

		// Audit
		"audit.enabled",
		"audit.log_read_operations",
		"audit.log_failed_requests",

		// Notifications / SMTP
		"notifications.email_enabled",
		"notifications.smtp.host",
		"notifications.smtp.port",
		"notifications.smtp.username",
		"notifications.smtp.password",
		"notifications.smtp.from",
		"notifications.smtp.use_tls",
		"notifications.api_key_expiry_warning_days",
		"notifications.api_key_expiry_check_interval_hours",

		// Bootstrap
		"bootstrap.admin_email",
		"bootstrap.admin_name",

		// API docs / OpenAPI metadata
		"api_docs.terms_of_service",
		"api_docs.contact_name",
		"api_docs.contact_email",
		"api_docs.license",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file path if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/planivo")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	// Enable environment variable support
	v.SetEnvPrefix("PLV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures
	// This is necessary because AutomaticEnv() doesn't work well with Unmarshal()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Notifications.SMTP.Password = expandEnv(cfg.Notifications.SMTP.Password)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "planivo")
	v.SetDefault("database.user", "planivo")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")

	// Auth defaults
	v.SetDefault("auth.jwt.issuer", "planivo")
	v.SetDefault("auth.jwt.token_ttl", "1h")
	v.SetDefault("auth.api_keys.enabled", true)
	v.SetDefault("auth.api_keys.prefix", "plv_")

	// Approvals defaults
	v.SetDefault("approvals.min_coverage", 1)
	v.SetDefault("approvals.max_request_days", 60)
	v.SetDefault("approvals.reminder.enabled", true)
	v.SetDefault("approvals.reminder.check_interval_hours", 6)
	v.SetDefault("approvals.reminder.pending_age_hours", 48)

	// Realtime defaults
	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.channel", "planivo_changes")
	v.SetDefault("realtime.min_reconnect_interval", "10s")
	v.SetDefault("realtime.max_reconnect_interval", "1m")
	v.SetDefault("realtime.ping_interval", "90s")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.backend", "memory")
	v.SetDefault("security.rate_limiting.requests_per_minute", 60)
	v.SetDefault("security.rate_limiting.burst", 10)
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "planivo")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
	v.SetDefault("telemetry.profiling.enabled", false)
	v.SetDefault("telemetry.profiling.port", 6060)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.log_read_operations", false)
	v.SetDefault("audit.log_failed_requests", false)

	// Notifications defaults
	v.SetDefault("notifications.email_enabled", false)
	v.SetDefault("notifications.smtp.port", 587)
	v.SetDefault("notifications.smtp.use_tls", true)
	v.SetDefault("notifications.api_key_expiry_warning_days", 7)
	v.SetDefault("notifications.api_key_expiry_check_interval_hours", 24)

	// API docs / OpenAPI metadata defaults
	v.SetDefault("api_docs.terms_of_service", "")
	v.SetDefault("api_docs.contact_name", "")
	v.SetDefault("api_docs.contact_email", "")
	v.SetDefault("api_docs.license", "")
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	// Validate database
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	// Validate rate limiting backend
	switch c.Security.RateLimiting.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("security.rate_limiting.backend is redis but redis.enabled is false")
		}
	default:
		return fmt.Errorf("invalid rate limiting backend: %s (must be memory or redis)", c.Security.RateLimiting.Backend)
	}

	// Validate Redis if enabled
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}

	// Validate approvals
	if c.Approvals.MinCoverage < 0 {
		return fmt.Errorf("approvals.min_coverage must not be negative")
	}
	if c.Approvals.MaxRequestDays < 1 {
		return fmt.Errorf("approvals.max_request_days must be at least 1")
	}

	// Validate realtime
	if c.Realtime.Enabled && c.Realtime.Channel == "" {
		return fmt.Errorf("realtime.channel is required when realtime is enabled")
	}

	// Validate TLS if enabled
	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	// Validate SMTP when email notifications are on
	if c.Notifications.EmailEnabled {
		if c.Notifications.SMTP.Host == "" {
			return fmt.Errorf("notifications.smtp.host is required when email notifications are enabled")
		}
		if c.Notifications.SMTP.From == "" {
			return fmt.Errorf("notifications.smtp.from is required when email notifications are enabled")
		}
	}

	// Validate audit shippers
	for i, s := range c.Audit.Shippers {
		if !s.Enabled {
			continue
		}
		switch s.Type {
		case "webhook":
			if s.Webhook == nil || s.Webhook.URL == "" {
				return fmt.Errorf("audit.shippers[%d]: webhook.url is required", i)
			}
		case "file":
			if s.File == nil || s.File.Path == "" {
				return fmt.Errorf("audit.shippers[%d]: file.path is required", i)
			}
		default:
			return fmt.Errorf("audit.shippers[%d]: invalid type %q (must be webhook or file)", i, s.Type)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
