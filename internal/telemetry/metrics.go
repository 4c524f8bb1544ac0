// Package telemetry provides application-level observability for Planivo.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<PLV_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router and
// is therefore absent from the OpenAPI/Swagger spec.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Capability matrix load counters and scope resolution outcomes
//   - Approval workflow transition and conflict counters
//   - Realtime invalidation bridge event and reconnect counters
//   - Notification dispatch counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/approvals/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as request ids.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/konshedo/planivo/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.ApprovalTransitionsTotal.WithLabelValues("approve", "ok").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/approvals/:id/decisions),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
//
// Example PromQL queries:
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
//   - Average latency:                   rate(http_request_duration_seconds_sum[5m]) / rate(http_request_duration_seconds_count[5m])
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Access resolution metrics — recorded by the scope resolver and the module
// access service.
//
// AccessMatrixLoadsTotal is a CounterVec with label {source}: "store" when the
// capability matrix was fetched from the database, "cache" when an existing
// in-memory matrix was served.  A low cache ratio after warm-up usually means
// the invalidation bridge is firing too broadly.
//
// Example PromQL queries:
//   - Cache hit ratio: sum(rate(access_matrix_loads_total{source="cache"}[5m])) / sum(rate(access_matrix_loads_total[5m]))
//
// ScopeResolutionsTotal is a CounterVec with labels {role, outcome}.  Outcomes:
// "ok", "not_found" (no assignment for the role class), "integrity_error"
// (assignment with a missing authoritative scope pointer), "error" (store
// failure).  integrity_error > 0 indicates corrupt role assignment rows and
// deserves an alert.
//
// Example PromQL queries:
//   - Integrity violations:  increase(scope_resolutions_total{outcome="integrity_error"}[1h]) > 0
var (
	AccessMatrixLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_matrix_loads_total",
			Help: "Total number of capability matrix loads, by source (store or cache).",
		},
		[]string{"source"},
	)

	ScopeResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scope_resolutions_total",
			Help: "Total number of scope resolution attempts, by role class and outcome.",
		},
		[]string{"role", "outcome"},
	)
)

// Approval workflow metrics — recorded by the approval engine.
//
// ApprovalTransitionsTotal is a CounterVec with labels {transition, outcome}.
// Transitions: "submit", "activate", "approve", "reject", "cancel".  Outcomes:
// "ok", "invalid" (ordering/duplicate/terminal violations), "denied" (approver
// outside the required scope), "error" (store failure).
//
// Example PromQL queries:
//   - Rejected decisions per hour:  increase(approval_transitions_total{transition="reject",outcome="ok"}[1h])
//   - Invalid decision attempts:    rate(approval_transitions_total{outcome="invalid"}[5m])
//
// ApprovalConflictsFlaggedTotal is a plain Counter incremented each time the
// coverage sweep marks a request has_conflict=true.  Conflicts are annotations
// for human approvers, never automatic rejections, so this counter tracks how
// often the minimum-coverage threshold is being pressed.
var (
	ApprovalTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_transitions_total",
			Help: "Total number of approval state machine transitions, by transition and outcome.",
		},
		[]string{"transition", "outcome"},
	)

	ApprovalConflictsFlaggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_conflicts_flagged_total",
			Help: "Total number of approval requests flagged with a coverage conflict.",
		},
	)
)

// Realtime bridge metrics — recorded by the LISTEN/NOTIFY invalidation bridge.
//
// RealtimeEventsTotal is a CounterVec with labels {table, op} counting every
// change notification delivered to subscribers.  op is one of INSERT, UPDATE,
// DELETE, or RELOAD (synthesized after a listener reconnect).
//
// Example PromQL queries:
//   - Event rate by table:  sum by (table) (rate(realtime_events_total[5m]))
//   - Reload storms:        increase(realtime_events_total{op="RELOAD"}[10m]) > 5
//
// RealtimeReconnectsTotal is a plain Counter incremented on every listener
// reconnect.  Sustained growth points at an unstable database connection.
var (
	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Total number of change notifications dispatched by the invalidation bridge, by table and operation.",
		},
		[]string{"table", "op"},
	)

	RealtimeReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_reconnects_total",
			Help: "Total number of LISTEN/NOTIFY connection re-establishments.",
		},
	)
)

// NotificationsSentTotal is a CounterVec with labels {channel, status} counting
// notification dispatch attempts.  channel is "store" (notifications table) or
// "email" (SMTP); status is "ok" or "error".  Dispatch failures never fail the
// triggering approval transition, so this counter is the only place delivery
// problems become visible.
//
// Example PromQL queries:
//   - Email failure ratio:  sum(rate(notifications_sent_total{channel="email",status="error"}[1h])) / sum(rate(notifications_sent_total{channel="email"}[1h]))
var NotificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notification dispatch attempts, by channel and status.",
	},
	[]string{"channel", "status"},
)

// ApprovalRemindersSentTotal is a plain Counter (no labels) incremented once per
// reminder notification produced by the approval reminder background job.
// A stalled counter combined with old pending decisions is a useful alert signal.
//
// Example PromQL queries:
//   - Rate of reminders sent:  rate(approval_reminders_sent_total[24h])
var ApprovalRemindersSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "approval_reminders_sent_total",
		Help: "Total number of approval reminder notifications successfully produced.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <PLV_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
