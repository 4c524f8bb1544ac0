package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// ---------------------------------------------------------------------------
// Metric registration sanity checks — verify every exported metric is properly
// registered and carries the expected fully-qualified name.
//
// We check registration via Describe() rather than DefaultGatherer.Gather()
// because Gather() only returns series that have been observed at least once;
// *Vec metrics with no label combinations yet used are silently absent from
// Gather output even though they are correctly registered.
// ---------------------------------------------------------------------------

func TestMetrics_AllRegistered(t *testing.T) {
	type describer interface {
		Describe(chan<- *prometheus.Desc)
	}

	cases := []struct {
		name string
		c    describer
	}{
		{"http_requests_total", HTTPRequestsTotal},
		{"http_request_duration_seconds", HTTPRequestDuration},
		{"access_matrix_loads_total", AccessMatrixLoadsTotal},
		{"scope_resolutions_total", ScopeResolutionsTotal},
		{"approval_transitions_total", ApprovalTransitionsTotal},
		{"approval_conflicts_flagged_total", ApprovalConflictsFlaggedTotal},
		{"realtime_events_total", RealtimeEventsTotal},
		{"realtime_reconnects_total", RealtimeReconnectsTotal},
		{"notifications_sent_total", NotificationsSentTotal},
		{"approval_reminders_sent_total", ApprovalRemindersSentTotal},
		{"db_open_connections", DBOpenConnections},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			tc.c.Describe(ch)
			close(ch)
			for desc := range ch {
				// prometheus.Desc.String() returns a Go syntax string of the form:
				//   Desc{fqName: "<name>", help: "...", constLabels: {}, variableLabels: [...]}
				if strings.Contains(desc.String(), `"`+tc.name+`"`) {
					return // found — test passes
				}
			}
			t.Errorf("metric %q: Describe() returned no descriptor with this fqName", tc.name)
		})
	}
}

func TestMetrics_HTTPRequestsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, HTTPRequestsTotal, prometheus.Labels{
		"method": "GET", "path": "/test", "status": "200",
	})
	HTTPRequestsTotal.WithLabelValues("GET", "/test", "200").Inc()
	after := counterValue(t, HTTPRequestsTotal, prometheus.Labels{
		"method": "GET", "path": "/test", "status": "200",
	})
	if after-before < 1 {
		t.Errorf("HTTPRequestsTotal.Inc() did not increase counter (before=%.0f after=%.0f)", before, after)
	}
}

func TestMetrics_AccessMatrixLoadsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, AccessMatrixLoadsTotal, prometheus.Labels{"source": "cache"})
	AccessMatrixLoadsTotal.WithLabelValues("cache").Inc()
	after := counterValue(t, AccessMatrixLoadsTotal, prometheus.Labels{"source": "cache"})
	if after-before < 1 {
		t.Errorf("AccessMatrixLoadsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_ScopeResolutionsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, ScopeResolutionsTotal, prometheus.Labels{
		"role": "department_head", "outcome": "ok",
	})
	ScopeResolutionsTotal.WithLabelValues("department_head", "ok").Inc()
	after := counterValue(t, ScopeResolutionsTotal, prometheus.Labels{
		"role": "department_head", "outcome": "ok",
	})
	if after-before < 1 {
		t.Errorf("ScopeResolutionsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_ApprovalTransitionsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, ApprovalTransitionsTotal, prometheus.Labels{
		"transition": "approve", "outcome": "ok",
	})
	ApprovalTransitionsTotal.WithLabelValues("approve", "ok").Inc()
	after := counterValue(t, ApprovalTransitionsTotal, prometheus.Labels{
		"transition": "approve", "outcome": "ok",
	})
	if after-before < 1 {
		t.Errorf("ApprovalTransitionsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_ApprovalConflictsFlagged_CanBeIncremented(t *testing.T) {
	before := plainCounterValue(t, ApprovalConflictsFlaggedTotal)
	ApprovalConflictsFlaggedTotal.Inc()
	after := plainCounterValue(t, ApprovalConflictsFlaggedTotal)
	if after-before < 1 {
		t.Errorf("ApprovalConflictsFlaggedTotal.Inc() did not increase counter")
	}
}

func TestMetrics_RealtimeEventsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, RealtimeEventsTotal, prometheus.Labels{
		"table": "user_roles", "op": "UPDATE",
	})
	RealtimeEventsTotal.WithLabelValues("user_roles", "UPDATE").Inc()
	after := counterValue(t, RealtimeEventsTotal, prometheus.Labels{
		"table": "user_roles", "op": "UPDATE",
	})
	if after-before < 1 {
		t.Errorf("RealtimeEventsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_RealtimeReconnects_CanBeIncremented(t *testing.T) {
	before := plainCounterValue(t, RealtimeReconnectsTotal)
	RealtimeReconnectsTotal.Inc()
	after := plainCounterValue(t, RealtimeReconnectsTotal)
	if after-before < 1 {
		t.Errorf("RealtimeReconnectsTotal.Inc() did not increase counter")
	}
}

func TestMetrics_NotificationsSentTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, NotificationsSentTotal, prometheus.Labels{
		"channel": "store", "status": "ok",
	})
	NotificationsSentTotal.WithLabelValues("store", "ok").Inc()
	after := counterValue(t, NotificationsSentTotal, prometheus.Labels{
		"channel": "store", "status": "ok",
	})
	if after-before < 1 {
		t.Errorf("NotificationsSentTotal.Inc() did not increase counter")
	}
}

func TestMetrics_ApprovalReminders_CanBeIncremented(t *testing.T) {
	before := plainCounterValue(t, ApprovalRemindersSentTotal)
	ApprovalRemindersSentTotal.Inc()
	after := plainCounterValue(t, ApprovalRemindersSentTotal)
	if after-before < 1 {
		t.Errorf("ApprovalRemindersSentTotal.Inc() did not increase counter")
	}
}

func TestMetrics_HTTPRequestDuration_CanBeObserved(t *testing.T) {
	HTTPRequestDuration.WithLabelValues("GET", "/test").Observe(0.05)
	HTTPRequestDuration.WithLabelValues("POST", "/test").Observe(1.5)
	// If no panic, the histogram is functioning.
}

func TestMetrics_DBOpenConnections_CanBeSet(t *testing.T) {
	DBOpenConnections.Set(5)
	// If no panic, gauge is working.
	DBOpenConnections.Set(0) // reset to neutral value
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// counterValue reads the current value of a CounterVec for the given label set.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 20)
	cv.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if labelsMatch(dm.GetLabel(), labels) {
			return dm.GetCounter().GetValue()
		}
	}
	return 0
}

// plainCounterValue reads the value of a plain (non-vec) Counter.
func plainCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		return dm.GetCounter().GetValue()
	}
	return 0
}

// labelsMatch returns true when all entries in want appear in got.
func labelsMatch(got []*dto.LabelPair, want prometheus.Labels) bool {
	for k, v := range want {
		found := false
		for _, lp := range got {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
