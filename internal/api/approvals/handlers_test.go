package approvals

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/konshedo/planivo/internal/approval"
	"github.com/konshedo/planivo/internal/db/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// writeEngineError
// ---------------------------------------------------------------------------

func TestWriteEngineError_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", approval.ErrNotFound, http.StatusNotFound},
		{"duplicate decision", approval.ErrDuplicateDecision, http.StatusConflict},
		{"already terminal", approval.ErrRequestAlreadyTerminal, http.StatusConflict},
		{"invalid transition", approval.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{"not eligible", approval.ErrNotEligible, http.StatusForbidden},
		{"not requester", approval.ErrNotRequester, http.StatusForbidden},
		{"no approver", approval.ErrNoApproverConfigured, http.StatusPreconditionFailed},
		{"unknown scope", approval.ErrUnknownScope, http.StatusNotFound},
		{"invalid date range", approval.ErrInvalidDateRange, http.StatusBadRequest},
		{"unmapped", fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeEngineError(c, tc.err)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

// Wrapped sentinels must keep their specific mapping even though they also
// match the broader ErrInvalidTransition class.
func TestWriteEngineError_WrappedSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: step 2", approval.ErrDuplicateDecision), http.StatusConflict},
		{fmt.Errorf("%w: request rejected", approval.ErrRequestAlreadyTerminal), http.StatusConflict},
		{fmt.Errorf("%w: request is no longer a draft", approval.ErrInvalidTransition), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: department dep-9", approval.ErrUnknownScope), http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeEngineError(c, tc.err)
		if w.Code != tc.want {
			t.Errorf("writeEngineError(%v) = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// parseStatuses
// ---------------------------------------------------------------------------

func TestParseStatuses(t *testing.T) {
	got, err := parseStatuses("draft,level_1_pending,fully_approved")
	if err != nil {
		t.Fatalf("parseStatuses: %v", err)
	}
	want := []models.ApprovalStatus{
		models.StatusDraft,
		models.StatusLevel1Pending,
		models.StatusFullyApproved,
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseStatuses_Empty(t *testing.T) {
	got, err := parseStatuses("")
	if err != nil {
		t.Fatalf("parseStatuses: %v", err)
	}
	if got != nil {
		t.Errorf("empty filter = %v, want nil (all statuses)", got)
	}
}

func TestParseStatuses_Unknown(t *testing.T) {
	if _, err := parseStatuses("draft,bogus"); err == nil {
		t.Error("expected error for unknown status")
	}
}
