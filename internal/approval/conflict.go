package approval

import (
	"context"
	"fmt"

	"github.com/konshedo/planivo/internal/db/models"
)

// sweepConflict evaluates whether approving the request would push the
// scope's coverage below its minimum on any day of the absence. The sweep
// only flags; it never blocks a transition.
func (e *Engine) sweepConflict(ctx context.Context, req *models.ApprovalRequest) (bool, error) {
	minCoverage, err := e.org.MinCoverage(ctx, req.ScopeType, req.ScopeID)
	if err != nil {
		return false, fmt.Errorf("loading minimum coverage: %w", err)
	}
	if minCoverage <= 0 {
		minCoverage = e.cfg.DefaultMinCoverage
	}
	if minCoverage <= 0 {
		return false, nil
	}

	staff, err := e.org.CountStaff(ctx, req.ScopeType, req.ScopeID)
	if err != nil {
		return false, fmt.Errorf("counting staff: %w", err)
	}

	overlapping, err := e.store.ListOverlapping(ctx, req.ScopeType, req.ScopeID, req.StartDate, req.EndDate, req.ID)
	if err != nil {
		return false, fmt.Errorf("listing overlapping requests: %w", err)
	}

	return coverageConflict(req, overlapping, staff, minCoverage), nil
}

// coverageConflict walks every day of the request's half-open [start, end)
// range and reports whether the distinct set of absent staff (this requester
// plus everyone with an overlapping approved or in-flight request) drops the
// day's coverage below the minimum.
func coverageConflict(req *models.ApprovalRequest, overlapping []*models.ApprovalRequest, staffCount, minCoverage int) bool {
	for day := req.StartDate; day.Before(req.EndDate); day = day.AddDate(0, 0, 1) {
		absent := map[string]struct{}{req.RequesterID: {}}
		for _, other := range overlapping {
			if !day.Before(other.StartDate) && day.Before(other.EndDate) {
				absent[other.RequesterID] = struct{}{}
			}
		}
		if staffCount-len(absent) < minCoverage {
			return true
		}
	}
	return false
}
