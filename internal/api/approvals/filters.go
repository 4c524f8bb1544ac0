package approvals

import (
	"fmt"
	"strings"

	"github.com/konshedo/planivo/internal/db/models"
)

var knownStatuses = map[models.ApprovalStatus]bool{
	models.StatusDraft:         true,
	models.StatusSubmitted:     true,
	models.StatusLevel1Pending: true,
	models.StatusLevel2Pending: true,
	models.StatusLevel3Pending: true,
	models.StatusFullyApproved: true,
	models.StatusRejected:      true,
	models.StatusCancelled:     true,
}

// parseStatuses parses a comma-separated ?status= filter. An empty filter
// means "all statuses" and returns nil.
func parseStatuses(raw string) ([]models.ApprovalStatus, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.ApprovalStatus, 0, len(parts))
	for _, p := range parts {
		s := models.ApprovalStatus(strings.TrimSpace(p))
		if !knownStatuses[s] {
			return nil, fmt.Errorf("unknown status: %s", p)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}
