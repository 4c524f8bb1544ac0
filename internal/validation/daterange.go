// daterange.go validates absence request date ranges before they reach the
// approval engine. Ranges are half-open calendar-day intervals [start, end).
package validation

import (
	"fmt"
	"time"
)

// ValidateDateRange checks that a half-open date range is non-empty and, when
// maxDays is positive, no longer than maxDays days.
func ValidateDateRange(start, end time.Time, maxDays int) error {
	if !start.Before(end) {
		return fmt.Errorf("end date must be after start date: [%s, %s)",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	if maxDays > 0 {
		days := int(end.Sub(start).Hours() / 24)
		if days > maxDays {
			return fmt.Errorf("request spans %d days, maximum is %d", days, maxDays)
		}
	}
	return nil
}
