package trial

import (
	"fmt"
	"time"
)

// ExpiredLabel is shown once the trial period is over.
const ExpiredLabel = "Истек"

// FormatRemaining renders the remaining trial time for display.
// Hours and minutes are floored: 125m -> "2 ч 5 мин", 40m -> "40 мин".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return ExpiredLabel
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours >= 1 {
		return fmt.Sprintf("%d ч %d мин", hours, minutes)
	}
	return fmt.Sprintf("%d мин", minutes)
}
