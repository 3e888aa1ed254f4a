package analyzer

import (
	"fmt"
	"time"
)

// ClockLayout is the display layout for times of day.
const ClockLayout = "15:04:05"

// FormatDuration renders seconds as H:MM:SS. Negative values render as
// 0:00:00.
func FormatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// FormatClock renders a timestamp as a time of day, or "--" when unknown.
func FormatClock(ts *time.Time) string {
	if ts == nil {
		return "--"
	}
	return ts.Format(ClockLayout)
}
