package utils

import (
	"fmt"
	"time"
)

// FormatTimeAgo returns a human-readable string representing how long ago a
// time was.
func FormatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return FormatDuration(time.Since(t)) + " ago"
}

// FormatDuration converts a duration to a human-readable string with second
// granularity below one minute.
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = 0
	}

	if seconds < 60 {
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}

	days := hours / 24
	if days == 1 {
		return "1 day"
	}

	return fmt.Sprintf("%d days", days)
}
