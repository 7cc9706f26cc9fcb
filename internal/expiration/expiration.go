package expiration

import (
	"fmt"
	"time"
)

// Status classifies how urgent a food item's expiration date is.
type Status string

const (
	StatusExpired Status = "expired"
	StatusWarning Status = "warning"
	StatusSafe    Status = "safe"
)

// warningWindowDays is the number of days (inclusive) before expiration during
// which an item counts as warning rather than safe.
const warningWindowDays = 3

// DaysUntil returns the whole calendar-day difference between today and the
// expiration date, ignoring the time-of-day of both arguments. Negative means
// the date has passed.
func DaysUntil(today, expiresAt time.Time) int {
	from := startOfDay(today)
	to := startOfDay(expiresAt)
	// Round absorbs the 23h/25h days around DST transitions.
	return int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
}

// Classify maps a day count from DaysUntil to a Status.
func Classify(days int) Status {
	switch {
	case days < 0:
		return StatusExpired
	case days <= warningWindowDays:
		return StatusWarning
	default:
		return StatusSafe
	}
}

// StatusFor is Classify(DaysUntil(today, expiresAt)). Callers must invoke it
// on every read — "today" advances, so the result is never stored.
func StatusFor(today, expiresAt time.Time) Status {
	return Classify(DaysUntil(today, expiresAt))
}

// Text renders the human-readable urgency line for a day count.
func Text(days int) string {
	switch {
	case days < 0:
		n := -days
		if n == 1 {
			return "Expired 1 day ago"
		}
		return fmt.Sprintf("Expired %d days ago", n)
	case days == 0:
		return "Expires today"
	case days == 1:
		return "Expires tomorrow"
	default:
		return fmt.Sprintf("Expires in %d days", days)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
