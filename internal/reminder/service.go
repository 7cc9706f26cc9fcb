// Package reminder schedules one-shot local notifications tied to food item
// lifecycle.
package reminder

import "time"

// Service arms and disarms one-shot reminders. Arm replaces any existing
// reminder with the same id; Disarm is an idempotent no-op for unknown ids.
// Delivery is best-effort and never observed by callers.
type Service interface {
	// IsAuthorized reports whether reminders can be delivered at all. The
	// value is cached; call Refresh after subscription changes.
	IsAuthorized() bool
	Refresh()
	Arm(id string, fireAt time.Time, title, body string) error
	Disarm(ids []string) error
}
