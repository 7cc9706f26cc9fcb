package model

import "time"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationPrefs controls reminder scheduling.
type NotificationPrefs struct {
	// DaysBefore is the pre-expiry warning lead time in days. 0 disables the
	// warning reminder.
	DaysBefore int `json:"days_before_notification"`
	// NotifyOnExpirationDay arms a day-of reminder at 09:00 local time.
	NotifyOnExpirationDay bool `json:"notify_on_expiration_day"`
}

// DefaultNotificationPrefs are applied when no settings rows exist yet.
var DefaultNotificationPrefs = NotificationPrefs{
	DaysBefore:            3,
	NotifyOnExpirationDay: true,
}

// ValidDaysBefore reports whether n is an allowed warning lead time.
func ValidDaysBefore(n int) bool {
	switch n {
	case 1, 2, 3, 5, 7:
		return true
	}
	return false
}
