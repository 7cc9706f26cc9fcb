package reminder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

// Each food item owns two independent reminder slots.
const (
	warningSlotSuffix = "-warning"
	expirySlotSuffix  = "-expiry"
)

// fireHour is the local hour of day at which reminders fire.
const fireHour = 9

// Scheduler maps food item lifecycle events to armed and cancelled reminders.
// Every operation is best-effort: failures are logged and never surfaced to
// the item mutation that triggered them.
type Scheduler struct {
	svc    Service
	logger *slog.Logger
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(svc Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{svc: svc, logger: logger}
}

// Schedule arms the warning and day-of slots for an active item according to
// the preferences. It is a no-op when reminders are unauthorized or the item
// is no longer active. Fire times already in the past are silently skipped.
func (s *Scheduler) Schedule(item *model.FoodItem, prefs model.NotificationPrefs, now time.Time) {
	if item.Status != model.StatusActive || !s.svc.IsAuthorized() {
		return
	}

	if prefs.DaysBefore > 0 {
		fireAt := atHour(item.ExpiresAt.AddDate(0, 0, -prefs.DaysBefore), fireHour)
		if fireAt.After(now) {
			body := fmt.Sprintf("%s expires in %d days", item.Name, prefs.DaysBefore)
			if prefs.DaysBefore == 1 {
				body = item.Name + " expires tomorrow"
			}
			if err := s.svc.Arm(item.ID+warningSlotSuffix, fireAt, "Expiring soon", body); err != nil {
				s.logger.Error("arm warning reminder", "item_id", item.ID, "error", err)
			}
		}
	}

	if prefs.NotifyOnExpirationDay {
		fireAt := atHour(item.ExpiresAt, fireHour)
		if fireAt.After(now) {
			if err := s.svc.Arm(item.ID+expirySlotSuffix, fireAt, "Expires today", item.Name+" expires today"); err != nil {
				s.logger.Error("arm expiry reminder", "item_id", item.ID, "error", err)
			}
		}
	}
}

// Cancel clears both slots for the item id. It is safe to call on items that
// never had reminders armed, and calling it twice is a no-op the second time.
func (s *Scheduler) Cancel(itemID string) {
	ids := []string{itemID + warningSlotSuffix, itemID + expirySlotSuffix}
	if err := s.svc.Disarm(ids); err != nil {
		s.logger.Error("disarm reminders", "item_id", itemID, "error", err)
	}
}

// Reschedule cancels and re-arms both slots. Call it after any edit that can
// move the expiration date or change the item's status.
func (s *Scheduler) Reschedule(item *model.FoodItem, prefs model.NotificationPrefs, now time.Time) {
	s.Cancel(item.ID)
	s.Schedule(item, prefs, now)
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
