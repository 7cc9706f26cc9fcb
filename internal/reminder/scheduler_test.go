package reminder

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type fakeService struct {
	authorized bool
	armed      map[string]armedReminder
	disarmed   [][]string
}

type armedReminder struct {
	fireAt time.Time
	title  string
	body   string
}

func newFakeService(authorized bool) *fakeService {
	return &fakeService{authorized: authorized, armed: make(map[string]armedReminder)}
}

func (f *fakeService) IsAuthorized() bool { return f.authorized }
func (f *fakeService) Refresh()           {}

func (f *fakeService) Arm(id string, fireAt time.Time, title, body string) error {
	f.armed[id] = armedReminder{fireAt: fireAt, title: title, body: body}
	return nil
}

func (f *fakeService) Disarm(ids []string) error {
	f.disarmed = append(f.disarmed, ids)
	for _, id := range ids {
		delete(f.armed, id)
	}
	return nil
}

var schedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func activeItem(name string, expiresAt time.Time) *model.FoodItem {
	return &model.FoodItem{
		ID:        "item-1",
		Name:      name,
		Location:  model.LocationFridge,
		ExpiresAt: expiresAt,
		Status:    model.StatusActive,
	}
}

func TestScheduleArmsBothSlots(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	prefs := model.NotificationPrefs{DaysBefore: 3, NotifyOnExpirationDay: true}

	sched.Schedule(item, prefs, schedNow)

	warning, ok := svc.armed["item-1-warning"]
	if !ok {
		t.Fatal("warning slot not armed")
	}
	wantWarn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if !warning.fireAt.Equal(wantWarn) {
		t.Errorf("warning fireAt = %v, want %v", warning.fireAt, wantWarn)
	}
	if warning.body != "Milk expires in 3 days" {
		t.Errorf("warning body = %q", warning.body)
	}

	expiry, ok := svc.armed["item-1-expiry"]
	if !ok {
		t.Fatal("expiry slot not armed")
	}
	wantExpiry := time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)
	if !expiry.fireAt.Equal(wantExpiry) {
		t.Errorf("expiry fireAt = %v, want %v", expiry.fireAt, wantExpiry)
	}
	if expiry.body != "Milk expires today" {
		t.Errorf("expiry body = %q", expiry.body)
	}
}

func TestScheduleOneDayLeadUsesTomorrowText(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	sched.Schedule(item, model.NotificationPrefs{DaysBefore: 1}, schedNow)

	warning, ok := svc.armed["item-1-warning"]
	if !ok {
		t.Fatal("warning slot not armed")
	}
	if warning.body != "Milk expires tomorrow" {
		t.Errorf("warning body = %q, want %q", warning.body, "Milk expires tomorrow")
	}
}

func TestScheduleUnauthorizedIsNoOp(t *testing.T) {
	svc := newFakeService(false)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	sched.Schedule(item, model.DefaultNotificationPrefs, schedNow)

	if len(svc.armed) != 0 {
		t.Errorf("armed %d reminders while unauthorized", len(svc.armed))
	}
}

func TestScheduleInactiveItemIsNoOp(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	item.Status = model.StatusUsed
	sched.Schedule(item, model.DefaultNotificationPrefs, schedNow)

	if len(svc.armed) != 0 {
		t.Errorf("armed %d reminders for inactive item", len(svc.armed))
	}
}

func TestSchedulePastFireDatesSkipped(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	// Expires tomorrow: the 3-day warning would fire in the past, the day-of
	// reminder is still ahead.
	item := activeItem("Milk", schedNow.AddDate(0, 0, 1))
	prefs := model.NotificationPrefs{DaysBefore: 3, NotifyOnExpirationDay: true}
	sched.Schedule(item, prefs, schedNow)

	if _, ok := svc.armed["item-1-warning"]; ok {
		t.Error("warning slot armed for a past fire date")
	}
	if _, ok := svc.armed["item-1-expiry"]; !ok {
		t.Error("expiry slot should be armed")
	}
}

func TestScheduleZeroLeadDisablesWarning(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	sched.Schedule(item, model.NotificationPrefs{DaysBefore: 0, NotifyOnExpirationDay: true}, schedNow)

	if _, ok := svc.armed["item-1-warning"]; ok {
		t.Error("warning slot armed with zero lead time")
	}
}

func TestCancelClearsBothSlotsAndIsIdempotent(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	sched.Schedule(item, model.DefaultNotificationPrefs, schedNow)

	sched.Cancel("item-1")
	if len(svc.armed) != 0 {
		t.Errorf("%d reminders still armed after cancel", len(svc.armed))
	}

	// Second cancel must be a quiet no-op.
	sched.Cancel("item-1")
	if len(svc.disarmed) != 2 {
		t.Fatalf("expected 2 disarm calls, got %d", len(svc.disarmed))
	}
	for _, ids := range svc.disarmed {
		if len(ids) != 2 {
			t.Errorf("disarm ids = %v, want both slots", ids)
		}
	}
}

func TestRescheduleReplacesSlots(t *testing.T) {
	svc := newFakeService(true)
	sched := NewScheduler(svc, slog.Default())

	item := activeItem("Milk", schedNow.AddDate(0, 0, 7))
	prefs := model.NotificationPrefs{DaysBefore: 3, NotifyOnExpirationDay: true}
	sched.Schedule(item, prefs, schedNow)

	// Expiration pushed out a week.
	item.ExpiresAt = schedNow.AddDate(0, 0, 14)
	sched.Reschedule(item, prefs, schedNow)

	expiry := svc.armed["item-1-expiry"]
	want := time.Date(2026, 3, 24, 9, 0, 0, 0, time.UTC)
	if !expiry.fireAt.Equal(want) {
		t.Errorf("expiry fireAt = %v, want %v", expiry.fireAt, want)
	}
	if len(svc.armed) != 2 {
		t.Errorf("%d reminders armed, want 2", len(svc.armed))
	}
}
