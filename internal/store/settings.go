package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

const (
	keyDaysBefore  = "days_before_notification"
	keyNotifyOnDay = "notify_on_expiration_day"
)

type SettingsStore struct {
	db       *sql.DB
	onChange ChangeFunc
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// SetOnChange registers the mutation observer. Pass nil to detach.
func (s *SettingsStore) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}

	if s.onChange != nil {
		s.onChange("setting", "updated", key)
	}
	return nil
}

// NotificationPrefs reads the reminder preferences, falling back to defaults
// for missing or malformed rows.
func (s *SettingsStore) NotificationPrefs() (model.NotificationPrefs, error) {
	prefs := model.DefaultNotificationPrefs

	if raw, err := s.Get(keyDaysBefore); err == nil {
		if n, err := strconv.Atoi(raw); err == nil && (n == 0 || model.ValidDaysBefore(n)) {
			prefs.DaysBefore = n
		}
	}
	if raw, err := s.Get(keyNotifyOnDay); err == nil {
		prefs.NotifyOnExpirationDay = raw == "true"
	}
	return prefs, nil
}

// SetNotificationPrefs persists the reminder preferences.
func (s *SettingsStore) SetNotificationPrefs(prefs model.NotificationPrefs) error {
	if err := s.Set(keyDaysBefore, strconv.Itoa(prefs.DaysBefore)); err != nil {
		return err
	}
	return s.Set(keyNotifyOnDay, strconv.FormatBool(prefs.NotifyOnExpirationDay))
}

// GetBackupSettings returns all backup_* settings as a map. Missing keys are
// simply absent from the result.
func (s *SettingsStore) GetBackupSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings WHERE key LIKE 'backup_%'`)
	if err != nil {
		return nil, fmt.Errorf("get backup settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}
