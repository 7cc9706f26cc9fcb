package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

// ReminderStore persists armed one-shot reminders until they are delivered.
type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// Upsert arms a reminder, replacing any existing reminder with the same id.
func (s *ReminderStore) Upsert(id string, fireAt time.Time, title, body string) error {
	_, err := s.db.Exec(
		`INSERT INTO reminders (id, fire_at, title, body, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fire_at = excluded.fire_at, title = excluded.title, body = excluded.body`,
		id, fireAt.UTC(), title, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert reminder %s: %w", id, err)
	}
	return nil
}

// Delete removes the given reminder ids. Missing ids are ignored.
func (s *ReminderStore) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.Exec(`DELETE FROM reminders WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}
	return nil
}

// ListDue returns reminders whose fire time has passed, oldest first.
func (s *ReminderStore) ListDue(now time.Time) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT id, fire_at, title, body, created_at FROM reminders WHERE fire_at <= ? ORDER BY fire_at ASC`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(&r.ID, &r.FireAt, &r.Title, &r.Body, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// List returns every armed reminder, soonest first.
func (s *ReminderStore) List() ([]model.Reminder, error) {
	rows, err := s.db.Query(`SELECT id, fire_at, title, body, created_at FROM reminders ORDER BY fire_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(&r.ID, &r.FireAt, &r.Title, &r.Body, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
