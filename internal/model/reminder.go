package model

import "time"

// Reminder is a one-shot armed local notification. It is deleted once
// delivered; fired reminders are not tracked.
type Reminder struct {
	ID        string    `json:"id"`
	FireAt    time.Time `json:"fire_at"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
