package model

import (
	"fmt"
	"time"
)

// Location is where a food item is stored.
type Location string

const (
	LocationFridge  Location = "fridge"
	LocationFreezer Location = "freezer"
	LocationPantry  Location = "pantry"
)

// ParseLocation converts the stored string form back to a Location.
// The raw string only exists at the database boundary.
func ParseLocation(raw string) (Location, error) {
	switch Location(raw) {
	case LocationFridge, LocationFreezer, LocationPantry:
		return Location(raw), nil
	}
	return "", fmt.Errorf("unknown location %q", raw)
}

// ItemStatus is the lifecycle flag for a food item. Consuming or tossing an
// item does not delete it; it transitions to used or discarded and drops out
// of active views.
type ItemStatus string

const (
	StatusActive    ItemStatus = "active"
	StatusUsed      ItemStatus = "used"
	StatusDiscarded ItemStatus = "discarded"
)

// ParseItemStatus converts the stored string form back to an ItemStatus.
func ParseItemStatus(raw string) (ItemStatus, error) {
	switch ItemStatus(raw) {
	case StatusActive, StatusUsed, StatusDiscarded:
		return ItemStatus(raw), nil
	}
	return "", fmt.Errorf("unknown item status %q", raw)
}

type FoodItem struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Location        Location   `json:"location"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Notes           string     `json:"notes"`
	Status          ItemStatus `json:"status"`
	DateAdded       time.Time  `json:"date_added"`
	RemainingAmount float64    `json:"remaining_amount"`
	Size            *string    `json:"size,omitempty"`
	SortOrder       int        `json:"sort_order"`
}

// ClampRemaining bounds a remaining-amount value to [0, 1]. 1.0 means full.
func ClampRemaining(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
