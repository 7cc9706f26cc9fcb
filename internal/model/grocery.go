package model

import "time"

// GroceryItem is a shopping-list entry. It is associated with food items only
// by name (lowercased, trimmed) — there is no foreign key, so an entry
// outlives the item that spawned it until it is purchased.
type GroceryItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	DateAdded time.Time `json:"date_added"`
}
