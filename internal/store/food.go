package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/larder/internal/model"
)

type FoodStore struct {
	db       *sql.DB
	onChange ChangeFunc
}

func NewFoodStore(db *sql.DB) *FoodStore {
	return &FoodStore{db: db}
}

// SetOnChange registers the mutation observer. Pass nil to detach.
func (s *FoodStore) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

func (s *FoodStore) notify(action, id string) {
	if s.onChange != nil {
		s.onChange("food_item", action, id)
	}
}

const foodCols = `id, name, location, expires_at, notes, status, date_added, remaining_amount, size, sort_order`

func scanFoodItem(scanner interface{ Scan(...any) error }) (*model.FoodItem, error) {
	var item model.FoodItem
	var location, status string
	var size sql.NullString

	err := scanner.Scan(
		&item.ID, &item.Name, &location, &item.ExpiresAt, &item.Notes,
		&status, &item.DateAdded, &item.RemainingAmount, &size, &item.SortOrder,
	)
	if err != nil {
		return nil, err
	}

	if item.Location, err = model.ParseLocation(location); err != nil {
		return nil, err
	}
	if item.Status, err = model.ParseItemStatus(status); err != nil {
		return nil, err
	}
	if size.Valid {
		item.Size = &size.String
	}
	return &item, nil
}

func (s *FoodStore) Create(name string, location model.Location, expiresAt time.Time, notes string, size *string) (*model.FoodItem, error) {
	var sz sql.NullString
	if size != nil {
		sz = sql.NullString{String: *size, Valid: true}
	}

	id := uuid.NewString()

	// New items go to the end of the manual ordering.
	var next int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM food_items`).Scan(&next); err != nil {
		return nil, fmt.Errorf("next sort order: %w", err)
	}

	_, err := s.db.Exec(
		`INSERT INTO food_items (id, name, location, expires_at, notes, status, date_added, remaining_amount, size, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1.0, ?, ?)`,
		id, name, string(location), expiresAt, notes, string(model.StatusActive), time.Now().UTC(), sz, next,
	)
	if err != nil {
		return nil, fmt.Errorf("insert food item: %w", err)
	}

	s.notify("created", id)
	return s.GetByID(id)
}

func (s *FoodStore) GetByID(id string) (*model.FoodItem, error) {
	row := s.db.QueryRow(`SELECT `+foodCols+` FROM food_items WHERE id = ?`, id)
	item, err := scanFoodItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food item: %w", err)
	}
	return item, nil
}

// ListActive returns active items ordered by expiration date ascending, so
// the most urgent item enumerates first.
func (s *FoodStore) ListActive() ([]model.FoodItem, error) {
	rows, err := s.db.Query(
		`SELECT `+foodCols+` FROM food_items WHERE status = ? ORDER BY expires_at ASC, date_added ASC`,
		string(model.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("list active food items: %w", err)
	}
	defer rows.Close()
	return collectFoodItems(rows)
}

// List returns every item regardless of status, in manual sort order.
func (s *FoodStore) List() ([]model.FoodItem, error) {
	rows, err := s.db.Query(`SELECT ` + foodCols + ` FROM food_items ORDER BY sort_order ASC, date_added ASC`)
	if err != nil {
		return nil, fmt.Errorf("list food items: %w", err)
	}
	defer rows.Close()
	return collectFoodItems(rows)
}

func collectFoodItems(rows *sql.Rows) ([]model.FoodItem, error) {
	var items []model.FoodItem
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *FoodStore) Update(id, name string, location model.Location, expiresAt time.Time, notes string, size *string) (*model.FoodItem, error) {
	var sz sql.NullString
	if size != nil {
		sz = sql.NullString{String: *size, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE food_items SET name = ?, location = ?, expires_at = ?, notes = ?, size = ? WHERE id = ?`,
		name, string(location), expiresAt, notes, sz, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update food item: %w", err)
	}

	s.notify("updated", id)
	return s.GetByID(id)
}

// UpdateRemaining sets the remaining fraction, clamped to [0, 1].
func (s *FoodStore) UpdateRemaining(id string, amount float64) (*model.FoodItem, error) {
	_, err := s.db.Exec(
		`UPDATE food_items SET remaining_amount = ? WHERE id = ?`,
		model.ClampRemaining(amount), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update remaining amount: %w", err)
	}

	s.notify("updated", id)
	return s.GetByID(id)
}

func (s *FoodStore) UpdateStatus(id string, status model.ItemStatus) (*model.FoodItem, error) {
	_, err := s.db.Exec(`UPDATE food_items SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return nil, fmt.Errorf("update food item status: %w", err)
	}

	s.notify("updated", id)
	return s.GetByID(id)
}

func (s *FoodStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM food_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete food item: %w", err)
	}

	s.notify("deleted", id)
	return nil
}

// Reorder reassigns sort_order densely (0-based) following the given id
// order. Ids not present in the slice keep their row but move after the
// reordered ones on the next full reindex.
func (s *FoodStore) Reorder(ids []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE food_items SET sort_order = ? WHERE id = ?`, i, id); err != nil {
			return fmt.Errorf("reorder item %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}

	s.notify("reordered", "")
	return nil
}
