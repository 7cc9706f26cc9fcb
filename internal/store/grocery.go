package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/larder/internal/model"
)

type GroceryStore struct {
	db       *sql.DB
	onChange ChangeFunc
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db}
}

// SetOnChange registers the mutation observer. Pass nil to detach.
func (s *GroceryStore) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

func (s *GroceryStore) notify(action, id string) {
	if s.onChange != nil {
		s.onChange("grocery_item", action, id)
	}
}

const groceryCols = `id, name, completed, date_added`

func scanGroceryItem(scanner interface{ Scan(...any) error }) (*model.GroceryItem, error) {
	var item model.GroceryItem
	var completed int

	if err := scanner.Scan(&item.ID, &item.Name, &completed, &item.DateAdded); err != nil {
		return nil, err
	}
	item.Completed = completed != 0
	return &item, nil
}

func (s *GroceryStore) Create(name string) (*model.GroceryItem, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO grocery_items (id, name, completed, date_added) VALUES (?, ?, 0, ?)`,
		id, name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert grocery item: %w", err)
	}

	s.notify("created", id)
	return s.GetByID(id)
}

func (s *GroceryStore) GetByID(id string) (*model.GroceryItem, error) {
	row := s.db.QueryRow(`SELECT `+groceryCols+` FROM grocery_items WHERE id = ?`, id)
	item, err := scanGroceryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery item: %w", err)
	}
	return item, nil
}

// List returns all grocery items, completed or not, oldest first.
func (s *GroceryStore) List() ([]model.GroceryItem, error) {
	rows, err := s.db.Query(`SELECT ` + groceryCols + ` FROM grocery_items ORDER BY date_added ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list grocery items: %w", err)
	}
	defer rows.Close()

	var items []model.GroceryItem
	for rows.Next() {
		item, err := scanGroceryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grocery item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ToggleCompleted flips the purchase flag. Returns nil when the item does not
// exist.
func (s *GroceryStore) ToggleCompleted(id string) (*model.GroceryItem, error) {
	item, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	completed := 0
	if !item.Completed {
		completed = 1
	}
	if _, err := s.db.Exec(`UPDATE grocery_items SET completed = ? WHERE id = ?`, completed, id); err != nil {
		return nil, fmt.Errorf("toggle completed: %w", err)
	}

	s.notify("updated", id)
	return s.GetByID(id)
}

func (s *GroceryStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM grocery_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete grocery item: %w", err)
	}

	s.notify("deleted", id)
	return nil
}

// ClearCompleted removes every purchased entry and returns how many were
// deleted.
func (s *GroceryStore) ClearCompleted() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM grocery_items WHERE completed = 1`)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if count > 0 {
		s.notify("deleted", "")
	}
	return count, nil
}

// CountPending returns the number of unpurchased entries.
func (s *GroceryStore) CountPending() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM grocery_items WHERE completed = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}
