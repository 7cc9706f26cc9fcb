// Package pantry keeps the shopping list consistent with inventory urgency.
package pantry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/expiration"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

// lowStockThreshold is the remaining fraction below which an item needs
// restocking regardless of its expiration date.
const lowStockThreshold = 0.3

// Engine derives the grocery list from the food inventory. Food and grocery
// entries are matched by lowercased, trimmed name — there is no foreign key,
// so a grocery entry survives the item that spawned it until purchased.
type Engine struct {
	mu        sync.RWMutex
	foods     *store.FoodStore
	groceries *store.GroceryStore
	interval  time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEngine creates a reconciliation engine.
func NewEngine(foods *store.FoodStore, groceries *store.GroceryStore, logger *slog.Logger) *Engine {
	return &Engine{
		foods:     foods,
		groceries: groceries,
		interval:  time.Hour,
		logger:    logger,
	}
}

// Key normalizes a name for food/grocery matching.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func needsRestock(item model.FoodItem, now time.Time) bool {
	if expiration.StatusFor(now, item.ExpiresAt) != expiration.StatusSafe {
		return true
	}
	return item.RemainingAmount < lowStockThreshold
}

func healthy(item model.FoodItem, now time.Time) bool {
	return !needsRestock(item, now)
}

// Reconcile runs one admission-then-eviction pass. It is idempotent: running
// it twice with no intervening state change produces no duplicate entries and
// no spurious deletions.
func (e *Engine) Reconcile(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, err := e.foods.ListActive()
	if err != nil {
		return fmt.Errorf("list active items: %w", err)
	}
	groceries, err := e.groceries.List()
	if err != nil {
		return fmt.Errorf("list grocery items: %w", err)
	}

	// Admission: every low-stock or expiring active item gets a grocery entry
	// unless one with the same key already exists. The key set grows as we
	// insert, so two same-named items admit only once per pass.
	existing := make(map[string]struct{}, len(groceries))
	for _, g := range groceries {
		existing[Key(g.Name)] = struct{}{}
	}
	for _, item := range active {
		if !needsRestock(item, now) {
			continue
		}
		key := Key(item.Name)
		if key == "" {
			continue
		}
		if _, ok := existing[key]; ok {
			continue
		}
		if _, err := e.groceries.Create(strings.TrimSpace(item.Name)); err != nil {
			return fmt.Errorf("admit %q: %w", item.Name, err)
		}
		existing[key] = struct{}{}
	}

	// Eviction: drop pending entries whose matching active item is healthy
	// again. Completed entries and entries with no active match are kept —
	// a consumed item's entry must survive until purchased. The first item
	// in expiration order wins a name collision; only its healthy bit is
	// consulted, so the choice cannot change the outcome.
	byKey := make(map[string]model.FoodItem, len(active))
	for _, item := range active {
		key := Key(item.Name)
		if key == "" {
			continue
		}
		if _, ok := byKey[key]; !ok {
			byKey[key] = item
		}
	}
	for _, g := range groceries {
		if g.Completed {
			continue
		}
		item, ok := byKey[Key(g.Name)]
		if !ok {
			continue
		}
		if healthy(item, now) {
			if err := e.groceries.Delete(g.ID); err != nil {
				return fmt.Errorf("evict %q: %w", g.Name, err)
			}
		}
	}

	return nil
}

// Start begins the periodic reconciliation loop. Urgency shifts as the clock
// advances even when nothing is edited, so the list is re-derived hourly.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	interval := e.interval
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.Reconcile(time.Now()); err != nil {
					e.logger.Error("periodic reconcile", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the periodic loop.
func (e *Engine) Stop() {
	e.mu.RLock()
	cancel := e.cancel
	done := e.done
	e.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
