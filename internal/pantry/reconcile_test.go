package pantry

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *store.FoodStore, *store.GroceryStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	foods := store.NewFoodStore(db)
	groceries := store.NewGroceryStore(db)
	return NewEngine(foods, groceries, slog.Default()), foods, groceries
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func addItem(t *testing.T, foods *store.FoodStore, name string, expiresAt time.Time) *model.FoodItem {
	t.Helper()
	item, err := foods.Create(name, model.LocationFridge, expiresAt, "", nil)
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	return item
}

func groceryNames(t *testing.T, groceries *store.GroceryStore) []string {
	t.Helper()
	items, err := groceries.List()
	if err != nil {
		t.Fatalf("list groceries: %v", err)
	}
	names := make([]string, len(items))
	for i, g := range items {
		names[i] = g.Name
	}
	return names
}

func TestSafeItemNotAdmitted(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "Milk", testNow.AddDate(0, 0, 7))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 0 {
		t.Errorf("grocery list = %v, want empty", names)
	}
}

func TestWarningItemAdmitted(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "Milk", testNow.AddDate(0, 0, 2))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	items, _ := groceries.List()
	if len(items) != 1 {
		t.Fatalf("expected 1 grocery item, got %d", len(items))
	}
	if items[0].Name != "Milk" {
		t.Errorf("name = %q, want %q", items[0].Name, "Milk")
	}
	if items[0].Completed {
		t.Error("admitted item should not be completed")
	}
}

func TestExpiredItemAdmitted(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "Chicken", testNow.AddDate(0, 0, -1))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 || names[0] != "Chicken" {
		t.Errorf("grocery list = %v, want [Chicken]", names)
	}
}

func TestLowStockAdmitted(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	// Safe expiration but nearly empty.
	item := addItem(t, foods, "Butter", testNow.AddDate(0, 0, 30))
	if _, err := foods.UpdateRemaining(item.ID, 0.2); err != nil {
		t.Fatalf("update remaining: %v", err)
	}

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 || names[0] != "Butter" {
		t.Errorf("grocery list = %v, want [Butter]", names)
	}
}

func TestAdmissionIdempotent(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "Milk", testNow.AddDate(0, 0, 2))

	for i := 0; i < 3; i++ {
		if err := e.Reconcile(testNow); err != nil {
			t.Fatalf("reconcile pass %d: %v", i, err)
		}
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Errorf("grocery list = %v, want a single entry", names)
	}
}

func TestAdmissionMatchesCaseInsensitively(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	// A manually added "milk" blocks admission of expiring "Milk".
	if _, err := groceries.Create("milk"); err != nil {
		t.Fatalf("create grocery: %v", err)
	}
	addItem(t, foods, "  Milk ", testNow.AddDate(0, 0, 1))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Errorf("grocery list = %v, want a single entry", names)
	}
}

func TestSameNameAdmitsOncePerPass(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "Yogurt", testNow.AddDate(0, 0, 1))
	addItem(t, foods, "yogurt", testNow.AddDate(0, 0, -2))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Errorf("grocery list = %v, want a single entry", names)
	}
}

func TestEmptyNameNeverAdmitted(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "   ", testNow.AddDate(0, 0, 1))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 0 {
		t.Errorf("grocery list = %v, want empty", names)
	}
}

func TestEvictionWhenHealthyAgain(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	item := addItem(t, foods, "Milk", testNow.AddDate(0, 0, 2))
	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Fatalf("grocery list = %v, want [Milk]", names)
	}

	// Replaced with a fresh carton: expiration pushed out, amount restored.
	if _, err := foods.Update(item.ID, "Milk", model.LocationFridge, testNow.AddDate(0, 0, 14), "", nil); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if _, err := foods.UpdateRemaining(item.ID, 1.0); err != nil {
		t.Fatalf("update remaining: %v", err)
	}

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 0 {
		t.Errorf("grocery list = %v, want empty after eviction", names)
	}
}

func TestCompletedEntryNeverEvicted(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	addItem(t, foods, "Milk", testNow.AddDate(0, 0, 14))

	g, err := groceries.Create("Milk")
	if err != nil {
		t.Fatalf("create grocery: %v", err)
	}
	if _, err := groceries.ToggleCompleted(g.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Errorf("grocery list = %v, completed entry must survive", names)
	}
}

func TestEntryWithoutActiveMatchKept(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	// Item consumed after its entry was admitted.
	item := addItem(t, foods, "Milk", testNow.AddDate(0, 0, 1))
	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if _, err := foods.UpdateStatus(item.ID, model.StatusUsed); err != nil {
		t.Fatalf("update status: %v", err)
	}

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 || names[0] != "Milk" {
		t.Errorf("grocery list = %v, entry must outlive the consumed item", names)
	}
}

func TestManualEntryWithoutMatchKept(t *testing.T) {
	e, _, groceries := setupEngine(t)

	if _, err := groceries.Create("Olive oil"); err != nil {
		t.Fatalf("create grocery: %v", err)
	}

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Errorf("grocery list = %v, manual entry must be kept", names)
	}
}

func TestNameCollisionUsesFirstInExpirationOrder(t *testing.T) {
	e, foods, groceries := setupEngine(t)

	// Two active "Milk" items: the earlier-expiring one is the match, and it
	// is unhealthy, so the entry stays even though the second one is fine.
	addItem(t, foods, "Milk", testNow.AddDate(0, 0, 1))
	addItem(t, foods, "Milk", testNow.AddDate(0, 0, 20))

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Fatalf("grocery list = %v, want [Milk]", names)
	}

	if err := e.Reconcile(testNow); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if names := groceryNames(t, groceries); len(names) != 1 {
		t.Errorf("grocery list = %v, entry must not be evicted", names)
	}
}
