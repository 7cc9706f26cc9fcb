package store

// ChangeFunc observes successful store mutations. entity is one of
// "food_item", "grocery_item", or "setting"; action is "created", "updated",
// "deleted", or "reordered". The callback runs synchronously on the mutating
// goroutine, after the write has committed.
type ChangeFunc func(entity, action, id string)
