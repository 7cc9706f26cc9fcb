package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type GroceryHandler struct {
	groceries *store.GroceryStore
	logger    *slog.Logger
}

func NewGroceryHandler(gs *store.GroceryStore, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{groceries: gs, logger: logger}
}

func (h *GroceryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.groceries.Create(req.Name)
	if err != nil {
		h.logger.Error("create grocery item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *GroceryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.groceries.List()
	if err != nil {
		h.logger.Error("list grocery items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.GroceryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *GroceryHandler) ToggleCompleted(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.groceries.ToggleCompleted(id)
	if err != nil {
		h.logger.Error("toggle grocery item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *GroceryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.groceries.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.groceries.Delete(id); err != nil {
		h.logger.Error("delete grocery item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroceryHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	count, err := h.groceries.ClearCompleted()
	if err != nil {
		h.logger.Error("clear completed grocery items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear completed items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": count})
}
