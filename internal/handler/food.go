package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/expiration"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/reminder"
	"github.com/dukerupert/larder/internal/size"
	"github.com/dukerupert/larder/internal/store"
)

type FoodHandler struct {
	foods     *store.FoodStore
	settings  *store.SettingsStore
	scheduler *reminder.Scheduler
	logger    *slog.Logger
}

func NewFoodHandler(fs *store.FoodStore, ss *store.SettingsStore, sched *reminder.Scheduler, logger *slog.Logger) *FoodHandler {
	return &FoodHandler{foods: fs, settings: ss, scheduler: sched, logger: logger}
}

type foodItemRequest struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	ExpiresAt string `json:"expires_at"`
	Notes     string `json:"notes"`
	Quantity  string `json:"quantity"`
	Unit      string `json:"unit"`
}

// foodItemResponse augments the stored item with derived expiration state so
// clients never re-implement the classification rules.
type foodItemResponse struct {
	model.FoodItem
	DaysUntilExpiration int               `json:"days_until_expiration"`
	ExpirationStatus    expiration.Status `json:"expiration_status"`
	ExpirationText      string            `json:"expiration_text"`
	Quantity            string            `json:"quantity,omitempty"`
	Unit                string            `json:"unit,omitempty"`
}

func foodResponse(item *model.FoodItem, now time.Time) foodItemResponse {
	days := expiration.DaysUntil(now, item.ExpiresAt)
	resp := foodItemResponse{
		FoodItem:            *item,
		DaysUntilExpiration: days,
		ExpirationStatus:    expiration.Classify(days),
		ExpirationText:      expiration.Text(days),
	}
	if item.Size != nil {
		qty, unit := size.Parse(*item.Size)
		resp.Quantity = qty
		resp.Unit = string(unit)
	}
	return resp
}

func foodResponses(items []model.FoodItem, now time.Time) []foodItemResponse {
	resps := make([]foodItemResponse, len(items))
	for i := range items {
		resps[i] = foodResponse(&items[i], now)
	}
	return resps
}

// parseRequest validates the common create/update fields.
func (h *FoodHandler) parseRequest(r *http.Request) (*foodItemRequest, model.Location, time.Time, *string, error) {
	var req foodItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", time.Time{}, nil, errors.New("invalid JSON")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, "", time.Time{}, nil, errors.New("name is required")
	}

	location, err := model.ParseLocation(req.Location)
	if err != nil {
		return nil, "", time.Time{}, nil, errors.New("location must be fridge, freezer, or pantry")
	}

	expiresAt, err := parseDate(req.ExpiresAt)
	if err != nil {
		return nil, "", time.Time{}, nil, errors.New("expires_at must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}

	// Size is stored in its canonical string form; nothing recordable means
	// no size at all.
	var sz *string
	if canonical, ok := size.Format(strings.TrimSpace(req.Quantity), size.Unit(strings.TrimSpace(req.Unit))); ok {
		sz = &canonical
	}

	return &req, location, expiresAt, sz, nil
}

func (h *FoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, location, expiresAt, sz, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.foods.Create(req.Name, location, expiresAt, req.Notes, sz)
	if err != nil {
		h.logger.Error("create food item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.schedule(item)
	writeJSON(w, http.StatusCreated, foodResponse(item, time.Now()))
}

func (h *FoodHandler) List(w http.ResponseWriter, r *http.Request) {
	var items []model.FoodItem
	var err error
	if r.URL.Query().Get("status") == "active" {
		items, err = h.foods.ListActive()
	} else {
		items, err = h.foods.List()
	}
	if err != nil {
		h.logger.Error("list food items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, foodResponses(items, time.Now()))
}

func (h *FoodHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.foods.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, foodResponse(item, time.Now()))
}

func (h *FoodHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.foods.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	req, location, expiresAt, sz, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.foods.Update(id, req.Name, location, expiresAt, req.Notes, sz)
	if err != nil {
		h.logger.Error("update food item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.reschedule(item)
	writeJSON(w, http.StatusOK, foodResponse(item, time.Now()))
}

func (h *FoodHandler) UpdateRemaining(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		RemainingAmount float64 `json:"remaining_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := h.foods.UpdateRemaining(id, req.RemainingAmount)
	if err != nil {
		h.logger.Error("update remaining amount", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, foodResponse(item, time.Now()))
}

func (h *FoodHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	status, err := model.ParseItemStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "status must be active, used, or discarded")
		return
	}

	item, err := h.foods.UpdateStatus(id, status)
	if err != nil {
		h.logger.Error("update food item status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	// Consumed or discarded items keep no pending reminders.
	if status == model.StatusActive {
		h.reschedule(item)
	} else {
		h.scheduler.Cancel(id)
	}
	writeJSON(w, http.StatusOK, foodResponse(item, time.Now()))
}

func (h *FoodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.foods.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.foods.Delete(id); err != nil {
		h.logger.Error("delete food item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.scheduler.Cancel(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *FoodHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if err := h.foods.Reorder(req.IDs); err != nil {
		h.logger.Error("reorder food items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reorder items")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FoodHandler) schedule(item *model.FoodItem) {
	prefs, err := h.settings.NotificationPrefs()
	if err != nil {
		h.logger.Error("read notification prefs", "error", err)
		return
	}
	h.scheduler.Schedule(item, prefs, time.Now())
}

func (h *FoodHandler) reschedule(item *model.FoodItem) {
	prefs, err := h.settings.NotificationPrefs()
	if err != nil {
		h.logger.Error("read notification prefs", "error", err)
		return
	}
	h.scheduler.Reschedule(item, prefs, time.Now())
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
