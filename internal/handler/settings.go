package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, logger: logger}
}

type notificationPrefsRequest struct {
	DaysBefore            *int  `json:"days_before_notification"`
	NotifyOnExpirationDay *bool `json:"notify_on_expiration_day"`
}

func (h *SettingsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.settings.NotificationPrefs()
	if err != nil {
		h.logger.Error("get notification prefs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdateNotifications accepts partial updates; omitted fields keep their
// stored value. Changing the lead time only affects reminders armed after the
// change.
func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationPrefsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	prefs, err := h.settings.NotificationPrefs()
	if err != nil {
		h.logger.Error("get notification prefs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	if req.DaysBefore != nil {
		n := *req.DaysBefore
		if n != 0 && !model.ValidDaysBefore(n) {
			writeError(w, http.StatusBadRequest, "days_before_notification must be 0, 1, 2, 3, 5, or 7")
			return
		}
		prefs.DaysBefore = n
	}
	if req.NotifyOnExpirationDay != nil {
		prefs.NotifyOnExpirationDay = *req.NotifyOnExpirationDay
	}

	if err := h.settings.SetNotificationPrefs(prefs); err != nil {
		h.logger.Error("save notification prefs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
