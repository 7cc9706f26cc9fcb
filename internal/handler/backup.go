package handler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type BackupHandler struct {
	manager  *backup.Manager
	backups  *store.BackupStore
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, ss *store.SettingsStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backups: bs, settings: ss, logger: logger}
}

// Status handles GET /api/backup/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.List()
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// SetPassphrase handles POST /api/backup/passphrase. A fresh salt is generated
// and persisted; the passphrase itself is only cached in memory.
func (h *BackupHandler) SetPassphrase(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Passphrase) < 8 {
		writeError(w, http.StatusBadRequest, "passphrase must be at least 8 characters")
		return
	}

	salt, err := backup.GenerateSalt()
	if err != nil {
		h.logger.Error("generate salt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set passphrase")
		return
	}
	if err := h.settings.Set("backup_passphrase_salt", hex.EncodeToString(salt)); err != nil {
		h.logger.Error("save passphrase salt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set passphrase")
		return
	}

	h.manager.CacheKey(req.Passphrase, salt)
	w.WriteHeader(http.StatusNoContent)
}

// Run handles POST /api/backup/run
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	id, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"backup_id": id})
}

// Restore handles POST /api/backup/restore/{id}. On success the process exits
// and restarts on the restored database, so no response body ever arrives.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	if err := h.manager.Restore(r.Context(), id, req.Passphrase); err != nil {
		h.logger.Error("restore backup", "backup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
}

// Download handles GET /api/backup/download/{id}, streaming the encrypted
// archive as stored.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "backup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"backup-%d.db.enc\"", id))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	io.Copy(w, body)
}

type backupSettingsRequest struct {
	Enabled       *bool            `json:"enabled"`
	ScheduleHour  *int             `json:"schedule_hour"`
	RetentionDays *int             `json:"retention_days"`
	S3            *backup.S3Config `json:"s3"`
}

// UpdateSettings handles PUT /api/backup/settings
func (h *BackupHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req backupSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.ScheduleHour != nil && (*req.ScheduleHour < 0 || *req.ScheduleHour > 23) {
		writeError(w, http.StatusBadRequest, "schedule_hour must be 0-23")
		return
	}
	if req.RetentionDays != nil && *req.RetentionDays < 1 {
		writeError(w, http.StatusBadRequest, "retention_days must be at least 1")
		return
	}

	set := func(key, value string) bool {
		if err := h.settings.Set(key, value); err != nil {
			h.logger.Error("save backup setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return false
		}
		return true
	}

	if req.Enabled != nil && !set("backup_enabled", strconv.FormatBool(*req.Enabled)) {
		return
	}
	if req.ScheduleHour != nil && !set("backup_schedule_hour", strconv.Itoa(*req.ScheduleHour)) {
		return
	}
	if req.RetentionDays != nil && !set("backup_retention_days", strconv.Itoa(*req.RetentionDays)) {
		return
	}
	if req.S3 != nil {
		h.manager.UpdateS3Config(*req.S3)
	}

	settings, err := h.settings.GetBackupSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	delete(settings, "backup_passphrase_salt")
	writeJSON(w, http.StatusOK, settings)
}
