// Package server wires the stores, background services, and HTTP routes.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/pantry"
	"github.com/dukerupert/larder/internal/reminder"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

type Server struct {
	db        *sql.DB
	hub       *ws.Hub
	foodH     *handler.FoodHandler
	groceryH  *handler.GroceryHandler
	settingsH *handler.SettingsHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler

	engine        *pantry.Engine
	pushService   *reminder.PushService
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, pushCfg reminder.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	foodStore := store.NewFoodStore(db)
	groceryStore := store.NewGroceryStore(db)
	settingsStore := store.NewSettingsStore(db)
	reminderStore := store.NewReminderStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	engine := pantry.NewEngine(foodStore, groceryStore, logger.With("component", "pantry"))

	pushSvc := reminder.NewPushService(pushCfg, reminderStore, pushStore, logger.With("component", "reminder"))
	scheduler := reminder.NewScheduler(pushSvc, logger.With("component", "scheduler"))

	backupMgr := backup.NewManager(backupCfg, db, backupStore, settingsStore, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	// Inventory and preference edits re-derive the grocery list; grocery
	// mutations only fan out to clients, since reconciliation itself writes
	// grocery entries.
	reconcileLogger := logger.With("component", "pantry")
	reconcile := func() {
		go func() {
			if err := engine.Reconcile(time.Now()); err != nil {
				reconcileLogger.Error("reconcile after change", "error", err)
			}
		}()
	}
	foodStore.SetOnChange(func(entity, action, id string) {
		hub.Broadcast(ws.NewMessage(entity, action, id, nil))
		reconcile()
	})
	settingsStore.SetOnChange(func(entity, action, id string) {
		hub.Broadcast(ws.NewMessage(entity, action, id, nil))
		reconcile()
	})
	groceryStore.SetOnChange(func(entity, action, id string) {
		hub.Broadcast(ws.NewMessage(entity, action, id, nil))
	})

	return &Server{
		db:            db,
		hub:           hub,
		foodH:         handler.NewFoodHandler(foodStore, settingsStore, scheduler, logger.With("component", "food")),
		groceryH:      handler.NewGroceryHandler(groceryStore, logger.With("component", "grocery")),
		settingsH:     handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, settingsStore, logger.With("component", "backup")),
		engine:        engine,
		pushService:   pushSvc,
		backupManager: backupMgr,
		logger:        logger,
	}
}

// Engine returns the pantry reconciliation engine.
func (s *Server) Engine() *pantry.Engine {
	return s.engine
}

// PushService returns the reminder dispatch service.
func (s *Server) PushService() *reminder.PushService {
	return s.pushService
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Food inventory API routes
	mux.HandleFunc("POST /api/food", s.foodH.Create)
	mux.HandleFunc("GET /api/food", s.foodH.List)
	mux.HandleFunc("GET /api/food/{id}", s.foodH.Get)
	mux.HandleFunc("PUT /api/food/{id}", s.foodH.Update)
	mux.HandleFunc("DELETE /api/food/{id}", s.foodH.Delete)
	mux.HandleFunc("PATCH /api/food/{id}/remaining", s.foodH.UpdateRemaining)
	mux.HandleFunc("PATCH /api/food/{id}/status", s.foodH.UpdateStatus)
	mux.HandleFunc("PUT /api/food/reorder", s.foodH.Reorder)

	// Grocery list API routes
	mux.HandleFunc("POST /api/grocery", s.groceryH.Create)
	mux.HandleFunc("GET /api/grocery", s.groceryH.List)
	mux.HandleFunc("POST /api/grocery/{id}/toggle", s.groceryH.ToggleCompleted)
	mux.HandleFunc("DELETE /api/grocery/{id}", s.groceryH.Delete)
	mux.HandleFunc("POST /api/grocery/clear-completed", s.groceryH.ClearCompleted)

	// Settings API routes
	mux.HandleFunc("GET /api/settings/notifications", s.settingsH.GetNotifications)
	mux.HandleFunc("PUT /api/settings/notifications", s.settingsH.UpdateNotifications)

	// Push notification API routes
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("GET /api/push/status", s.pushH.Status)

	// Backup API routes
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backup/passphrase", s.backupH.SetPassphrase)
	mux.HandleFunc("POST /api/backup/run", s.backupH.Run)
	mux.HandleFunc("POST /api/backup/restore/{id}", s.backupH.Restore)
	mux.HandleFunc("GET /api/backup/download/{id}", s.backupH.Download)
	mux.HandleFunc("PUT /api/backup/settings", s.backupH.UpdateSettings)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
