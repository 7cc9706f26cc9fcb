package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/logging"
	"github.com/dukerupert/larder/internal/reminder"
	"github.com/dukerupert/larder/internal/server"
)

func main() {
	genKeys := flag.Bool("generate-vapid-keys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		pub, priv, err := reminder.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("LARDER_VAPID_PUBLIC_KEY=%s\nLARDER_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("LARDER_LOG_LEVEL"), os.Getenv("LARDER_LOG_FORMAT"))

	port := os.Getenv("LARDER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("LARDER_DB_PATH")
	if dbPath == "" {
		dbPath = "larder.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	backupCfg := backup.Config{
		DBPath: dbPath,
		S3: backup.S3Config{
			Endpoint:  os.Getenv("LARDER_S3_ENDPOINT"),
			Bucket:    os.Getenv("LARDER_S3_BUCKET"),
			Region:    os.Getenv("LARDER_S3_REGION"),
			AccessKey: os.Getenv("LARDER_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("LARDER_S3_SECRET_KEY"),
		},
	}

	pushCfg := reminder.Config{
		VAPIDPublicKey:  os.Getenv("LARDER_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("LARDER_VAPID_PRIVATE_KEY"),
		Subscriber:      os.Getenv("LARDER_VAPID_SUBSCRIBER"),
	}

	srv := server.New(db, backupCfg, pushCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Derive the grocery list once at startup; the periodic loop takes over
	// from there.
	if err := srv.Engine().Reconcile(time.Now()); err != nil {
		logger.Error("initial reconcile", "error", err)
	}
	srv.Engine().Start(ctx)
	defer srv.Engine().Stop()

	srv.PushService().Start(ctx)
	defer srv.PushService().Stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("larder running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
