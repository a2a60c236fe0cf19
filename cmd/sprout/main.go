package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sprouthq/sprout/internal/config"
	"github.com/sprouthq/sprout/internal/database"
	"github.com/sprouthq/sprout/internal/logging"
	"github.com/sprouthq/sprout/internal/notify"
	"github.com/sprouthq/sprout/internal/server"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate-vapid-keys" {
		generateVAPIDKeys()
		return
	}

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	// Rebuild the reminder index from the task table before the scan loop
	// starts; reminders do not survive a restart on their own.
	if err := srv.TaskService().ResyncReminders(); err != nil {
		log.Fatalf("failed to schedule reminders: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Scheduler().Start(ctx)
	srv.Syncer().Start(ctx)
	go maintenanceLoop(ctx, srv)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Sprout running at http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	srv.Scheduler().Stop()
	srv.Syncer().Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// maintenanceLoop runs hourly cleanup: expired sessions, expired unclaimed
// rewards, and stale rate-limit buckets.
func maintenanceLoop(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.SessionStore().DeleteExpired()
			srv.Ledger().PruneExpired(time.Now())
			srv.RateLimiter().Cleanup()
		}
	}
}

func generateVAPIDKeys() {
	pub, priv, err := notify.GenerateVAPIDKeys()
	if err != nil {
		log.Fatalf("failed to generate VAPID keys: %v", err)
	}
	fmt.Printf("SPROUT_VAPID_PUBLIC_KEY=%s\n", pub)
	fmt.Printf("SPROUT_VAPID_PRIVATE_KEY=%s\n", priv)
}
