// File path: cmd/logbookd/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jcarrick/logbook/internal/api"
	"github.com/jcarrick/logbook/internal/common"
	"github.com/jcarrick/logbook/internal/data/orchestrator"
)

func main() {
	logger := common.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Warn("logbook: .env file not loaded", "error", err)
	} else {
		logger.Info("logbook: environment loaded from .env")
	}

	addr := flag.String("addr", ":8081", "listen address")
	replicaPath := flag.String("replica", defaultReplicaPath(), "path to the replica SQLite database")
	syncInterval := flag.String("sync-interval", "", "interval between background reconciliation cycles (e.g. 30s, 2m)")
	syncTimeout := flag.String("sync-timeout", "", "timeout for a single reconciliation cycle")
	syncRetries := flag.Int("sync-retries", -1, "maximum retry attempts for a failed reconciliation cycle (-1 uses defaults)")
	syncBackoff := flag.String("sync-backoff", "", "base backoff duration between reconciliation retries")

	flag.Parse()

	logger.Info("logbook: startup initiated", "addr", *addr, "replica", *replicaPath)

	orchCfg, err := orchestrator.LoadConfig()
	if err != nil {
		logger.Error("logbook: orchestrator config load failed", "error", err)
		fmt.Println("orchestrator config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*replicaPath); trimmed != "" {
		orchCfg.ReplicaPath = trimmed
	}
	if trimmed := strings.TrimSpace(*syncInterval); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("logbook: invalid sync interval", "value", trimmed, "error", err)
			fmt.Println("sync interval error:", err)
			os.Exit(1)
		}
		orchCfg.SyncInterval = dur
	}
	if trimmed := strings.TrimSpace(*syncTimeout); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("logbook: invalid sync timeout", "value", trimmed, "error", err)
			fmt.Println("sync timeout error:", err)
			os.Exit(1)
		}
		orchCfg.SyncTimeout = dur
	}
	if *syncRetries >= 0 {
		orchCfg.MaxSyncRetries = *syncRetries
	}
	if trimmed := strings.TrimSpace(*syncBackoff); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("logbook: invalid sync backoff", "value", trimmed, "error", err)
			fmt.Println("sync backoff error:", err)
			os.Exit(1)
		}
		orchCfg.RetryBackoff = dur
	}

	orch, err := orchestrator.New(ctx, orchCfg)
	if err != nil {
		logger.Error("logbook: orchestrator initialization failed", "error", err)
		fmt.Println("orchestrator error:", err)
		os.Exit(1)
	}
	defer orch.Close()

	if records := orch.Records(); records != nil {
		if records.Available() {
			logger.Info("logbook: record store available")
		} else {
			logger.Warn("logbook: record store unreachable, writes degrade to replica-only")
		}
	} else {
		logger.Info("logbook: record store not configured")
	}

	orch.StartSync(ctx)

	server, err := api.NewServer(ctx, orch)
	if err != nil {
		logger.Error("logbook: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("logbook: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	httpServer := &http.Server{Addr: *addr, Handler: server}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("logbook: server stopped", "error", err)
			fmt.Println("server stopped:", err)
		}
	case <-ctx.Done():
		logger.Info("logbook: shutdown signal received, draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("logbook: shutdown incomplete", "error", err)
		}
	}
}

func defaultReplicaPath() string {
	return filepath.Join("data", "logbook.db")
}
