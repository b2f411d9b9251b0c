package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicops/internal/app"
	"clinicops/internal/config"
	"clinicops/internal/logging"
	"clinicops/internal/notify"
)

// Worker drains the notification retry queue into the store.
func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel).With("component", "worker")
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.QueueBackend != "redis" {
		log.Error("worker needs QUEUE_BACKEND=redis; the api drains in-memory retries itself")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("open backends failed", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	retrier := &notify.Retrier{
		Sink:        notify.StoreSink{Store: b.Store},
		Queue:       b.Queue,
		MaxAttempts: cfg.NotifyMaxAttempts,
		Delay:       2 * time.Second,
		Log:         log,
	}
	log.Info("worker started, waiting for notification retries", "queue", cfg.NotifyRetryKey)
	if err := retrier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("retrier failed", "error", err)
	}
	log.Info("worker stopped")
}
