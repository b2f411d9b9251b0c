package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"clinicops/internal/app"
	"clinicops/internal/attendance"
	"clinicops/internal/clinic"
	"clinicops/internal/config"
	"clinicops/internal/debrief"
	"clinicops/internal/handler"
	"clinicops/internal/httpmiddleware"
	"clinicops/internal/logging"
	"clinicops/internal/meeting"
	"clinicops/internal/metrics"
	"clinicops/internal/notify"
	"clinicops/internal/progress"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.Dev() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("close backends", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dirs := clinic.NewLoader(b.Store, b.Cache, cfg.DirectoryCacheTTL, log)
	outbox := notify.NewOutbox(notify.StoreSink{Store: b.Store}, b.Queue, log, m, nil)
	notifier := notify.NewNotifier(dirs, outbox, log)

	svc := handler.Services{
		Attendance:    attendance.NewService(b.Store, notifier, m, nil, log),
		Meetings:      meeting.NewService(b.Store, notifier, m, meeting.QueueScope(cfg.MeetingQueueScope), nil, log),
		Debriefs:      debrief.NewService(b.Store, notifier, nil, log),
		Progress:      progress.NewService(b.Store, dirs, progress.Options{TTL: cfg.ProgressCacheTTL, Cache: b.Cache, Metrics: m, Log: log}),
		Notifications: notify.NewService(b.Store, log),
	}

	var limiter httpmiddleware.Limiter
	if b.Redis != nil {
		limiter = httpmiddleware.NewRedisWindow(b.Redis.Client, cfg.RateLimitPerMin, nil)
	} else {
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, nil)
	}

	checks := map[string]handler.HealthCheck{}
	if b.DB != nil {
		checks["db"] = b.DB.Healthy
	}
	if b.Redis != nil {
		checks["redis"] = b.Redis.Healthy
	}

	h := handler.New(svc, handler.Options{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		DevTokens:     cfg.Dev(),
		Location:      b.Location,
		AccessLog:     cfg.AccessLog,
		CORSOrigins:   cfg.CORSOrigins,
		Limiter:       limiter,
		Metrics:       m,
		Gatherer:      reg,
		Checks:        checks,
		Log:           log,
	})

	// Without a shared queue nothing else drains retries, so do it here.
	if cfg.QueueBackend != "redis" {
		retrier := &notify.Retrier{
			Sink:        notify.StoreSink{Store: b.Store},
			Queue:       b.Queue,
			MaxAttempts: cfg.NotifyMaxAttempts,
			Delay:       time.Second,
			Log:         log,
		}
		go func() {
			if err := retrier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification retrier stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.HTTPPort, "store", cfg.StoreBackend, "cache", cfg.CacheBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}
	log.Info("server exited")
	return nil
}
