// Package app assembles the store, cache and queue backends selected by
// configuration. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clinicops/internal/attendance"
	"clinicops/internal/cache"
	"clinicops/internal/clinic"
	"clinicops/internal/config"
	"clinicops/internal/debrief"
	"clinicops/internal/meeting"
	"clinicops/internal/notify"
	"clinicops/internal/progress"
	"clinicops/internal/queue"
	"clinicops/internal/store"
	"clinicops/internal/store/memory"
	"clinicops/internal/store/postgres"
)

// Store is everything the services need from a backend.
type Store interface {
	attendance.Repository
	meeting.Repository
	debrief.Repository
	progress.Repository
	notify.Repository
	notify.Inserter
	clinic.Source
}

// Backends are the opened infrastructure of one process.
type Backends struct {
	Store    Store
	Cache    cache.Cache
	Queue    queue.Queue
	DB       *store.DB
	Redis    *store.Redis
	Location *time.Location
}

// Open connects the configured backends. Redis is only dialed when the cache
// or queue uses it.
func Open(ctx context.Context, cfg config.App, log *slog.Logger) (*Backends, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	b := &Backends{Location: loc}

	switch cfg.StoreBackend {
	case "memory":
		mem := memory.New(nil)
		if cfg.Dev() {
			if err := SeedDemo(ctx, mem, loc, time.Now()); err != nil {
				return nil, fmt.Errorf("seed demo data: %w", err)
			}
			log.Info("memory store seeded with demo semester", "semester_id", DemoSemester)
		}
		b.Store = mem
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL, store.DefaultPool)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := postgres.New(db.Client, loc)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.DB, b.Store = db, pg
	}

	if cfg.CacheBackend == "redis" || cfg.QueueBackend == "redis" {
		b.Redis = store.NewRedis(cfg.RedisAddr)
		if !b.Redis.Healthy(ctx) {
			log.Warn("redis not reachable at startup", "addr", cfg.RedisAddr)
		}
	}
	if cfg.CacheBackend == "redis" {
		b.Cache = cache.NewRedis(b.Redis.Client, "clinicops:cache:")
	} else {
		b.Cache = cache.NewMemory(1024, nil)
	}
	if cfg.QueueBackend == "redis" {
		b.Queue = queue.NewRedisQueue(b.Redis.Client, cfg.NotifyRetryKey)
	} else {
		b.Queue = queue.NewInMemory(256)
	}
	return b, nil
}

// Close releases connections.
func (b *Backends) Close() error {
	return errors.Join(b.DB.Close(), b.Redis.Close())
}
