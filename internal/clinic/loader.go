package clinic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clinicops/internal/cache"
	"clinicops/internal/model"
)

// Source reads the directory tables.
type Source interface {
	ListClinics(ctx context.Context) ([]model.Clinic, error)
	ListDirectors(ctx context.Context) ([]model.Director, error)
	ListClinicDirectors(ctx context.Context) ([]model.ClinicDirector, error)
}

const snapshotKey = "directory:snapshot"

type snapshot struct {
	Clinics     []model.Clinic         `json:"clinics"`
	Directors   []model.Director       `json:"directors"`
	Assignments []model.ClinicDirector `json:"assignments"`
}

// Loader builds Directory values from the store, reusing a cached snapshot
// for ttl.
type Loader struct {
	src   Source
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewLoader builds a loader; a nil cache disables caching.
func NewLoader(src Source, c cache.Cache, ttl time.Duration, log *slog.Logger) *Loader {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loader{src: src, cache: c, ttl: ttl, log: log}
}

// Load returns the current directory.
func (l *Loader) Load(ctx context.Context) (*Directory, error) {
	var snap snapshot
	if ok, err := l.cache.Get(ctx, snapshotKey, &snap); err != nil {
		l.log.Warn("directory cache read failed", "error", err)
	} else if ok {
		return NewDirectory(snap.Clinics, snap.Directors, snap.Assignments), nil
	}

	clinics, err := l.src.ListClinics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	directors, err := l.src.ListDirectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directors: %w", err)
	}
	assignments, err := l.src.ListClinicDirectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clinic directors: %w", err)
	}
	snap = snapshot{Clinics: clinics, Directors: directors, Assignments: assignments}
	if err := l.cache.Set(ctx, snapshotKey, snap, l.ttl); err != nil {
		l.log.Warn("directory cache write failed", "error", err)
	}
	return NewDirectory(clinics, directors, assignments), nil
}

// Invalidate forgets the cached snapshot.
func (l *Loader) Invalidate(ctx context.Context) {
	if err := l.cache.Clear(ctx, snapshotKey); err != nil {
		l.log.Warn("directory cache clear failed", "error", err)
	}
}
