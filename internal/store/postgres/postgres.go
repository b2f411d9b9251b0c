// Package postgres implements the store contracts over Postgres with
// hand-written SQL through database/sql and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"clinicops/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists every table of the program.
type Store struct {
	db      *sql.DB
	loc     *time.Location
	backoff store.Backoff
}

// New builds a store. DATE columns are read back as midnight in loc.
func New(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc, backoff: store.DefaultBackoff}
}

// Migrate applies pending migrations and records the schema version in
// goose_db_version.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// read retries transient failures; only idempotent statements go through it.
func (s *Store) read(ctx context.Context, fn func(ctx context.Context) error) error {
	return store.Retry(ctx, s.backoff, fn)
}

// write runs fn once and tags transient failures so callers can tell them apart.
func write(err error) error {
	if err == nil || errors.Is(err, store.ErrTransient) {
		return err
	}
	if store.IsTransient(err) {
		return fmt.Errorf("%w: %v", store.ErrTransient, err)
	}
	return err
}

func newID() string { return uuid.NewString() }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

// localDate re-anchors a scanned DATE to midnight in the program zone.
func (s *Store) localDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// likePattern escapes LIKE metacharacters and wraps s for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// where accumulates positional predicates.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) addRaw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *where) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
