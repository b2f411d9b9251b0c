package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"clinicops/internal/model"
)

// ListWeeks returns a semester's schedule in chronological order.
func (s *Store) ListWeeks(ctx context.Context, semesterID string) ([]model.SemesterWeek, error) {
	var out []model.SemesterWeek
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, semester_id, week_number, week_label, week_start, week_end, is_break
			FROM semester_schedule
			WHERE semester_id = $1
			ORDER BY week_start, week_number NULLS FIRST
		`, semesterID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var w model.SemesterWeek
			var number sql.NullInt64
			if err := rows.Scan(&w.ID, &w.SemesterID, &number, &w.Label, &w.Start, &w.End, &w.IsBreak); err != nil {
				return err
			}
			if number.Valid {
				n := int(number.Int64)
				w.WeekNumber = &n
			}
			w.Start, w.End = s.localDate(w.Start), s.localDate(w.End)
			out = append(out, w)
		}
		return rows.Err()
	})
	return out, err
}

// ReplaceWeeks swaps a semester's schedule in one transaction.
func (s *Store) ReplaceWeeks(ctx context.Context, semesterID string, weeks []model.SemesterWeek) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return write(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM semester_schedule WHERE semester_id = $1`, semesterID); err != nil {
		return write(err)
	}
	for _, w := range weeks {
		id := w.ID
		if id == "" {
			id = newID()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO semester_schedule (id, semester_id, week_number, week_label, week_start, week_end, is_break)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, semesterID, w.WeekNumber, w.Label, dateArg(w.Start), dateArg(w.End), w.IsBreak)
		if err != nil {
			return write(fmt.Errorf("insert week %q: %w", w.Label, err))
		}
	}
	return write(tx.Commit())
}
