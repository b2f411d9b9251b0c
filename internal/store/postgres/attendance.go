package postgres

import (
	"context"
	"database/sql"
	"errors"

	"clinicops/internal/model"
	"clinicops/internal/store"
)

const attendanceColumns = `id, student_id, semester_id, week_number, class_date, is_present, notes, created_at`

func (s *Store) scanAttendance(row interface{ Scan(...any) error }) (model.AttendanceRecord, error) {
	var r model.AttendanceRecord
	err := row.Scan(&r.ID, &r.StudentID, &r.SemesterID, &r.WeekNumber, &r.ClassDate, &r.Present, &r.Notes, &r.CreatedAt)
	r.ClassDate = s.localDate(r.ClassDate)
	return r, err
}

// InsertAttendanceIfAbsent relies on the (student_id, week_number,
// semester_id) unique key; inserted is false when a record already existed.
func (s *Store) InsertAttendanceIfAbsent(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, bool, error) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	var out model.AttendanceRecord
	var inserted bool
	// A retry after a lost acknowledgement conflicts with its own row;
	// existingAttendance tells that apart from a real duplicate by id.
	err := s.read(ctx, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO attendance (id, student_id, semester_id, week_number, class_date, is_present, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
			ON CONFLICT (student_id, week_number, semester_id) DO NOTHING
			RETURNING `+attendanceColumns,
			rec.ID, rec.StudentID, rec.SemesterID, rec.WeekNumber, dateArg(rec.ClassDate), rec.Present, rec.Notes, timeArg(rec.CreatedAt))
		r, err := s.scanAttendance(row)
		if errors.Is(err, sql.ErrNoRows) {
			inserted = false
			return nil
		}
		if err != nil {
			return err
		}
		out, inserted = r, true
		return nil
	})
	if err != nil {
		return model.AttendanceRecord{}, false, err
	}
	if !inserted {
		week := rec.WeekNumber
		existing, err := s.ListAttendance(ctx, model.AttendanceFilter{StudentID: rec.StudentID, SemesterID: rec.SemesterID, WeekNumber: &week})
		if err != nil {
			return model.AttendanceRecord{}, false, err
		}
		return existingAttendance(rec.ID, existing)
	}
	return out, true, nil
}

// existingAttendance resolves a conflicting insert. A stored row carrying
// the attempted id was written by an earlier attempt of the same insert.
func existingAttendance(attemptID string, existing []model.AttendanceRecord) (model.AttendanceRecord, bool, error) {
	if len(existing) == 0 {
		return model.AttendanceRecord{}, false, store.ErrConflict
	}
	return existing[0], existing[0].ID == attemptID, nil
}

func (s *Store) ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.AttendanceRecord, error) {
	w := &where{}
	if f.StudentID != "" {
		w.add("student_id = ?", f.StudentID)
	}
	if f.SemesterID != "" {
		w.add("semester_id = ?", f.SemesterID)
	}
	if f.WeekNumber != nil {
		w.add("week_number = ?", *f.WeekNumber)
	}
	var out []model.AttendanceRecord
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `SELECT `+attendanceColumns+` FROM attendance`+w.String()+` ORDER BY class_date DESC`, w.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := s.scanAttendance(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

const passwordColumns = `id, semester_id, week_number, password, week_start, week_end, created_by_name, updated_at`

func (s *Store) scanPassword(row interface{ Scan(...any) error }) (model.AttendancePassword, error) {
	var p model.AttendancePassword
	var start, end sql.NullTime
	err := row.Scan(&p.ID, &p.SemesterID, &p.WeekNumber, &p.Password, &start, &end, &p.CreatedByName, &p.UpdatedAt)
	if start.Valid {
		p.WeekStart = s.localDate(start.Time)
	}
	if end.Valid {
		p.WeekEnd = s.localDate(end.Time)
	}
	return p, err
}

// GetPassword returns the single password for a week, or ErrNotFound.
func (s *Store) GetPassword(ctx context.Context, semesterID string, weekNumber int) (model.AttendancePassword, error) {
	var p model.AttendancePassword
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.scanPassword(s.db.QueryRowContext(ctx,
			`SELECT `+passwordColumns+` FROM attendance_passwords WHERE semester_id = $1 AND week_number = $2`,
			semesterID, weekNumber))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.AttendancePassword{}, store.ErrNotFound
	}
	return p, err
}

func (s *Store) UpsertPassword(ctx context.Context, p model.AttendancePassword) (model.AttendancePassword, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	var out model.AttendancePassword
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.scanPassword(s.db.QueryRowContext(ctx, `
			INSERT INTO attendance_passwords (id, semester_id, week_number, password, week_start, week_end, created_by_name, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
			ON CONFLICT (semester_id, week_number) DO UPDATE SET
				password = EXCLUDED.password,
				week_start = COALESCE(EXCLUDED.week_start, attendance_passwords.week_start),
				week_end = COALESCE(EXCLUDED.week_end, attendance_passwords.week_end),
				created_by_name = EXCLUDED.created_by_name,
				updated_at = EXCLUDED.updated_at
			RETURNING `+passwordColumns,
			p.ID, p.SemesterID, p.WeekNumber, p.Password, dateArg(p.WeekStart), dateArg(p.WeekEnd), p.CreatedByName, timeArg(p.UpdatedAt)))
		return err
	})
	return out, err
}

func (s *Store) ListPasswords(ctx context.Context, semesterID string, weekNumber *int) ([]model.AttendancePassword, error) {
	w := &where{}
	if semesterID != "" {
		w.add("semester_id = ?", semesterID)
	}
	if weekNumber != nil {
		w.add("week_number = ?", *weekNumber)
	}
	var out []model.AttendancePassword
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `SELECT `+passwordColumns+` FROM attendance_passwords`+w.String()+` ORDER BY week_number`, w.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := s.scanPassword(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) DeletePassword(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendance_passwords WHERE id = $1`, id)
	if err != nil {
		return write(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
