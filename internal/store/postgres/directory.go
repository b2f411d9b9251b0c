package postgres

import (
	"context"
	"database/sql"
	"errors"

	"clinicops/internal/model"
	"clinicops/internal/store"
)

func (s *Store) ListClinics(ctx context.Context) ([]model.Clinic, error) {
	var out []model.Clinic
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM clinics ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c model.Clinic
			if err := rows.Scan(&c.ID, &c.Name); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) ListDirectors(ctx context.Context) ([]model.Director, error) {
	var out []model.Director
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `SELECT id, full_name, email FROM directors ORDER BY full_name, id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d model.Director
			if err := rows.Scan(&d.ID, &d.FullName, &d.Email); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) ListClinicDirectors(ctx context.Context) ([]model.ClinicDirector, error) {
	var out []model.ClinicDirector
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `SELECT clinic_id, director_id FROM clinic_directors ORDER BY clinic_id, director_id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a model.ClinicDirector
			if err := rows.Scan(&a.ClinicID, &a.DirectorID); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

const studentColumns = `id, full_name, email, clinic, COALESCE(clinic_id, ''), COALESCE(client_id, ''), semester_id`

func scanStudent(row interface{ Scan(...any) error }) (model.Student, error) {
	var st model.Student
	err := row.Scan(&st.ID, &st.FullName, &st.Email, &st.Clinic, &st.ClinicID, &st.ClientID, &st.SemesterID)
	return st, err
}

func (s *Store) GetStudent(ctx context.Context, id string) (model.Student, error) {
	var st model.Student
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		st, err = scanStudent(s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, store.ErrNotFound
	}
	return st, err
}

func (s *Store) ListStudents(ctx context.Context, semesterID string) ([]model.Student, error) {
	var out []model.Student
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		w := &where{}
		if semesterID != "" {
			w.add("semester_id = ?", semesterID)
		}
		rows, err := s.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students`+w.String()+` ORDER BY full_name`, w.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			st, err := scanStudent(rows)
			if err != nil {
				return err
			}
			out = append(out, st)
		}
		return rows.Err()
	})
	return out, err
}
