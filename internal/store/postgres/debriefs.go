package postgres

import (
	"context"
	"database/sql"

	"clinicops/internal/model"
)

const debriefColumns = `id, student_id, student_name, semester_id, week_ending, hours_worked, work_summary,
	clinic, COALESCE(client_id, ''), client_name, questions, question_type, status, created_at`

func (s *Store) scanDebrief(row interface{ Scan(...any) error }) (model.DebriefRecord, error) {
	var d model.DebriefRecord
	var questions sql.NullString
	err := row.Scan(&d.ID, &d.StudentID, &d.StudentName, &d.SemesterID, &d.WeekEnding, &d.HoursWorked, &d.WorkSummary,
		&d.Clinic, &d.ClientID, &d.ClientName, &questions, &d.QuestionType, &d.Status, &d.CreatedAt)
	if questions.Valid {
		q := questions.String
		d.Questions = &q
	}
	d.WeekEnding = s.localDate(d.WeekEnding)
	return d, err
}

func (s *Store) InsertDebrief(ctx context.Context, d model.DebriefRecord) (model.DebriefRecord, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	out, err := s.scanDebrief(s.db.QueryRowContext(ctx, `
		INSERT INTO debriefs (id, student_id, student_name, semester_id, week_ending, hours_worked, work_summary,
			clinic, client_id, client_name, questions, question_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, NOW()))
		RETURNING `+debriefColumns,
		d.ID, d.StudentID, d.StudentName, d.SemesterID, dateArg(d.WeekEnding), d.HoursWorked, d.WorkSummary,
		d.Clinic, nullable(d.ClientID), d.ClientName, d.Questions, d.QuestionType, d.Status, timeArg(d.CreatedAt)))
	return out, write(err)
}

func (s *Store) ListDebriefs(ctx context.Context, f model.DebriefFilter) ([]model.DebriefRecord, error) {
	w := &where{}
	if f.StudentID != "" {
		w.add("student_id = ?", f.StudentID)
	}
	if f.SemesterID != "" {
		w.add("semester_id = ?", f.SemesterID)
	}
	if f.Clinic != "" {
		w.add("clinic ILIKE ?", likePattern(f.Clinic))
	}
	if f.WeekEnding != nil {
		w.add("week_ending = ?", dateArg(*f.WeekEnding))
	}
	var out []model.DebriefRecord
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, `SELECT `+debriefColumns+` FROM debriefs`+w.String()+` ORDER BY week_ending DESC, created_at DESC`, w.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := s.scanDebrief(rows)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	return out, err
}
