package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"clinicops/internal/model"
	"clinicops/internal/store"
)

const meetingColumns = `id, student_id, student_name, student_email, clinic, COALESCE(client_id, ''), subject, message,
	preferred_dates::text, status, notes, debrief_notes, created_at, started_at, completed_at, updated_at`

func scanMeeting(row interface{ Scan(...any) error }) (model.MeetingRequest, error) {
	var m model.MeetingRequest
	var status string
	var started, completed sql.NullTime
	err := row.Scan(&m.ID, &m.StudentID, &m.StudentName, &m.StudentEmail, &m.Clinic, &m.ClientID, &m.Subject, &m.Message,
		pq.Array(&m.PreferredDates), &status, &m.Notes, &m.DebriefNotes, &m.CreatedAt, &started, &completed, &m.UpdatedAt)
	if err != nil {
		return model.MeetingRequest{}, err
	}
	m.Status = model.MeetingStatus(status)
	if started.Valid {
		m.StartedAt = &started.Time
	}
	if completed.Valid {
		m.CompletedAt = &completed.Time
	}
	if m.PreferredDates == nil {
		m.PreferredDates = []string{}
	}
	return m, nil
}

// dateList renders preferred dates as a Postgres array literal; the SQL casts
// it through text so no driver-side array encoding is needed.
func dateList(dates []string) (string, error) {
	v, err := pq.Array(dates).Value()
	if err != nil {
		return "", err
	}
	if v == nil {
		return "{}", nil
	}
	return v.(string), nil
}

func (s *Store) InsertMeeting(ctx context.Context, m model.MeetingRequest) (model.MeetingRequest, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	dates, err := dateList(m.PreferredDates)
	if err != nil {
		return model.MeetingRequest{}, fmt.Errorf("preferred dates: %w", err)
	}
	out, err := scanMeeting(s.db.QueryRowContext(ctx, `
		INSERT INTO meeting_requests (id, student_id, student_name, student_email, clinic, client_id, subject, message,
			preferred_dates, status, notes, debrief_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::text[], $10, $11, $12, $13, $14)
		RETURNING `+meetingColumns,
		m.ID, m.StudentID, m.StudentName, m.StudentEmail, m.Clinic, nullable(m.ClientID), m.Subject, m.Message,
		dates, string(m.Status), m.Notes, m.DebriefNotes, m.CreatedAt, m.UpdatedAt))
	return out, write(err)
}

func (s *Store) GetMeeting(ctx context.Context, id string) (model.MeetingRequest, error) {
	var m model.MeetingRequest
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		m, err = scanMeeting(s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meeting_requests WHERE id = $1`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.MeetingRequest{}, store.ErrNotFound
	}
	return m, err
}

// UpdateMeetingStatus is a compare-and-set on status; started_at and
// completed_at are only ever set once.
func (s *Store) UpdateMeetingStatus(ctx context.Context, id string, from model.MeetingStatus, p model.MeetingPatch) (model.MeetingRequest, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx, `
		UPDATE meeting_requests SET
			status = $3,
			notes = COALESCE($4, notes),
			debrief_notes = COALESCE($5, debrief_notes),
			started_at = COALESCE(started_at, $6),
			completed_at = COALESCE(completed_at, $7),
			updated_at = $8
		WHERE id = $1 AND status = $2
		RETURNING `+meetingColumns,
		id, string(from), string(p.Status), p.Notes, p.DebriefNotes, p.StartedAt, p.CompletedAt, p.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetMeeting(ctx, id); getErr != nil {
			return model.MeetingRequest{}, getErr
		}
		return model.MeetingRequest{}, store.ErrConflict
	}
	return m, write(err)
}

func (s *Store) ListMeetings(ctx context.Context, f model.MeetingFilter) ([]model.MeetingRequest, error) {
	w := &where{}
	if f.StudentID != "" {
		w.add("student_id = ?", f.StudentID)
	}
	if f.Clinic != "" {
		w.add("clinic ILIKE ?", likePattern(f.Clinic))
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.ClientID != "" {
		w.add("client_id = ?", f.ClientID)
	}
	q := `SELECT ` + meetingColumns + ` FROM meeting_requests` + w.String()
	if f.Ascending {
		q += ` ORDER BY created_at ASC, id ASC`
	} else {
		q += ` ORDER BY created_at DESC, id DESC`
	}
	args := w.args
	if f.Limit > 0 {
		q += ` LIMIT ` + w.next()
		args = append(args, f.Limit)
	}
	var out []model.MeetingRequest
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMeeting(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}
