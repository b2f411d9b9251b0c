package postgres

import (
	"context"
	"database/sql"
	"errors"

	"clinicops/internal/model"
	"clinicops/internal/store"
)

const notificationColumns = `id, type, title, message, COALESCE(student_id, ''), student_name, COALESCE(director_id, ''),
	COALESCE(clinic_id, ''), COALESCE(related_id, ''), target_audience, is_read, created_at`

func scanNotification(row interface{ Scan(...any) error }) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.StudentID, &n.StudentName, &n.DirectorID,
		&n.ClinicID, &n.RelatedID, &n.TargetAudience, &n.IsRead, &n.CreatedAt)
	return n, err
}

func (s *Store) InsertNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = newID()
	}
	out, err := scanNotification(s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, type, title, message, student_id, student_name, director_id, clinic_id,
			related_id, target_audience, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, COALESCE($11, NOW()))
		RETURNING `+notificationColumns,
		n.ID, n.Type, n.Title, n.Message, nullable(n.StudentID), n.StudentName, nullable(n.DirectorID),
		nullable(n.ClinicID), nullable(n.RelatedID), n.TargetAudience, timeArg(n.CreatedAt)))
	return out, write(err)
}

func notificationWhere(f model.NotificationFilter) *where {
	w := &where{}
	if f.Audience != "" {
		w.add("target_audience = ?", f.Audience)
	}
	if f.DirectorID != "" {
		if f.IncludeBroadcast {
			w.add("(director_id = ? OR director_id IS NULL)", f.DirectorID)
		} else {
			w.add("director_id = ?", f.DirectorID)
		}
	}
	if f.StudentID != "" {
		if f.IncludeBroadcast {
			w.add("(student_id = ? OR student_id IS NULL)", f.StudentID)
		} else {
			w.add("student_id = ?", f.StudentID)
		}
	}
	if f.UnreadOnly {
		w.addRaw("is_read = FALSE")
	}
	return w
}

func (s *Store) ListNotifications(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error) {
	w := notificationWhere(f)
	q := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + ` ORDER BY created_at DESC`
	args := w.args
	if f.Limit > 0 {
		q += ` LIMIT ` + w.next()
		args = append(args, f.Limit)
	}
	var out []model.Notification
	err := s.read(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			n, err := scanNotification(rows)
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) CountNotifications(ctx context.Context, f model.NotificationFilter) (int, error) {
	w := notificationWhere(f)
	var n int
	err := s.read(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+w.String(), w.args...).Scan(&n)
	})
	return n, err
}

func (s *Store) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	var out model.Notification
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		out, err = scanNotification(s.db.QueryRowContext(ctx,
			`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notification{}, store.ErrNotFound
	}
	return out, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	var res interface{ RowsAffected() (int64, error) }
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
