package notify

import (
	"context"
	"errors"
	"log/slog"

	"clinicops/internal/model"
	"clinicops/internal/store"
)

// Repository is the notification read side of the store.
type Repository interface {
	ListNotifications(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error)
	CountNotifications(ctx context.Context, f model.NotificationFilter) (int, error)
	GetNotification(ctx context.Context, id string) (model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// DefaultLimit caps dashboard polls.
const DefaultLimit = 50

// Service serves the dashboards that poll for notifications.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService builds the read side.
func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log}
}

// ForDirector lists rows addressed to the director plus director broadcasts.
func (s *Service) ForDirector(ctx context.Context, directorID string, unreadOnly bool) ([]model.Notification, error) {
	return s.list(ctx, model.NotificationFilter{
		DirectorID:       directorID,
		Audience:         model.AudienceDirectors,
		IncludeBroadcast: true,
		UnreadOnly:       unreadOnly,
		Limit:            DefaultLimit,
	})
}

// ForStudent lists rows addressed to the student plus student broadcasts.
func (s *Service) ForStudent(ctx context.Context, studentID string, unreadOnly bool) ([]model.Notification, error) {
	return s.list(ctx, model.NotificationFilter{
		StudentID:        studentID,
		Audience:         model.AudienceStudents,
		IncludeBroadcast: true,
		UnreadOnly:       unreadOnly,
		Limit:            DefaultLimit,
	})
}

// list degrades to an empty result when the store is temporarily unavailable.
func (s *Service) list(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error) {
	rows, err := s.repo.ListNotifications(ctx, f)
	if errors.Is(err, store.ErrTransient) {
		s.log.Warn("notifications unavailable, returning empty list", "error", err)
		return []model.Notification{}, nil
	}
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Notification{}
	}
	return rows, nil
}

// UnreadCount counts unread rows for a director.
func (s *Service) UnreadCount(ctx context.Context, directorID string) (int, error) {
	n, err := s.repo.CountNotifications(ctx, model.NotificationFilter{
		DirectorID:       directorID,
		Audience:         model.AudienceDirectors,
		IncludeBroadcast: true,
		UnreadOnly:       true,
	})
	if errors.Is(err, store.ErrTransient) {
		return 0, nil
	}
	return n, err
}

// MarkRead flips is_read; it is the only mutation a notification accepts.
// Staff may mark any row. A student may mark only rows addressed to them;
// broadcasts share one read flag and stay with staff.
func (s *Service) MarkRead(ctx context.Context, caller model.Caller, id string) error {
	if !caller.Staff() {
		n, err := s.repo.GetNotification(ctx, id)
		if err != nil {
			return err
		}
		if n.StudentID != caller.ID || n.TargetAudience != model.AudienceStudents {
			return model.ErrForbidden
		}
	}
	return s.repo.MarkNotificationRead(ctx, id)
}
