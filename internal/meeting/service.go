// Package meeting runs the live meeting-request queue: students enqueue
// requests, directors work them first come first served.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinicops/internal/clinic"
	"clinicops/internal/metrics"
	"clinicops/internal/model"
	"clinicops/internal/notify"
	"clinicops/internal/store"
)

// ErrInvalidInput wraps malformed requests.
var ErrInvalidInput = errors.New("invalid input")

// QueueScope selects which pending request hears "you're next".
type QueueScope string

const (
	// ScopeGlobal signals the oldest pending request program-wide.
	ScopeGlobal QueueScope = "global"
	// ScopeClinic signals the oldest pending request of the advanced
	// request's clinic.
	ScopeClinic QueueScope = "clinic"
)

// debriefPreview is the longest debrief summary sent to a student.
const debriefPreview = 200

// Repository is the slice of the store the queue needs.
type Repository interface {
	InsertMeeting(ctx context.Context, m model.MeetingRequest) (model.MeetingRequest, error)
	GetMeeting(ctx context.Context, id string) (model.MeetingRequest, error)
	// UpdateMeetingStatus applies patch only while the request is in status
	// from, returning store.ErrConflict otherwise.
	UpdateMeetingStatus(ctx context.Context, id string, from model.MeetingStatus, patch model.MeetingPatch) (model.MeetingRequest, error)
	ListMeetings(ctx context.Context, f model.MeetingFilter) ([]model.MeetingRequest, error)
	GetStudent(ctx context.Context, id string) (model.Student, error)
}

// EnqueueInput is a new meeting request.
type EnqueueInput struct {
	StudentID      string
	Clinic         string
	ClientID       string
	Subject        string
	Message        string
	PreferredDates []string
}

// AdvanceInput moves a request forward.
type AdvanceInput struct {
	Status       model.MeetingStatus
	Notes        *string
	DebriefNotes *string
}

// Service owns the queue.
type Service struct {
	repo     Repository
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	scope    QueueScope
	now      func() time.Time
	log      *slog.Logger
}

// NewService wires the queue. An empty scope means ScopeGlobal.
func NewService(repo Repository, notifier *notify.Notifier, m *metrics.Metrics, scope QueueScope, now func() time.Time, log *slog.Logger) *Service {
	if scope == "" {
		scope = ScopeGlobal
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, metrics: m, scope: scope, now: now, log: log}
}

// Enqueue records a pending request and tells the clinic's directors.
// Students always enqueue for themselves.
func (s *Service) Enqueue(ctx context.Context, caller model.Caller, in EnqueueInput) (model.MeetingRequest, error) {
	if caller.Role == model.RoleStudent {
		in.StudentID = caller.ID
	}
	in.Subject = strings.TrimSpace(in.Subject)
	if in.StudentID == "" || in.Subject == "" {
		return model.MeetingRequest{}, fmt.Errorf("%w: student and subject are required", ErrInvalidInput)
	}

	now := s.now()
	req := model.MeetingRequest{
		StudentID:      in.StudentID,
		Clinic:         in.Clinic,
		ClientID:       in.ClientID,
		Subject:        in.Subject,
		Message:        in.Message,
		PreferredDates: in.PreferredDates,
		Status:         model.MeetingPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if st, err := s.repo.GetStudent(ctx, in.StudentID); err == nil {
		req.StudentName, req.StudentEmail = st.FullName, st.Email
		if req.Clinic == "" {
			req.Clinic = st.Clinic
		}
		if req.ClientID == "" {
			req.ClientID = st.ClientID
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.WarnContext(ctx, "student lookup failed", "student_id", in.StudentID, "error", err)
	}

	saved, err := s.repo.InsertMeeting(ctx, req)
	if err != nil {
		return model.MeetingRequest{}, fmt.Errorf("insert meeting request: %w", err)
	}
	s.log.InfoContext(ctx, "meeting request queued", "id", saved.ID, "student_id", saved.StudentID, "clinic", saved.Clinic)

	if s.notifier != nil {
		who := saved.StudentName
		if who == "" {
			who = "A student"
		}
		s.notifier.Directors(ctx, notify.Event{
			Type:        model.NotifyMeetingRequest,
			Title:       "New meeting request",
			Message:     fmt.Sprintf("%s requested a meeting: %s", who, saved.Subject),
			Clinic:      saved.Clinic,
			StudentID:   saved.StudentID,
			StudentName: saved.StudentName,
			RelatedID:   saved.ID,
			Scope:       notify.ScopeAssigned,
		})
	}
	return saved, nil
}

// Advance moves a request forward through pending, in_progress and
// completed. The update only applies if no one else moved the request first.
func (s *Service) Advance(ctx context.Context, caller model.Caller, id string, in AdvanceInput) (model.MeetingRequest, error) {
	if !caller.Staff() {
		return model.MeetingRequest{}, model.ErrForbidden
	}
	if !in.Status.Valid() {
		return model.MeetingRequest{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}

	current, err := s.repo.GetMeeting(ctx, id)
	if err != nil {
		return model.MeetingRequest{}, err
	}
	if !CanTransition(current.Status, in.Status) {
		return model.MeetingRequest{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, in.Status)
	}

	now := s.now()
	patch := model.MeetingPatch{
		Status:       in.Status,
		Notes:        in.Notes,
		DebriefNotes: in.DebriefNotes,
		UpdatedAt:    now,
	}
	switch in.Status {
	case model.MeetingInProgress:
		patch.StartedAt = &now
	case model.MeetingCompleted:
		patch.CompletedAt = &now
	}

	updated, err := s.repo.UpdateMeetingStatus(ctx, id, current.Status, patch)
	if err != nil {
		return model.MeetingRequest{}, err
	}
	s.metrics.MeetingTransition(string(current.Status), string(updated.Status))
	s.log.InfoContext(ctx, "meeting request advanced", "id", id, "from", current.Status, "to", updated.Status, "by", caller.ID)

	switch updated.Status {
	case model.MeetingInProgress:
		s.notifyNext(ctx, updated)
	case model.MeetingCompleted:
		if in.DebriefNotes != nil && strings.TrimSpace(*in.DebriefNotes) != "" {
			s.notifyDebrief(ctx, updated, *in.DebriefNotes)
		}
	}
	return updated, nil
}

// notifyNext tells the student at the head of the queue to get ready. The
// read is not atomic with the transition, so a concurrent enqueue or advance
// can make the signal stale.
func (s *Service) notifyNext(ctx context.Context, started model.MeetingRequest) {
	if s.notifier == nil {
		return
	}
	pending, err := s.repo.ListMeetings(ctx, model.MeetingFilter{Status: model.MeetingPending, Ascending: true})
	if err != nil {
		s.log.WarnContext(ctx, "next-in-queue lookup failed", "error", err)
		return
	}
	for _, next := range pending {
		if s.scope == ScopeClinic && !clinic.SameClinic(next.Clinic, started.Clinic) {
			continue
		}
		s.notifier.Student(ctx, next.StudentID, model.Notification{
			Type:        model.NotifyMeetingRequest,
			Title:       "You're next",
			Message:     "You're next in line for a meeting. Please be ready to join.",
			StudentName: next.StudentName,
			RelatedID:   next.ID,
		})
		return
	}
}

func (s *Service) notifyDebrief(ctx context.Context, m model.MeetingRequest, notes string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Student(ctx, m.StudentID, model.Notification{
		Type:        model.NotifyDebrief,
		Title:       "Meeting debrief: " + m.Subject,
		Message:     notify.Truncate(strings.TrimSpace(notes), debriefPreview),
		StudentName: m.StudentName,
		RelatedID:   m.ID,
	})
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id string) (model.MeetingRequest, error) {
	return s.repo.GetMeeting(ctx, id)
}

// List returns requests most recent first, or oldest first when forQueue is
// set. Transient store failures yield an empty list.
func (s *Service) List(ctx context.Context, f model.MeetingFilter, forQueue bool) ([]model.MeetingRequest, error) {
	f.Ascending = forQueue
	out, err := s.repo.ListMeetings(ctx, f)
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "meeting requests unavailable, returning empty list", "error", err)
		return []model.MeetingRequest{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.MeetingRequest{}
	}
	return out, nil
}
