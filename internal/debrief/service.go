// Package debrief records weekly work summaries and routes the questions
// students attach to them.
package debrief

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinicops/internal/model"
	"clinicops/internal/notify"
	"clinicops/internal/store"
)

// ErrInvalidInput wraps malformed submissions.
var ErrInvalidInput = errors.New("invalid input")

// StatusSubmitted is the status of a freshly stored debrief.
const StatusSubmitted = "submitted"

const questionPreview = 200

// Repository is the slice of the store debriefs need.
type Repository interface {
	InsertDebrief(ctx context.Context, d model.DebriefRecord) (model.DebriefRecord, error)
	ListDebriefs(ctx context.Context, f model.DebriefFilter) ([]model.DebriefRecord, error)
	GetStudent(ctx context.Context, id string) (model.Student, error)
}

// SubmitInput is one weekly debrief.
type SubmitInput struct {
	StudentID    string
	SemesterID   string
	WeekEnding   time.Time
	HoursWorked  float64
	WorkSummary  string
	Clinic       string
	ClientID     string
	ClientName   string
	Questions    string
	QuestionType string
}

type Service struct {
	repo     Repository
	notifier *notify.Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewService(repo Repository, notifier *notify.Notifier, now func() time.Time, log *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, now: now, log: log}
}

// Submit stores a debrief. Students always submit for themselves; missing
// clinic and client fields are filled from the enrollment record.
func (s *Service) Submit(ctx context.Context, caller model.Caller, in SubmitInput) (model.DebriefRecord, error) {
	if caller.Role == model.RoleStudent {
		in.StudentID = caller.ID
	}
	switch {
	case in.StudentID == "":
		return model.DebriefRecord{}, fmt.Errorf("%w: student is required", ErrInvalidInput)
	case in.WeekEnding.IsZero():
		return model.DebriefRecord{}, fmt.Errorf("%w: week ending is required", ErrInvalidInput)
	case in.HoursWorked < 0:
		return model.DebriefRecord{}, fmt.Errorf("%w: hours worked must not be negative", ErrInvalidInput)
	}
	qtype := in.QuestionType
	if qtype == "" {
		qtype = model.QuestionTypeClinic
	}
	if qtype != model.QuestionTypeClinic && qtype != model.QuestionTypeClient {
		return model.DebriefRecord{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, in.QuestionType)
	}

	rec := model.DebriefRecord{
		StudentID:    in.StudentID,
		SemesterID:   in.SemesterID,
		WeekEnding:   in.WeekEnding,
		HoursWorked:  in.HoursWorked,
		WorkSummary:  in.WorkSummary,
		Clinic:       in.Clinic,
		ClientID:     in.ClientID,
		ClientName:   in.ClientName,
		QuestionType: qtype,
		Status:       StatusSubmitted,
		CreatedAt:    s.now(),
	}
	if q := strings.TrimSpace(in.Questions); q != "" {
		rec.Questions = &q
	}
	if st, err := s.repo.GetStudent(ctx, in.StudentID); err == nil {
		rec.StudentName = st.FullName
		if rec.Clinic == "" {
			rec.Clinic = st.Clinic
		}
		if rec.ClientID == "" {
			rec.ClientID = st.ClientID
		}
		if rec.SemesterID == "" {
			rec.SemesterID = st.SemesterID
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.WarnContext(ctx, "student lookup failed", "student_id", in.StudentID, "error", err)
	}

	saved, err := s.repo.InsertDebrief(ctx, rec)
	if err != nil {
		return model.DebriefRecord{}, fmt.Errorf("insert debrief: %w", err)
	}
	s.log.InfoContext(ctx, "debrief submitted", "id", saved.ID, "student_id", saved.StudentID, "week_ending", saved.WeekEnding.Format("2006-01-02"))

	if saved.Questions != nil {
		s.routeQuestion(ctx, saved)
	}
	return saved, nil
}

// routeQuestion sends a clinic question to the clinic's directors and a
// client question to every director.
func (s *Service) routeQuestion(ctx context.Context, d model.DebriefRecord) {
	if s.notifier == nil {
		return
	}
	scope := notify.ScopeClinic
	if d.QuestionType == model.QuestionTypeClient {
		scope = notify.ScopeClient
	}
	who := d.StudentName
	if who == "" {
		who = "A student"
	}
	title := fmt.Sprintf("New %s question from %s", d.QuestionType, who)
	if d.ClientName != "" {
		title += " (" + d.ClientName + ")"
	}
	s.notifier.Directors(ctx, notify.Event{
		Type:        model.NotifyQuestion,
		Title:       title,
		Message:     notify.Truncate(*d.Questions, questionPreview),
		Clinic:      d.Clinic,
		StudentID:   d.StudentID,
		StudentName: d.StudentName,
		RelatedID:   d.ID,
		Scope:       scope,
	})
}

// List returns debriefs most recent week first. Transient store failures
// yield an empty list.
func (s *Service) List(ctx context.Context, f model.DebriefFilter) ([]model.DebriefRecord, error) {
	out, err := s.repo.ListDebriefs(ctx, f)
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "debriefs unavailable, returning empty list", "error", err)
		return []model.DebriefRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.DebriefRecord{}
	}
	return out, nil
}
