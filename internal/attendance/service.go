// Package attendance guards weekly attendance submission behind a shared
// password and records at most one submission per student, week and semester.
package attendance

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinicops/internal/calendar"
	"clinicops/internal/metrics"
	"clinicops/internal/model"
	"clinicops/internal/notify"
	"clinicops/internal/store"
)

var (
	// ErrPasswordNotSet means no password is configured for the week.
	ErrPasswordNotSet = errors.New("no attendance password set for this week")
	// ErrInvalidPassword means the supplied password does not match.
	ErrInvalidPassword = errors.New("invalid attendance password")
	// ErrAlreadySubmitted means attendance for the week is already recorded.
	ErrAlreadySubmitted = errors.New("attendance already submitted for this week")
	// ErrInvalidInput wraps malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// SubmitInput is a student's weekly submission.
type SubmitInput struct {
	StudentID  string
	SemesterID string
	WeekNumber int
	Password   string
}

// PasswordInput configures the password of one week.
type PasswordInput struct {
	SemesterID string
	WeekNumber int
	Password   string
	WeekStart  *time.Time
	WeekEnd    *time.Time
}

// Service coordinates password checks, deduplication and director notices.
type Service struct {
	repo     Repository
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *slog.Logger
}

// NewService creates a service backed by a repository. notifier and m may be
// nil in tests that do not care about side effects.
func NewService(repo Repository, notifier *notify.Notifier, m *metrics.Metrics, now func() time.Time, log *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, metrics: m, now: now, log: log}
}

// Submit records the student as present for the week.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (model.AttendanceRecord, error) {
	if in.StudentID == "" || in.SemesterID == "" || in.WeekNumber <= 0 {
		return model.AttendanceRecord{}, fmt.Errorf("%w: student, semester and week are required", ErrInvalidInput)
	}

	stored, err := s.repo.GetPassword(ctx, in.SemesterID, in.WeekNumber)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.AttendanceSubmission("no_password")
		return model.AttendanceRecord{}, ErrPasswordNotSet
	}
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("load password: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored.Password), []byte(in.Password)) != 1 {
		s.metrics.AttendanceSubmission("invalid_password")
		return model.AttendanceRecord{}, ErrInvalidPassword
	}

	now := s.now()
	rec := model.AttendanceRecord{
		StudentID:  in.StudentID,
		SemesterID: in.SemesterID,
		WeekNumber: in.WeekNumber,
		ClassDate:  s.classDate(ctx, in.SemesterID, in.WeekNumber, now),
		Present:    true,
		Notes:      "Submitted with weekly password at " + now.Format(time.RFC3339),
		CreatedAt:  now,
	}
	saved, inserted, err := s.repo.InsertAttendanceIfAbsent(ctx, rec)
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("record attendance: %w", err)
	}
	if !inserted {
		s.metrics.AttendanceSubmission("duplicate")
		return model.AttendanceRecord{}, ErrAlreadySubmitted
	}
	s.metrics.AttendanceSubmission("accepted")
	s.log.InfoContext(ctx, "attendance recorded", "student_id", saved.StudentID, "week", saved.WeekNumber, "semester_id", saved.SemesterID)

	s.notifyDirector(ctx, saved)
	return saved, nil
}

// classDate is the start of the scheduled week, or today when the week is
// not in the schedule.
func (s *Service) classDate(ctx context.Context, semesterID string, week int, now time.Time) time.Time {
	weeks, err := s.repo.ListWeeks(ctx, semesterID)
	if err != nil {
		s.log.WarnContext(ctx, "schedule unavailable for class date", "semester_id", semesterID, "error", err)
	}
	if w, ok := calendar.FindWeek(weeks, week); ok {
		return w.Start
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func (s *Service) notifyDirector(ctx context.Context, rec model.AttendanceRecord) {
	if s.notifier == nil {
		return
	}
	ev := notify.Event{
		Type:      model.NotifyAttendance,
		Title:     "Attendance submitted",
		StudentID: rec.StudentID,
		RelatedID: rec.ID,
		Scope:     notify.ScopeAssigned,
	}
	name := "A student"
	if st, err := s.repo.GetStudent(ctx, rec.StudentID); err != nil {
		s.log.WarnContext(ctx, "student lookup failed, notifying without clinic", "student_id", rec.StudentID, "error", err)
	} else {
		ev.Clinic, ev.ClinicID = st.Clinic, st.ClinicID
		ev.StudentName = st.FullName
		if st.FullName != "" {
			name = st.FullName
		}
	}
	ev.Message = fmt.Sprintf("%s submitted attendance for week %d.", name, rec.WeekNumber)
	s.notifier.Directors(ctx, ev)
}

// Records lists attendance, degrading to an empty list on transient store
// failures.
func (s *Service) Records(ctx context.Context, f model.AttendanceFilter) ([]model.AttendanceRecord, error) {
	out, err := s.repo.ListAttendance(ctx, f)
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "attendance unavailable, returning empty list", "error", err)
		return []model.AttendanceRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.AttendanceRecord{}
	}
	return out, nil
}

// SetPassword creates or replaces the password of a week. Week bounds
// default to the scheduled week.
func (s *Service) SetPassword(ctx context.Context, caller model.Caller, in PasswordInput) (model.AttendancePassword, error) {
	if !caller.Staff() {
		return model.AttendancePassword{}, model.ErrForbidden
	}
	in.Password = strings.TrimSpace(in.Password)
	if in.SemesterID == "" || in.WeekNumber <= 0 || in.Password == "" {
		return model.AttendancePassword{}, fmt.Errorf("%w: semester, week and password are required", ErrInvalidInput)
	}

	p := model.AttendancePassword{
		SemesterID:    in.SemesterID,
		WeekNumber:    in.WeekNumber,
		Password:      in.Password,
		CreatedByName: caller.Name,
		UpdatedAt:     s.now(),
	}
	if p.CreatedByName == "" {
		p.CreatedByName = caller.ID
	}
	if in.WeekStart != nil && in.WeekEnd != nil {
		p.WeekStart, p.WeekEnd = *in.WeekStart, *in.WeekEnd
	} else if weeks, err := s.repo.ListWeeks(ctx, in.SemesterID); err == nil {
		if w, ok := calendar.FindWeek(weeks, in.WeekNumber); ok {
			p.WeekStart, p.WeekEnd = w.Start, w.End
		}
	}

	saved, err := s.repo.UpsertPassword(ctx, p)
	if err != nil {
		return model.AttendancePassword{}, fmt.Errorf("save password: %w", err)
	}
	s.log.InfoContext(ctx, "attendance password set", "semester_id", saved.SemesterID, "week", saved.WeekNumber, "by", caller.ID)
	return saved, nil
}

// ListPasswords returns configured passwords by week; staff only.
func (s *Service) ListPasswords(ctx context.Context, caller model.Caller, semesterID string, week *int) ([]model.AttendancePassword, error) {
	if !caller.Staff() {
		return nil, model.ErrForbidden
	}
	out, err := s.repo.ListPasswords(ctx, semesterID, week)
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "passwords unavailable, returning empty list", "error", err)
		return []model.AttendancePassword{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.AttendancePassword{}
	}
	return out, nil
}

// DeletePassword removes a password; staff only.
func (s *Service) DeletePassword(ctx context.Context, caller model.Caller, id string) error {
	if !caller.Staff() {
		return model.ErrForbidden
	}
	return s.repo.DeletePassword(ctx, id)
}

// OpenAttendance announces to all students that the week's attendance is
// open. The week must already have a password.
func (s *Service) OpenAttendance(ctx context.Context, caller model.Caller, semesterID string, week int) (model.Notification, error) {
	if !caller.Staff() {
		return model.Notification{}, model.ErrForbidden
	}
	p, err := s.repo.GetPassword(ctx, semesterID, week)
	if errors.Is(err, store.ErrNotFound) {
		return model.Notification{}, ErrPasswordNotSet
	}
	if err != nil {
		return model.Notification{}, fmt.Errorf("load password: %w", err)
	}
	row := model.Notification{
		Type:      model.NotifyAnnouncement,
		Title:     fmt.Sprintf("Attendance open for week %d", week),
		Message:   fmt.Sprintf("Attendance for week %d is open. Use the password shared in class to check in.", week),
		RelatedID: p.ID,
	}
	if s.notifier == nil {
		row.TargetAudience = model.AudienceStudents
		return row, nil
	}
	return s.notifier.Broadcast(ctx, model.AudienceStudents, row), nil
}
