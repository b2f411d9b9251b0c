// Package progress renders student and clinic standing from store snapshots.
// Views are recomputed on demand and held in the injected cache for a short
// TTL.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"clinicops/internal/cache"
	"clinicops/internal/calendar"
	"clinicops/internal/clinic"
	"clinicops/internal/metrics"
	"clinicops/internal/model"
	"clinicops/internal/store"
)

// ErrInvalidInput wraps malformed queries.
var ErrInvalidInput = errors.New("invalid input")

// Repository is the read side the views are derived from.
type Repository interface {
	ListWeeks(ctx context.Context, semesterID string) ([]model.SemesterWeek, error)
	ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.AttendanceRecord, error)
	ListDebriefs(ctx context.Context, f model.DebriefFilter) ([]model.DebriefRecord, error)
	ListStudents(ctx context.Context, semesterID string) ([]model.Student, error)
	GetStudent(ctx context.Context, id string) (model.Student, error)
}

// DirectoryLoader resolves clinic names to canonical clinics.
type DirectoryLoader interface {
	Load(ctx context.Context) (*clinic.Directory, error)
}

// Student is one student's standing.
type Student struct {
	StudentID   string                `json:"student_id"`
	StudentName string                `json:"student_name,omitempty"`
	Clinic      string                `json:"clinic,omitempty"`
	SemesterID  string                `json:"semester_id"`
	CurrentWeek int                   `json:"current_week"`
	Attendance  calendar.Summary      `json:"attendance"`
	Debriefs    calendar.Summary      `json:"debriefs"`
	Weeks       []calendar.WeekStatus `json:"weeks"`
}

// Clinic is the standing of every student of one clinic.
type Clinic struct {
	Clinic                string    `json:"clinic"`
	ClinicID              string    `json:"clinic_id,omitempty"`
	SemesterID            string    `json:"semester_id"`
	CurrentWeek           int       `json:"current_week"`
	Students              []Student `json:"students"`
	AverageAttendanceRate int       `json:"average_attendance_rate"`
	AverageDebriefRate    int       `json:"average_debrief_rate"`
}

// Schedule is the semester calendar with the current week marked.
type Schedule struct {
	SemesterID  string               `json:"semester_id"`
	CurrentWeek int                  `json:"current_week"`
	Weeks       []model.SemesterWeek `json:"weeks"`
}

// Options tune the service.
type Options struct {
	TTL     time.Duration
	Cache   cache.Cache
	Metrics *metrics.Metrics
	Now     func() time.Time
	Log     *slog.Logger
}

type Service struct {
	repo    Repository
	dirs    DirectoryLoader
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	log     *slog.Logger
}

func NewService(repo Repository, dirs DirectoryLoader, opts Options) *Service {
	s := &Service{repo: repo, dirs: dirs, cache: opts.Cache, ttl: opts.TTL, metrics: opts.Metrics, now: opts.Now, log: opts.Log}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.ttl <= 0 {
		s.ttl = time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// cached serves key from the cache or computes and stores it. A view computed
// from a degraded read is served but not stored. Cache errors are logged and
// bypassed.
func cached[T any](ctx context.Context, s *Service, view, key string, compute func() (T, bool, error)) (T, error) {
	var v T
	hit, err := s.cache.Get(ctx, key, &v)
	if err != nil {
		s.log.WarnContext(ctx, "progress cache read failed", "key", key, "error", err)
	}
	s.metrics.CacheLookup(view, hit)
	if hit {
		return v, nil
	}
	v, degraded, err := compute()
	if err != nil || degraded {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.WarnContext(ctx, "progress cache write failed", "key", key, "error", err)
	}
	return v, nil
}

// Schedule returns the semester's weeks and the current week number.
func (s *Service) Schedule(ctx context.Context, semesterID string) (Schedule, error) {
	if semesterID == "" {
		return Schedule{}, fmt.Errorf("%w: semester is required", ErrInvalidInput)
	}
	key := cache.Key("progress:schedule", map[string]string{"semester": semesterID})
	return cached(ctx, s, "schedule", key, func() (Schedule, bool, error) {
		weeks, degraded, err := s.weeks(ctx, semesterID)
		if err != nil {
			return Schedule{}, false, err
		}
		if weeks == nil {
			weeks = []model.SemesterWeek{}
		}
		return Schedule{SemesterID: semesterID, CurrentWeek: calendar.CurrentWeekNumber(weeks, s.now()), Weeks: weeks}, degraded, nil
	})
}

// StudentProgress derives one student's standing. Students may only read
// their own. An empty semesterID means the student's enrolled semester.
func (s *Service) StudentProgress(ctx context.Context, caller model.Caller, studentID, semesterID string) (Student, error) {
	if caller.Role == model.RoleStudent && caller.ID != studentID {
		return Student{}, model.ErrForbidden
	}
	if studentID == "" {
		return Student{}, fmt.Errorf("%w: student is required", ErrInvalidInput)
	}

	st, err := s.repo.GetStudent(ctx, studentID)
	lookupFailed := false
	switch {
	case errors.Is(err, store.ErrNotFound) && semesterID == "":
		return Student{}, err
	case err != nil && !errors.Is(err, store.ErrNotFound):
		s.log.WarnContext(ctx, "student lookup failed", "student_id", studentID, "error", err)
		lookupFailed = true
	}
	if semesterID == "" {
		semesterID = st.SemesterID
	}
	if semesterID == "" {
		return Student{}, fmt.Errorf("%w: semester is required", ErrInvalidInput)
	}

	key := cache.Key("progress:student", map[string]string{"student": studentID, "semester": semesterID})
	return cached(ctx, s, "student", key, func() (Student, bool, error) {
		weeks, weeksDegraded, err := s.weeks(ctx, semesterID)
		if err != nil {
			return Student{}, false, err
		}
		st.ID = studentID
		p, degraded, err := s.derive(ctx, st, semesterID, weeks)
		return p, lookupFailed || weeksDegraded || degraded, err
	})
}

// ClinicProgress derives the standing of every enrolled student whose clinic
// resolves to the same canonical clinic as name. Staff only.
func (s *Service) ClinicProgress(ctx context.Context, caller model.Caller, name, semesterID string) (Clinic, error) {
	if !caller.Staff() {
		return Clinic{}, model.ErrForbidden
	}
	if name == "" || semesterID == "" {
		return Clinic{}, fmt.Errorf("%w: clinic and semester are required", ErrInvalidInput)
	}

	key := cache.Key("progress:clinic", map[string]string{"clinic": clinic.Normalize(name), "semester": semesterID})
	return cached(ctx, s, "clinic", key, func() (Clinic, bool, error) {
		weeks, degraded, err := s.weeks(ctx, semesterID)
		if err != nil {
			return Clinic{}, false, err
		}
		students, err := s.repo.ListStudents(ctx, semesterID)
		if errors.Is(err, store.ErrTransient) {
			s.log.WarnContext(ctx, "students unavailable, returning empty clinic", "error", err)
			students, degraded = nil, true
		} else if err != nil {
			return Clinic{}, false, err
		}

		out := Clinic{Clinic: name, SemesterID: semesterID, CurrentWeek: calendar.CurrentWeekNumber(weeks, s.now()), Students: []Student{}}
		match := s.clinicMatcher(ctx, name)
		if dir, err := s.directory(ctx); err == nil {
			if c, ok := dir.Lookup(name); ok {
				out.Clinic, out.ClinicID = c.Name, c.ID
			}
		}

		var attendanceSum, debriefSum int
		for _, st := range students {
			if !match(st) {
				continue
			}
			p, partial, err := s.derive(ctx, st, semesterID, weeks)
			if err != nil {
				return Clinic{}, false, err
			}
			degraded = degraded || partial
			attendanceSum += p.Attendance.Rate
			debriefSum += p.Debriefs.Rate
			out.Students = append(out.Students, p)
		}
		if n := len(out.Students); n > 0 {
			out.AverageAttendanceRate = int(math.Round(float64(attendanceSum) / float64(n)))
			out.AverageDebriefRate = int(math.Round(float64(debriefSum) / float64(n)))
		}
		return out, degraded, nil
	})
}

// Invalidate drops every cached progress view.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Clear(ctx, "progress:"); err != nil {
		s.log.WarnContext(ctx, "progress cache clear failed", "error", err)
	}
}

// derive reports degraded when a transient failure left out records.
func (s *Service) derive(ctx context.Context, st model.Student, semesterID string, weeks []model.SemesterWeek) (Student, bool, error) {
	degraded := false
	attendance, err := s.repo.ListAttendance(ctx, model.AttendanceFilter{StudentID: st.ID, SemesterID: semesterID})
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "attendance unavailable, deriving without it", "student_id", st.ID, "error", err)
		attendance, degraded = nil, true
	} else if err != nil {
		return Student{}, false, err
	}
	debriefs, err := s.repo.ListDebriefs(ctx, model.DebriefFilter{StudentID: st.ID, SemesterID: semesterID})
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "debriefs unavailable, deriving without them", "student_id", st.ID, "error", err)
		debriefs, degraded = nil, true
	} else if err != nil {
		return Student{}, false, err
	}

	now := s.now()
	return Student{
		StudentID:   st.ID,
		StudentName: st.FullName,
		Clinic:      st.Clinic,
		SemesterID:  semesterID,
		CurrentWeek: calendar.CurrentWeekNumber(weeks, now),
		Attendance:  calendar.AttendanceRate(attendance, weeks, now, true),
		Debriefs:    calendar.DebriefRate(debriefs, weeks, now),
		Weeks:       calendar.WeekStatuses(weeks, attendance, now),
	}, degraded, nil
}

// weeks reads the schedule; a temporarily unavailable store yields an empty
// schedule flagged as degraded, which derives to zero counts.
func (s *Service) weeks(ctx context.Context, semesterID string) ([]model.SemesterWeek, bool, error) {
	weeks, err := s.repo.ListWeeks(ctx, semesterID)
	if errors.Is(err, store.ErrTransient) {
		s.log.WarnContext(ctx, "schedule unavailable, deriving from empty schedule", "semester_id", semesterID, "error", err)
		return nil, true, nil
	}
	return weeks, false, err
}

func (s *Service) directory(ctx context.Context) (*clinic.Directory, error) {
	if s.dirs == nil {
		return nil, errors.New("no directory configured")
	}
	return s.dirs.Load(ctx)
}

// clinicMatcher matches students by canonical clinic id when the directory
// resolves name, and by normalized clinic text otherwise.
func (s *Service) clinicMatcher(ctx context.Context, name string) func(model.Student) bool {
	dir, err := s.directory(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "directory unavailable, matching clinic by name", "error", err)
		return func(st model.Student) bool { return clinic.SameClinic(st.Clinic, name) }
	}
	target, ok := dir.Lookup(name)
	if !ok {
		return func(st model.Student) bool { return clinic.SameClinic(st.Clinic, name) }
	}
	return func(st model.Student) bool {
		if st.ClinicID != "" {
			return st.ClinicID == target.ID
		}
		c, ok := dir.Lookup(st.Clinic)
		return ok && c.ID == target.ID
	}
}
