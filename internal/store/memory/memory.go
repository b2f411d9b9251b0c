// Package memory is an in-process store backend used for local runs and
// tests. It honours the same contracts as the Postgres backend: equality and
// case-insensitive substring filters, both orderings, and an atomic
// insert-if-absent for attendance.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinicops/internal/model"
	"clinicops/internal/store"
)

// Store keeps every table in memory behind a single lock.
type Store struct {
	mu sync.RWMutex

	weeks           []model.SemesterWeek
	attendance      []model.AttendanceRecord
	passwords       []model.AttendancePassword
	debriefs        []model.DebriefRecord
	meetings        []model.MeetingRequest
	notifications   []model.Notification
	clinics         []model.Clinic
	directors       []model.Director
	clinicDirectors []model.ClinicDirector
	students        []model.Student

	faults map[string]error
	now    func() time.Time
}

// New returns an empty store. now stamps created_at columns the caller left
// zero; nil means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{faults: make(map[string]error), now: now}
}

// InjectFault makes the named operation (for example "ListMeetings") fail
// with err until cleared with a nil err.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	return s.faults[op]
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ---- Directory ----

// SeedDirectory replaces the clinic directory and enrollment tables.
func (s *Store) SeedDirectory(clinics []model.Clinic, directors []model.Director, assignments []model.ClinicDirector, students []model.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clinics = append([]model.Clinic(nil), clinics...)
	s.directors = append([]model.Director(nil), directors...)
	s.clinicDirectors = append([]model.ClinicDirector(nil), assignments...)
	s.students = append([]model.Student(nil), students...)
}

func (s *Store) ListClinics(ctx context.Context) ([]model.Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListClinics"); err != nil {
		return nil, err
	}
	return append([]model.Clinic(nil), s.clinics...), nil
}

func (s *Store) ListDirectors(ctx context.Context) ([]model.Director, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListDirectors"); err != nil {
		return nil, err
	}
	return append([]model.Director(nil), s.directors...), nil
}

func (s *Store) ListClinicDirectors(ctx context.Context) ([]model.ClinicDirector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListClinicDirectors"); err != nil {
		return nil, err
	}
	return append([]model.ClinicDirector(nil), s.clinicDirectors...), nil
}

func (s *Store) GetStudent(ctx context.Context, id string) (model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("GetStudent"); err != nil {
		return model.Student{}, err
	}
	for _, st := range s.students {
		if st.ID == id {
			return st, nil
		}
	}
	return model.Student{}, store.ErrNotFound
}

func (s *Store) ListStudents(ctx context.Context, semesterID string) ([]model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListStudents"); err != nil {
		return nil, err
	}
	var out []model.Student
	for _, st := range s.students {
		if semesterID == "" || st.SemesterID == semesterID {
			out = append(out, st)
		}
	}
	return out, nil
}

// ---- Schedule ----

// ReplaceWeeks swaps the schedule of one semester, as an admin re-import does.
func (s *Store) ReplaceWeeks(ctx context.Context, semesterID string, weeks []model.SemesterWeek) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ReplaceWeeks"); err != nil {
		return err
	}
	kept := s.weeks[:0:0]
	for _, w := range s.weeks {
		if w.SemesterID != semesterID {
			kept = append(kept, w)
		}
	}
	for _, w := range weeks {
		w.ID = newID(w.ID)
		w.SemesterID = semesterID
		kept = append(kept, w)
	}
	s.weeks = kept
	return nil
}

func (s *Store) ListWeeks(ctx context.Context, semesterID string) ([]model.SemesterWeek, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListWeeks"); err != nil {
		return nil, err
	}
	var out []model.SemesterWeek
	for _, w := range s.weeks {
		if w.SemesterID == semesterID {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// ---- Attendance ----

// InsertAttendanceIfAbsent stores rec unless a record already exists for the
// same student, week and semester. The check and the write share one lock.
func (s *Store) InsertAttendanceIfAbsent(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertAttendanceIfAbsent"); err != nil {
		return model.AttendanceRecord{}, false, err
	}
	for _, r := range s.attendance {
		if r.StudentID == rec.StudentID && r.WeekNumber == rec.WeekNumber && r.SemesterID == rec.SemesterID {
			return r, false, nil
		}
	}
	rec.ID = newID(rec.ID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.attendance = append(s.attendance, rec)
	return rec, true, nil
}

func (s *Store) ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListAttendance"); err != nil {
		return nil, err
	}
	var out []model.AttendanceRecord
	for _, r := range s.attendance {
		if f.StudentID != "" && r.StudentID != f.StudentID {
			continue
		}
		if f.SemesterID != "" && r.SemesterID != f.SemesterID {
			continue
		}
		if f.WeekNumber != nil && r.WeekNumber != *f.WeekNumber {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClassDate.After(out[j].ClassDate) })
	return out, nil
}

// ---- Passwords ----

func (s *Store) GetPassword(ctx context.Context, semesterID string, weekNumber int) (model.AttendancePassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("GetPassword"); err != nil {
		return model.AttendancePassword{}, err
	}
	for _, p := range s.passwords {
		if p.SemesterID == semesterID && p.WeekNumber == weekNumber {
			return p, nil
		}
	}
	return model.AttendancePassword{}, store.ErrNotFound
}

// UpsertPassword replaces the password keyed by semester and week.
func (s *Store) UpsertPassword(ctx context.Context, p model.AttendancePassword) (model.AttendancePassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpsertPassword"); err != nil {
		return model.AttendancePassword{}, err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	for i, existing := range s.passwords {
		if existing.SemesterID == p.SemesterID && existing.WeekNumber == p.WeekNumber {
			p.ID = existing.ID
			s.passwords[i] = p
			return p, nil
		}
	}
	p.ID = newID(p.ID)
	s.passwords = append(s.passwords, p)
	return p, nil
}

func (s *Store) ListPasswords(ctx context.Context, semesterID string, weekNumber *int) ([]model.AttendancePassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListPasswords"); err != nil {
		return nil, err
	}
	var out []model.AttendancePassword
	for _, p := range s.passwords {
		if semesterID != "" && p.SemesterID != semesterID {
			continue
		}
		if weekNumber != nil && p.WeekNumber != *weekNumber {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (s *Store) DeletePassword(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("DeletePassword"); err != nil {
		return err
	}
	for i, p := range s.passwords {
		if p.ID == id {
			s.passwords = append(s.passwords[:i], s.passwords[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ---- Debriefs ----

func (s *Store) InsertDebrief(ctx context.Context, d model.DebriefRecord) (model.DebriefRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertDebrief"); err != nil {
		return model.DebriefRecord{}, err
	}
	d.ID = newID(d.ID)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.debriefs = append(s.debriefs, d)
	return d, nil
}

func (s *Store) ListDebriefs(ctx context.Context, f model.DebriefFilter) ([]model.DebriefRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListDebriefs"); err != nil {
		return nil, err
	}
	var out []model.DebriefRecord
	for _, d := range s.debriefs {
		if f.StudentID != "" && d.StudentID != f.StudentID {
			continue
		}
		if f.SemesterID != "" && d.SemesterID != f.SemesterID {
			continue
		}
		if f.Clinic != "" && !containsFold(d.Clinic, f.Clinic) {
			continue
		}
		if f.WeekEnding != nil && !d.WeekEnding.Equal(*f.WeekEnding) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WeekEnding.After(out[j].WeekEnding) })
	return out, nil
}

// ---- Meetings ----

func (s *Store) InsertMeeting(ctx context.Context, m model.MeetingRequest) (model.MeetingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertMeeting"); err != nil {
		return model.MeetingRequest{}, err
	}
	m.ID = newID(m.ID)
	m.PreferredDates = append([]string{}, m.PreferredDates...)
	s.meetings = append(s.meetings, m)
	return m, nil
}

func (s *Store) GetMeeting(ctx context.Context, id string) (model.MeetingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("GetMeeting"); err != nil {
		return model.MeetingRequest{}, err
	}
	for _, m := range s.meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return model.MeetingRequest{}, store.ErrNotFound
}

// UpdateMeetingStatus applies patch only while the request is still in state
// from; otherwise it reports ErrConflict, or ErrNotFound for an unknown id.
func (s *Store) UpdateMeetingStatus(ctx context.Context, id string, from model.MeetingStatus, patch model.MeetingPatch) (model.MeetingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpdateMeetingStatus"); err != nil {
		return model.MeetingRequest{}, err
	}
	for i, m := range s.meetings {
		if m.ID != id {
			continue
		}
		if m.Status != from {
			return model.MeetingRequest{}, store.ErrConflict
		}
		m.Status = patch.Status
		if patch.Notes != nil {
			m.Notes = *patch.Notes
		}
		if patch.DebriefNotes != nil {
			m.DebriefNotes = *patch.DebriefNotes
		}
		if patch.StartedAt != nil && m.StartedAt == nil {
			t := *patch.StartedAt
			m.StartedAt = &t
		}
		if patch.CompletedAt != nil && m.CompletedAt == nil {
			t := *patch.CompletedAt
			m.CompletedAt = &t
		}
		m.UpdatedAt = patch.UpdatedAt
		s.meetings[i] = m
		return m, nil
	}
	return model.MeetingRequest{}, store.ErrNotFound
}

func (s *Store) ListMeetings(ctx context.Context, f model.MeetingFilter) ([]model.MeetingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListMeetings"); err != nil {
		return nil, err
	}
	var out []model.MeetingRequest
	for _, m := range s.meetings {
		if f.StudentID != "" && m.StudentID != f.StudentID {
			continue
		}
		if f.Clinic != "" && !containsFold(m.Clinic, f.Clinic) {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.ClientID != "" && m.ClientID != f.ClientID {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ---- Notifications ----

func (s *Store) InsertNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertNotification"); err != nil {
		return model.Notification{}, err
	}
	n.ID = newID(n.ID)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications = append(s.notifications, n)
	return n, nil
}

func matchNotification(n model.Notification, f model.NotificationFilter) bool {
	if f.Audience != "" && n.TargetAudience != f.Audience {
		return false
	}
	if f.DirectorID != "" && n.DirectorID != f.DirectorID && !(f.IncludeBroadcast && n.DirectorID == "") {
		return false
	}
	if f.StudentID != "" && n.StudentID != f.StudentID && !(f.IncludeBroadcast && n.StudentID == "") {
		return false
	}
	if f.UnreadOnly && n.IsRead {
		return false
	}
	return true
}

func (s *Store) ListNotifications(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListNotifications"); err != nil {
		return nil, err
	}
	var out []model.Notification
	for _, n := range s.notifications {
		if matchNotification(n, f) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context, f model.NotificationFilter) (int, error) {
	f.Limit = 0
	list, err := s.ListNotifications(ctx, f)
	return len(list), err
}

func (s *Store) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("GetNotification"); err != nil {
		return model.Notification{}, err
	}
	for _, n := range s.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return model.Notification{}, store.ErrNotFound
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("MarkNotificationRead"); err != nil {
		return err
	}
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}
