// Package model holds the records shared between the store backends and the
// services that coordinate them. Optional addressing fields are plain strings;
// the empty string is persisted as NULL.
package model

import "time"

// SemesterWeek is one row of a semester schedule. Weeks are ordered
// chronologically; WeekNumber is nil for unnumbered rows such as orientation.
type SemesterWeek struct {
	ID         string    `json:"id"`
	SemesterID string    `json:"semester_id"`
	WeekNumber *int      `json:"week_number"`
	Label      string    `json:"week_label"`
	Start      time.Time `json:"week_start"`
	End        time.Time `json:"week_end"`
	IsBreak    bool      `json:"is_break"`
}

// Number returns the week number or 0 when the week is unnumbered.
func (w SemesterWeek) Number() int {
	if w.WeekNumber == nil {
		return 0
	}
	return *w.WeekNumber
}

// AttendanceRecord marks a student's presence at one weekly class.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	SemesterID string    `json:"semester_id"`
	WeekNumber int       `json:"week_number"`
	ClassDate  time.Time `json:"class_date"`
	Present    bool      `json:"is_present"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttendancePassword is the shared weekly secret students enter to check in.
type AttendancePassword struct {
	ID            string    `json:"id"`
	SemesterID    string    `json:"semester_id"`
	WeekNumber    int       `json:"week_number"`
	Password      string    `json:"password"`
	WeekStart     time.Time `json:"week_start"`
	WeekEnd       time.Time `json:"week_end"`
	CreatedByName string    `json:"created_by_name,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Question types decide who hears about a debrief question.
const (
	QuestionTypeClinic = "clinic"
	QuestionTypeClient = "client"
)

// DebriefRecord is a student's weekly work summary.
type DebriefRecord struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name,omitempty"`
	SemesterID   string    `json:"semester_id,omitempty"`
	WeekEnding   time.Time `json:"week_ending"`
	HoursWorked  float64   `json:"hours_worked"`
	WorkSummary  string    `json:"work_summary,omitempty"`
	Clinic       string    `json:"clinic"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientName   string    `json:"client_name"`
	Questions    *string   `json:"questions"`
	QuestionType string    `json:"question_type,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// MeetingStatus is the lifecycle state of a meeting request.
type MeetingStatus string

const (
	MeetingPending    MeetingStatus = "pending"
	MeetingInProgress MeetingStatus = "in_progress"
	MeetingCompleted  MeetingStatus = "completed"
)

// Valid reports whether s is a known status.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingPending, MeetingInProgress, MeetingCompleted:
		return true
	default:
		return false
	}
}

// MeetingRequest is a student's request for time with a director.
type MeetingRequest struct {
	ID             string        `json:"id"`
	StudentID      string        `json:"student_id"`
	StudentName    string        `json:"student_name,omitempty"`
	StudentEmail   string        `json:"student_email,omitempty"`
	Clinic         string        `json:"clinic"`
	ClientID       string        `json:"client_id,omitempty"`
	Subject        string        `json:"subject"`
	Message        string        `json:"message"`
	PreferredDates []string      `json:"preferred_dates"`
	Status         MeetingStatus `json:"status"`
	Notes          string        `json:"notes,omitempty"`
	DebriefNotes   string        `json:"debrief_notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Notification types.
const (
	NotifyMeetingRequest = "meeting_request"
	NotifyQuestion       = "question"
	NotifyAnnouncement   = "announcement"
	NotifyDebrief        = "debrief"
	NotifyAttendance     = "attendance"
)

// Target audiences.
const (
	AudienceStudents  = "students"
	AudienceDirectors = "directors"
)

// Notification is written once; only IsRead changes afterwards.
// A row with neither DirectorID nor StudentID set is a broadcast.
type Notification struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	StudentID      string    `json:"student_id,omitempty"`
	StudentName    string    `json:"student_name,omitempty"`
	DirectorID     string    `json:"director_id,omitempty"`
	ClinicID       string    `json:"clinic_id,omitempty"`
	RelatedID      string    `json:"related_id,omitempty"`
	TargetAudience string    `json:"target_audience,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Clinic is a program track such as Marketing or Accounting.
type Clinic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Director supervises one or more clinics.
type Director struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// ClinicDirector assigns a director to a clinic.
type ClinicDirector struct {
	ClinicID   string `json:"clinic_id"`
	DirectorID string `json:"director_id"`
}

// Student is an enrolled participant. Clinic holds the human-entered clinic
// text; ClinicID is set when the enrollment was linked to a canonical clinic.
type Student struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Clinic     string `json:"clinic"`
	ClinicID   string `json:"clinic_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	SemesterID string `json:"semester_id"`
}
