package model

import "time"

// AttendanceFilter selects attendance records. Zero fields do not filter.
type AttendanceFilter struct {
	StudentID  string
	SemesterID string
	WeekNumber *int
}

// DebriefFilter selects debriefs, most recent week first.
type DebriefFilter struct {
	StudentID  string
	SemesterID string
	// Clinic is a case-insensitive substring match.
	Clinic     string
	WeekEnding *time.Time
}

// MeetingFilter selects meeting requests. Clinic is a case-insensitive
// substring match. Ascending orders by creation time oldest first, which is
// the queue view; the default is most recent first.
type MeetingFilter struct {
	StudentID string
	Clinic    string
	Status    MeetingStatus
	ClientID  string
	Ascending bool
	Limit     int
}

// MeetingPatch is applied by a status transition. Nil pointers leave the
// column untouched.
type MeetingPatch struct {
	Status       MeetingStatus
	Notes        *string
	DebriefNotes *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// NotificationFilter selects notifications, most recent first.
type NotificationFilter struct {
	DirectorID string
	StudentID  string
	Audience   string
	// IncludeBroadcast also returns unaddressed rows for the audience.
	IncludeBroadcast bool
	UnreadOnly       bool
	Limit            int
}
