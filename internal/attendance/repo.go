package attendance

import (
	"context"

	"clinicops/internal/model"
)

// Repository is the slice of the store the attendance guard needs. Both the
// Postgres and the in-memory stores satisfy it.
type Repository interface {
	GetPassword(ctx context.Context, semesterID string, weekNumber int) (model.AttendancePassword, error)
	UpsertPassword(ctx context.Context, p model.AttendancePassword) (model.AttendancePassword, error)
	ListPasswords(ctx context.Context, semesterID string, weekNumber *int) ([]model.AttendancePassword, error)
	DeletePassword(ctx context.Context, id string) error

	// InsertAttendanceIfAbsent reports inserted=false when the
	// (student, week, semester) key already holds a record.
	InsertAttendanceIfAbsent(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, bool, error)
	ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.AttendanceRecord, error)

	ListWeeks(ctx context.Context, semesterID string) ([]model.SemesterWeek, error)
	GetStudent(ctx context.Context, id string) (model.Student, error)
}
