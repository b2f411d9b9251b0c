package app

import (
	"context"
	"strconv"
	"time"

	"clinicops/internal/model"
	"clinicops/internal/store/memory"
)

// DemoSemester is the semester id of the seeded dev data.
const DemoSemester = "demo"

// SeedDemo loads a thirteen-week semester around now, with week 6 as a
// break, plus two clinics and their people.
func SeedDemo(ctx context.Context, st *memory.Store, loc *time.Location, now time.Time) error {
	st.SeedDirectory(
		[]model.Clinic{
			{ID: "clinic-marketing", Name: "Marketing Clinic"},
			{ID: "clinic-accounting", Name: "Accounting Clinic"},
		},
		[]model.Director{
			{ID: "director-1", FullName: "Demo Director", Email: "director@example.com"},
			{ID: "director-2", FullName: "Second Director", Email: "director2@example.com"},
		},
		[]model.ClinicDirector{
			{ClinicID: "clinic-marketing", DirectorID: "director-1"},
			{ClinicID: "clinic-accounting", DirectorID: "director-2"},
		},
		[]model.Student{
			{ID: "student-1", FullName: "Demo Student", Email: "student@example.com", Clinic: "Marketing", ClinicID: "clinic-marketing", SemesterID: DemoSemester},
			{ID: "student-2", FullName: "Another Student", Email: "student2@example.com", Clinic: "Accounting", ClinicID: "clinic-accounting", SemesterID: DemoSemester},
		},
	)

	local := now.In(loc)
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	offset := (int(today.Weekday()) + 6) % 7
	first := today.AddDate(0, 0, -offset-4*7)

	weeks := make([]model.SemesterWeek, 0, 13)
	for i := 0; i < 13; i++ {
		n := i + 1
		start := first.AddDate(0, 0, 7*i)
		weeks = append(weeks, model.SemesterWeek{
			WeekNumber: &n,
			Label:      "Week " + strconv.Itoa(n),
			Start:      start,
			End:        start.AddDate(0, 0, 6),
			IsBreak:    n == 6,
		})
	}
	return st.ReplaceWeeks(ctx, DemoSemester, weeks)
}

