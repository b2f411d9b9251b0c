// Package calendar derives a student's standing from the semester schedule and
// raw attendance and debrief records. Every function is pure: it reads its
// arguments, never mutates them, and returns zero values for empty input.
package calendar

import (
	"math"
	"time"

	"clinicops/internal/model"
)

// DateLayout is the wire format for schedule dates.
const DateLayout = "2006-01-02"

// Weekly classes meet on the first day of the week and end at 19:30 local time.
const (
	classHour   = 19
	classMinute = 30
)

// Class statuses.
const (
	StatusAttended = "attended"
	StatusMissed   = "missed"
	StatusUpcoming = "upcoming"
	StatusBreak    = "break"
)

// Summary is a count-based completion figure. Rate is a whole percentage in [0,100].
type Summary struct {
	Done  int `json:"done"`
	Total int `json:"total"`
	Rate  int `json:"rate"`
}

// WeekStatus pairs a schedule week with its class status.
type WeekStatus struct {
	Week   model.SemesterWeek `json:"week"`
	Status string             `json:"status"`
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ClassInstant is when the class of week w ends, in the schedule's location.
func ClassInstant(w model.SemesterWeek) time.Time {
	y, m, d := w.Start.Date()
	return time.Date(y, m, d, classHour, classMinute, 0, 0, w.Start.Location())
}

// contains reports whether today falls within [start 00:00, end 23:59:59.999].
func contains(w model.SemesterWeek, today time.Time) bool {
	t := today.In(w.Start.Location())
	return !t.Before(startOfDay(w.Start)) && !t.After(endOfDay(w.End))
}

// CurrentWeekNumber returns the number of the week containing today. Before
// the first week it returns 0; after the last week it returns the last week's
// number. Boundaries are inclusive on both ends.
func CurrentWeekNumber(schedule []model.SemesterWeek, today time.Time) int {
	if len(schedule) == 0 {
		return 0
	}
	for _, w := range schedule {
		if contains(w, today) {
			return w.Number()
		}
	}
	first, last := schedule[0], schedule[len(schedule)-1]
	if today.Before(startOfDay(first.Start)) {
		return 0
	}
	if today.After(endOfDay(last.End)) {
		return last.Number()
	}
	// today sits in a gap between two published weeks
	return 0
}

// ElapsedClassCount counts non-break weeks whose class instant is at or before
// the end of today.
func ElapsedClassCount(schedule []model.SemesterWeek, today time.Time) int {
	n := 0
	for _, w := range schedule {
		if w.IsBreak {
			continue
		}
		if !ClassInstant(w).After(endOfDay(today.In(w.Start.Location()))) {
			n++
		}
	}
	return n
}

// TotalClassCount counts non-break weeks.
func TotalClassCount(schedule []model.SemesterWeek) int {
	n := 0
	for _, w := range schedule {
		if !w.IsBreak {
			n++
		}
	}
	return n
}

// ExpectedDebriefCount counts weeks, breaks included, that ended on or before
// today. Debriefs are expected during breaks.
func ExpectedDebriefCount(schedule []model.SemesterWeek, today time.Time) int {
	n := 0
	for _, w := range schedule {
		if !startOfDay(w.End).After(endOfDay(today.In(w.End.Location()))) {
			n++
		}
	}
	return n
}

// AttendanceRate reports attended classes against elapsed classes, or against
// all scheduled classes when useElapsed is false. Only records explicitly
// marked present count.
func AttendanceRate(records []model.AttendanceRecord, schedule []model.SemesterWeek, today time.Time, useElapsed bool) Summary {
	attended := 0
	for _, r := range records {
		if r.Present {
			attended++
		}
	}
	total := TotalClassCount(schedule)
	if useElapsed {
		total = ElapsedClassCount(schedule, today)
	}
	return Summary{Done: attended, Total: total, Rate: rate(attended, total)}
}

// DebriefRate reports submitted debriefs against expected debriefs.
func DebriefRate(records []model.DebriefRecord, schedule []model.SemesterWeek, today time.Time) Summary {
	submitted := len(records)
	total := ExpectedDebriefCount(schedule, today)
	return Summary{Done: submitted, Total: total, Rate: rate(submitted, total)}
}

func rate(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	r := int(math.Round(float64(done) / float64(total) * 100))
	if r > 100 {
		return 100
	}
	return r
}

// ClassStatus classifies week w at instant now.
func ClassStatus(w model.SemesterWeek, records []model.AttendanceRecord, now time.Time) string {
	if w.IsBreak {
		return StatusBreak
	}
	if w.WeekNumber != nil {
		for _, r := range records {
			if r.Present && r.WeekNumber == *w.WeekNumber {
				return StatusAttended
			}
		}
	}
	if now.After(ClassInstant(w)) {
		return StatusMissed
	}
	return StatusUpcoming
}

// WeekStatuses classifies every week of the schedule in order.
func WeekStatuses(schedule []model.SemesterWeek, records []model.AttendanceRecord, now time.Time) []WeekStatus {
	out := make([]WeekStatus, 0, len(schedule))
	for _, w := range schedule {
		out = append(out, WeekStatus{Week: w, Status: ClassStatus(w, records, now)})
	}
	return out
}

// FindWeek returns the week numbered n.
func FindWeek(schedule []model.SemesterWeek, n int) (model.SemesterWeek, bool) {
	for _, w := range schedule {
		if w.WeekNumber != nil && *w.WeekNumber == n {
			return w, true
		}
	}
	return model.SemesterWeek{}, false
}
