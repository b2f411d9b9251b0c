// Package notify turns coordination events into notification rows. Fan-out
// decides who hears about an event; the outbox writes the rows as a
// best-effort step that never fails the action that triggered it.
package notify

import (
	"clinicops/internal/clinic"
	"clinicops/internal/model"
)

// Scope is the recipient policy of an event.
type Scope int

const (
	// ScopeAssigned reaches the clinic's directors, or a single broadcast row
	// when none resolve.
	ScopeAssigned Scope = iota
	// ScopeClinic reaches the clinic's directors, or every director when the
	// clinic is unknown or has no assigned director.
	ScopeClinic
	// ScopeClient reaches every director.
	ScopeClient
)

// Event describes something directors should hear about.
type Event struct {
	Type        string
	Title       string
	Message     string
	Clinic      string // human-entered clinic text
	ClinicID    string // canonical id, when already known
	StudentID   string
	StudentName string
	RelatedID   string
	Scope       Scope
}

// Recipients resolves the clinic and the director ids an event reaches.
// A nil directory resolves nothing.
func Recipients(dir *clinic.Directory, ev Event) (clinicID string, directors []string) {
	clinicID = ev.ClinicID
	if clinicID == "" && ev.Clinic != "" {
		if c, ok := dir.Lookup(ev.Clinic); ok {
			clinicID = c.ID
		}
	}

	switch ev.Scope {
	case ScopeClient:
		return clinicID, dir.AllDirectors()
	case ScopeClinic:
		if clinicID != "" {
			if ids := dir.DirectorsOf(clinicID); len(ids) > 0 {
				return clinicID, ids
			}
		}
		return clinicID, dir.AllDirectors()
	default:
		if clinicID == "" {
			return "", nil
		}
		return clinicID, dir.DirectorsOf(clinicID)
	}
}

// Build expands an event into rows addressed to directors. It always returns
// at least one row: with no recipients it returns a single broadcast.
func Build(dir *clinic.Directory, ev Event) []model.Notification {
	clinicID, directors := Recipients(dir, ev)
	base := model.Notification{
		Type:           ev.Type,
		Title:          ev.Title,
		Message:        ev.Message,
		StudentID:      ev.StudentID,
		StudentName:    ev.StudentName,
		ClinicID:       clinicID,
		RelatedID:      ev.RelatedID,
		TargetAudience: model.AudienceDirectors,
	}
	if len(directors) == 0 {
		return []model.Notification{base}
	}
	out := make([]model.Notification, 0, len(directors))
	for _, id := range directors {
		n := base
		n.DirectorID = id
		out = append(out, n)
	}
	return out
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
