// Package clinic resolves the human-entered clinic text found on students,
// debriefs and meeting requests to canonical clinics and their directors.
package clinic

import (
	"strings"

	"clinicops/internal/model"
)

// Normalize is the single comparison key for clinic names: lower case, with a
// trailing " clinic" removed and surrounding space trimmed.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, " clinic")
	return strings.TrimSpace(n)
}

// Directory is an immutable lookup table over clinics, directors and their
// assignments. Build one per snapshot of the store.
type Directory struct {
	clinics   []model.Clinic
	directors []model.Director
	byClinic  map[string][]string
	keys      []string
}

// NewDirectory builds a lookup table. Clinic order is kept for tie-breaks.
func NewDirectory(clinics []model.Clinic, directors []model.Director, assignments []model.ClinicDirector) *Directory {
	d := &Directory{
		clinics:   clinics,
		directors: directors,
		byClinic:  make(map[string][]string),
		keys:      make([]string, len(clinics)),
	}
	for i, c := range clinics {
		d.keys[i] = Normalize(c.Name)
	}
	known := make(map[string]bool, len(directors))
	for _, dir := range directors {
		known[dir.ID] = true
	}
	for _, a := range assignments {
		if !known[a.DirectorID] {
			continue
		}
		if contains(d.byClinic[a.ClinicID], a.DirectorID) {
			continue
		}
		d.byClinic[a.ClinicID] = append(d.byClinic[a.ClinicID], a.DirectorID)
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Lookup resolves a clinic name. An exact normalized match wins; otherwise the
// first clinic whose normalized name contains the normalized query is used.
func (d *Directory) Lookup(name string) (model.Clinic, bool) {
	q := Normalize(name)
	if d == nil || q == "" {
		return model.Clinic{}, false
	}
	for i, k := range d.keys {
		if k == q {
			return d.clinics[i], true
		}
	}
	for i, k := range d.keys {
		if strings.Contains(k, q) {
			return d.clinics[i], true
		}
	}
	return model.Clinic{}, false
}

// Clinic returns the clinic with the given id.
func (d *Directory) Clinic(id string) (model.Clinic, bool) {
	if d == nil {
		return model.Clinic{}, false
	}
	for _, c := range d.clinics {
		if c.ID == id {
			return c, true
		}
	}
	return model.Clinic{}, false
}

// DirectorsOf returns the director ids assigned to clinicID.
func (d *Directory) DirectorsOf(clinicID string) []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.byClinic[clinicID]))
	copy(out, d.byClinic[clinicID])
	return out
}

// AllDirectors returns every director id in directory order.
func (d *Directory) AllDirectors() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.directors))
	for _, dir := range d.directors {
		out = append(out, dir.ID)
	}
	return out
}

// SameClinic reports whether two clinic texts refer to the same clinic.
func SameClinic(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}
