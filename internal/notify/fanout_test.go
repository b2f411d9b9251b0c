package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicops/internal/clinic"
	"clinicops/internal/model"
)

func programDirectory() *clinic.Directory {
	return clinic.NewDirectory(
		[]model.Clinic{
			{ID: "c-mkt", Name: "Marketing Clinic"},
			{ID: "c-acct", Name: "Accounting"},
			{ID: "c-legal", Name: "Legal Clinic"},
		},
		[]model.Director{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}, {ID: "d4"}},
		[]model.ClinicDirector{
			{ClinicID: "c-mkt", DirectorID: "d1"},
			{ClinicID: "c-mkt", DirectorID: "d2"},
			{ClinicID: "c-acct", DirectorID: "d3"},
		},
	)
}

func directorIDs(rows []model.Notification) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.DirectorID)
	}
	return out
}

func TestBuild_ClinicAndClientScopedQuestions(t *testing.T) {
	dir := programDirectory()

	clinicRows := Build(dir, Event{Type: model.NotifyQuestion, Clinic: "Marketing", Scope: ScopeClinic})
	assert.Equal(t, []string{"d1", "d2"}, directorIDs(clinicRows))
	for _, r := range clinicRows {
		assert.Equal(t, "c-mkt", r.ClinicID)
		assert.Equal(t, model.AudienceDirectors, r.TargetAudience)
	}

	clientRows := Build(dir, Event{Type: model.NotifyQuestion, Clinic: "Marketing", Scope: ScopeClient})
	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, directorIDs(clientRows))
}

func TestRecipients(t *testing.T) {
	dir := programDirectory()

	cases := []struct {
		name       string
		ev         Event
		wantClinic string
		want       []string
	}{
		{"assigned with directors", Event{Clinic: "accounting clinic", Scope: ScopeAssigned}, "c-acct", []string{"d3"}},
		{"assigned without directors", Event{Clinic: "Legal", Scope: ScopeAssigned}, "c-legal", []string{}},
		{"assigned unknown clinic", Event{Clinic: "Space", Scope: ScopeAssigned}, "", nil},
		{"clinic falls back to everyone", Event{Clinic: "Legal", Scope: ScopeClinic}, "c-legal", []string{"d1", "d2", "d3", "d4"}},
		{"clinic unknown falls back to everyone", Event{Clinic: "Space", Scope: ScopeClinic}, "", []string{"d1", "d2", "d3", "d4"}},
		{"known clinic id skips lookup", Event{ClinicID: "c-acct", Clinic: "Marketing", Scope: ScopeAssigned}, "c-acct", []string{"d3"}},
		{"client ignores clinic", Event{Clinic: "Accounting", Scope: ScopeClient}, "c-acct", []string{"d1", "d2", "d3", "d4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clinicID, got := Recipients(dir, tc.ev)
			assert.Equal(t, tc.wantClinic, clinicID)
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestBuild_AlwaysProducesARow(t *testing.T) {
	empty := clinic.NewDirectory(nil, nil, nil)
	dirs := map[string]*clinic.Directory{"program": programDirectory(), "empty": empty, "nil": nil}
	clinics := []string{"", "Marketing", "Legal", "Unknown"}
	scopes := []Scope{ScopeAssigned, ScopeClinic, ScopeClient}

	for name, dir := range dirs {
		for _, c := range clinics {
			for _, scope := range scopes {
				rows := Build(dir, Event{Type: model.NotifyMeetingRequest, Clinic: c, Scope: scope})
				require.NotEmpty(t, rows, "dir=%s clinic=%q scope=%d", name, c, scope)
			}
		}
	}
}

func TestBuild_BroadcastWhenNobodyResolves(t *testing.T) {
	rows := Build(programDirectory(), Event{
		Type:      model.NotifyMeetingRequest,
		Title:     "Ada requested a meeting",
		Clinic:    "Legal",
		StudentID: "s1",
		RelatedID: "m1",
		Scope:     ScopeAssigned,
	})
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].DirectorID)
	assert.Equal(t, "s1", rows[0].StudentID)
	assert.Equal(t, "c-legal", rows[0].ClinicID)
	assert.Equal(t, "m1", rows[0].RelatedID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 200))
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'é'
	}
	got := Truncate(string(long), 200)
	assert.Equal(t, 203, len([]rune(got)))
	assert.Equal(t, "...", got[len(got)-3:])
}
