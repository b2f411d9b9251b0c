package debrief

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicops/internal/clinic"
	"clinicops/internal/logging"
	"clinicops/internal/model"
	"clinicops/internal/notify"
	"clinicops/internal/store"
	"clinicops/internal/store/memory"
)

var (
	now     = time.Date(2025, 10, 3, 12, 0, 0, 0, time.UTC)
	clock   = func() time.Time { return now }
	student = model.Caller{ID: "s1", Role: model.RoleStudent}
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New(clock)
	st.SeedDirectory(
		[]model.Clinic{{ID: "c-mkt", Name: "Marketing Clinic"}, {ID: "c-acct", Name: "Accounting"}},
		[]model.Director{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}},
		[]model.ClinicDirector{{ClinicID: "c-mkt", DirectorID: "d1"}, {ClinicID: "c-mkt", DirectorID: "d2"}, {ClinicID: "c-acct", DirectorID: "d3"}},
		[]model.Student{{ID: "s1", FullName: "Ada", Clinic: "Marketing", ClientID: "cl1", SemesterID: "fall"}},
	)
	ob := notify.NewOutbox(notify.StoreSink{Store: st}, nil, logging.Discard(), nil, clock)
	n := notify.NewNotifier(clinic.NewLoader(st, nil, 0, logging.Discard()), ob, logging.Discard())
	return NewService(st, n, clock, logging.Discard()), st
}

func weekEnding(d int) time.Time { return time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC) }

func notificationCount(t *testing.T, st *memory.Store) int {
	t.Helper()
	n, err := st.CountNotifications(context.Background(), model.NotificationFilter{})
	require.NoError(t, err)
	return n
}

func TestSubmit_FillsFromEnrollment(t *testing.T) {
	svc, st := newService(t)

	d, err := svc.Submit(context.Background(), student, SubmitInput{StudentID: "someone-else", WeekEnding: weekEnding(21), HoursWorked: 6.5})
	require.NoError(t, err)
	assert.Equal(t, "s1", d.StudentID)
	assert.Equal(t, "Marketing", d.Clinic)
	assert.Equal(t, "fall", d.SemesterID)
	assert.Equal(t, StatusSubmitted, d.Status)
	assert.Nil(t, d.Questions)
	assert.Zero(t, notificationCount(t, st))
}

func TestSubmit_ClinicQuestionReachesClinicDirectors(t *testing.T) {
	svc, st := newService(t)

	_, err := svc.Submit(context.Background(), student, SubmitInput{WeekEnding: weekEnding(21), Questions: "How do we price this?"})
	require.NoError(t, err)

	rows, err := st.ListNotifications(context.Background(), model.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	var got []string
	for _, r := range rows {
		got = append(got, r.DirectorID)
		assert.Equal(t, model.NotifyQuestion, r.Type)
	}
	assert.ElementsMatch(t, []string{"d1", "d2"}, got)
}

func TestSubmit_ClientQuestionReachesEveryDirector(t *testing.T) {
	svc, st := newService(t)

	_, err := svc.Submit(context.Background(), student, SubmitInput{
		WeekEnding: weekEnding(21), Questions: "Client wants a call", QuestionType: model.QuestionTypeClient, ClientName: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, notificationCount(t, st))
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, student, SubmitInput{WeekEnding: weekEnding(21), HoursWorked: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Submit(ctx, student, SubmitInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Submit(ctx, student, SubmitInput{WeekEnding: weekEnding(21), QuestionType: "other"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestList_RecentFirstAndFiltered(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, d := range []int{14, 28, 21} {
		_, err := svc.Submit(ctx, student, SubmitInput{WeekEnding: weekEnding(d)})
		require.NoError(t, err)
	}

	out, err := svc.List(ctx, model.DebriefFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, weekEnding(28), out[0].WeekEnding)
	assert.Equal(t, weekEnding(14), out[2].WeekEnding)

	we := weekEnding(21)
	out, err = svc.List(ctx, model.DebriefFilter{WeekEnding: &we, Clinic: "marketing"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestList_TransientDegrades(t *testing.T) {
	svc, st := newService(t)
	st.InjectFault("ListDebriefs", fmt.Errorf("upstream: %w", store.ErrTransient))

	out, err := svc.List(context.Background(), model.DebriefFilter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
