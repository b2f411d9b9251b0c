package meeting

import (
	"context"
	"fmt"
	"strings"
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

var director = model.Caller{ID: "d1", Role: model.RoleDirector}

// stepClock advances a minute on every call so creation times are distinct.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newService(t *testing.T, scope QueueScope) (*Service, *memory.Store) {
	t.Helper()
	clk := &stepClock{t: time.Date(2025, 10, 20, 18, 0, 0, 0, time.UTC)}
	st := memory.New(clk.Now)
	st.SeedDirectory(
		[]model.Clinic{{ID: "c-mkt", Name: "Marketing Clinic"}, {ID: "c-acct", Name: "Accounting Clinic"}},
		[]model.Director{{ID: "d1"}, {ID: "d2"}},
		[]model.ClinicDirector{{ClinicID: "c-mkt", DirectorID: "d1"}, {ClinicID: "c-acct", DirectorID: "d2"}},
		[]model.Student{
			{ID: "s1", FullName: "Ada", Clinic: "Marketing"},
			{ID: "s2", FullName: "Ben", Clinic: "Accounting"},
			{ID: "s3", FullName: "Cy", Clinic: "Marketing"},
		},
	)
	ob := notify.NewOutbox(notify.StoreSink{Store: st}, nil, logging.Discard(), nil, clk.Now)
	n := notify.NewNotifier(clinic.NewLoader(st, nil, 0, logging.Discard()), ob, logging.Discard())
	return NewService(st, n, nil, scope, clk.Now, logging.Discard()), st
}

func enqueue(t *testing.T, svc *Service, studentID, subject string) model.MeetingRequest {
	t.Helper()
	m, err := svc.Enqueue(context.Background(), model.Caller{ID: studentID, Role: model.RoleStudent}, EnqueueInput{Subject: subject})
	require.NoError(t, err)
	return m
}

func studentRows(t *testing.T, st *memory.Store, studentID string) []model.Notification {
	t.Helper()
	rows, err := st.ListNotifications(context.Background(), model.NotificationFilter{StudentID: studentID, Audience: model.AudienceStudents})
	require.NoError(t, err)
	return rows
}

func TestEnqueue_PendingAndNotifiesClinicDirectors(t *testing.T) {
	svc, st := newService(t, ScopeGlobal)

	m := enqueue(t, svc, "s1", "Campaign review")
	assert.Equal(t, model.MeetingPending, m.Status)
	assert.Equal(t, m.CreatedAt, m.UpdatedAt)
	assert.Equal(t, "Ada", m.StudentName)
	assert.Equal(t, "Marketing", m.Clinic)

	rows, err := st.ListNotifications(context.Background(), model.NotificationFilter{Audience: model.AudienceDirectors})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d1", rows[0].DirectorID)
	assert.Equal(t, m.ID, rows[0].RelatedID)
}

func TestEnqueue_UnknownClinicBroadcasts(t *testing.T) {
	svc, st := newService(t, ScopeGlobal)

	_, err := svc.Enqueue(context.Background(), director, EnqueueInput{StudentID: "s9", Clinic: "Aerospace", Subject: "Hi"})
	require.NoError(t, err)

	rows, err := st.ListNotifications(context.Background(), model.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].DirectorID)
}

func TestEnqueue_RequiresSubject(t *testing.T) {
	svc, _ := newService(t, ScopeGlobal)

	_, err := svc.Enqueue(context.Background(), model.Caller{ID: "s1", Role: model.RoleStudent}, EnqueueInput{Subject: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestList_QueueIsFIFOAndDefaultIsRecentFirst(t *testing.T) {
	svc, _ := newService(t, ScopeGlobal)
	a := enqueue(t, svc, "s1", "a")
	b := enqueue(t, svc, "s2", "b")
	c := enqueue(t, svc, "s3", "c")

	queue, err := svc.List(context.Background(), model.MeetingFilter{}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, meetingIDs(queue))
	for i := 1; i < len(queue); i++ {
		assert.True(t, queue[i-1].CreatedAt.Before(queue[i].CreatedAt))
	}

	recent, err := svc.List(context.Background(), model.MeetingFilter{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, meetingIDs(recent))

	filtered, err := svc.List(context.Background(), model.MeetingFilter{Clinic: "market"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, meetingIDs(filtered))
}

func TestAdvance_NotifiesOldestPendingRequest(t *testing.T) {
	svc, st := newService(t, ScopeGlobal)
	r2 := enqueue(t, svc, "s2", "earlier")
	r1 := enqueue(t, svc, "s1", "later")

	started, err := svc.Advance(context.Background(), director, r1.ID, AdvanceInput{Status: model.MeetingInProgress})
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, *started.StartedAt, started.UpdatedAt)

	next := studentRows(t, st, "s2")
	require.Len(t, next, 1)
	assert.Equal(t, "You're next", next[0].Title)
	assert.Equal(t, r2.ID, next[0].RelatedID)
	assert.Empty(t, studentRows(t, st, "s1"))
}

func TestAdvance_ClinicScopedQueue(t *testing.T) {
	svc, st := newService(t, ScopeClinic)
	enqueue(t, svc, "s2", "accounting first")
	r3 := enqueue(t, svc, "s3", "marketing waiting")
	r1 := enqueue(t, svc, "s1", "marketing current")

	_, err := svc.Advance(context.Background(), director, r1.ID, AdvanceInput{Status: model.MeetingInProgress})
	require.NoError(t, err)

	assert.Empty(t, studentRows(t, st, "s2"))
	rows := studentRows(t, st, "s3")
	require.Len(t, rows, 1)
	assert.Equal(t, r3.ID, rows[0].RelatedID)
}

func TestAdvance_CompletedIsTerminal(t *testing.T) {
	svc, _ := newService(t, ScopeGlobal)
	m := enqueue(t, svc, "s1", "x")
	ctx := context.Background()

	_, err := svc.Advance(ctx, director, m.ID, AdvanceInput{Status: model.MeetingInProgress})
	require.NoError(t, err)
	done, err := svc.Advance(ctx, director, m.ID, AdvanceInput{Status: model.MeetingCompleted})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	for _, to := range []model.MeetingStatus{model.MeetingPending, model.MeetingInProgress, model.MeetingCompleted} {
		_, err := svc.Advance(ctx, director, m.ID, AdvanceInput{Status: to})
		assert.ErrorIs(t, err, ErrInvalidTransition, "to %s", to)
	}
}

func TestAdvance_NoBackwardMoves(t *testing.T) {
	svc, _ := newService(t, ScopeGlobal)
	m := enqueue(t, svc, "s1", "x")

	_, err := svc.Advance(context.Background(), director, m.ID, AdvanceInput{Status: model.MeetingInProgress})
	require.NoError(t, err)
	_, err = svc.Advance(context.Background(), director, m.ID, AdvanceInput{Status: model.MeetingPending})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvance_DebriefNotesTruncated(t *testing.T) {
	svc, st := newService(t, ScopeGlobal)
	m := enqueue(t, svc, "s1", "Campaign review")
	notes := strings.Repeat("n", 250)

	done, err := svc.Advance(context.Background(), director, m.ID, AdvanceInput{Status: model.MeetingCompleted, DebriefNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, done.DebriefNotes)

	rows := studentRows(t, st, "s1")
	require.Len(t, rows, 1)
	assert.Equal(t, model.NotifyDebrief, rows[0].Type)
	assert.Equal(t, strings.Repeat("n", 200)+"...", rows[0].Message)
}

func TestAdvance_NotFoundAndForbidden(t *testing.T) {
	svc, _ := newService(t, ScopeGlobal)

	_, err := svc.Advance(context.Background(), director, "missing", AdvanceInput{Status: model.MeetingCompleted})
	assert.ErrorIs(t, err, store.ErrNotFound)

	m := enqueue(t, svc, "s1", "x")
	_, err = svc.Advance(context.Background(), model.Caller{ID: "s1", Role: model.RoleStudent}, m.ID, AdvanceInput{Status: model.MeetingCompleted})
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = svc.Advance(context.Background(), director, m.ID, AdvanceInput{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdvance_NotificationFailureDoesNotFailTransition(t *testing.T) {
	svc, st := newService(t, ScopeGlobal)
	enqueue(t, svc, "s2", "waiting")
	m := enqueue(t, svc, "s1", "x")
	st.InjectFault("InsertNotification", fmt.Errorf("write refused"))

	updated, err := svc.Advance(context.Background(), director, m.ID, AdvanceInput{Status: model.MeetingInProgress})
	require.NoError(t, err)
	assert.Equal(t, model.MeetingInProgress, updated.Status)
}

func TestList_TransientDegrades(t *testing.T) {
	svc, st := newService(t, ScopeGlobal)
	enqueue(t, svc, "s1", "x")
	st.InjectFault("ListMeetings", fmt.Errorf("rate limited: %w", store.ErrTransient))

	out, err := svc.List(context.Background(), model.MeetingFilter{}, true)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(model.MeetingPending, model.MeetingInProgress))
	assert.True(t, CanTransition(model.MeetingPending, model.MeetingCompleted))
	assert.True(t, CanTransition(model.MeetingInProgress, model.MeetingCompleted))
	assert.False(t, CanTransition(model.MeetingInProgress, model.MeetingInProgress))
	assert.False(t, CanTransition(model.MeetingCompleted, model.MeetingPending))
}

func meetingIDs(ms []model.MeetingRequest) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
