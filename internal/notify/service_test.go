package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicops/internal/logging"
	"clinicops/internal/model"
	"clinicops/internal/store"
	"clinicops/internal/store/memory"
)

var staff = model.Caller{ID: "d1", Role: model.RoleDirector}

func seedNotifications(t *testing.T, st *memory.Store) {
	t.Helper()
	ctx := context.Background()
	rows := []model.Notification{
		{ID: "n1", DirectorID: "d1", TargetAudience: model.AudienceDirectors, CreatedAt: fixedNow.Add(-3 * time.Minute)},
		{ID: "n2", DirectorID: "d2", TargetAudience: model.AudienceDirectors, CreatedAt: fixedNow.Add(-2 * time.Minute)},
		{ID: "n3", TargetAudience: model.AudienceDirectors, CreatedAt: fixedNow.Add(-1 * time.Minute)},
		{ID: "n4", StudentID: "s1", TargetAudience: model.AudienceStudents, CreatedAt: fixedNow},
		{ID: "n5", TargetAudience: model.AudienceStudents, CreatedAt: fixedNow.Add(-5 * time.Minute)},
	}
	for _, n := range rows {
		_, err := st.InsertNotification(ctx, n)
		require.NoError(t, err)
	}
}

func ids(rows []model.Notification) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestService_ForDirectorIncludesBroadcasts(t *testing.T) {
	st := memory.New(now)
	seedNotifications(t, st)
	svc := NewService(st, logging.Discard())

	rows, err := svc.ForDirector(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"n3", "n1"}, ids(rows))
}

func TestService_ForStudentSeesOwnAndBroadcast(t *testing.T) {
	st := memory.New(now)
	seedNotifications(t, st)
	svc := NewService(st, logging.Discard())

	rows, err := svc.ForStudent(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"n4", "n5"}, ids(rows))

	rows, err = svc.ForStudent(context.Background(), "s2", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"n5"}, ids(rows))
}

func TestService_MarkReadAndUnreadCount(t *testing.T) {
	st := memory.New(now)
	seedNotifications(t, st)
	svc := NewService(st, logging.Discard())
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.MarkRead(ctx, staff, "n1"))
	count, err = svc.UnreadCount(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := svc.ForDirector(ctx, "d1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"n3"}, ids(rows))

	assert.ErrorIs(t, svc.MarkRead(ctx, staff, "missing"), store.ErrNotFound)
}

func TestService_MarkReadOwnership(t *testing.T) {
	st := memory.New(now)
	seedNotifications(t, st)
	svc := NewService(st, logging.Discard())
	ctx := context.Background()
	s1 := model.Caller{ID: "s1", Role: model.RoleStudent}
	s2 := model.Caller{ID: "s2", Role: model.RoleStudent}

	assert.ErrorIs(t, svc.MarkRead(ctx, s2, "n1"), model.ErrForbidden, "director row")
	assert.ErrorIs(t, svc.MarkRead(ctx, s2, "n4"), model.ErrForbidden, "another student's row")
	assert.ErrorIs(t, svc.MarkRead(ctx, s1, "n5"), model.ErrForbidden, "student broadcast")
	assert.ErrorIs(t, svc.MarkRead(ctx, s1, "missing"), store.ErrNotFound)

	count, err := svc.UnreadCount(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "rejected marks leave rows unread")

	require.NoError(t, svc.MarkRead(ctx, s1, "n4"))
	rows, err := svc.ForStudent(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"n5"}, ids(rows))

	require.NoError(t, svc.MarkRead(ctx, model.Caller{ID: "a1", Role: model.RoleAdmin}, "n5"))
}

func TestService_TransientFailureDegradesToEmpty(t *testing.T) {
	st := memory.New(now)
	seedNotifications(t, st)
	st.InjectFault("ListNotifications", fmt.Errorf("pool exhausted: %w", store.ErrTransient))
	svc := NewService(st, logging.Discard())

	rows, err := svc.ForDirector(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	count, err := svc.UnreadCount(context.Background(), "d1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_PermanentFailureSurfaces(t *testing.T) {
	st := memory.New(now)
	st.InjectFault("ListNotifications", fmt.Errorf("syntax error"))
	svc := NewService(st, logging.Discard())

	_, err := svc.ForStudent(context.Background(), "s1", false)
	assert.Error(t, err)
}
