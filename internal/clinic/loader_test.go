package clinic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicops/internal/cache"
	"clinicops/internal/logging"
	"clinicops/internal/model"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) ListClinics(context.Context) ([]model.Clinic, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []model.Clinic{{ID: "c1", Name: "Marketing Clinic"}}, nil
}

func (s *countingSource) ListDirectors(context.Context) ([]model.Director, error) {
	return []model.Director{{ID: "d1", FullName: "Dana"}}, nil
}

func (s *countingSource) ListClinicDirectors(context.Context) ([]model.ClinicDirector, error) {
	return []model.ClinicDirector{{ClinicID: "c1", DirectorID: "d1"}}, nil
}

func TestLoader_CachesSnapshot(t *testing.T) {
	clock := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
	src := &countingSource{}
	l := NewLoader(src, cache.NewMemory(16, func() time.Time { return clock }), time.Minute, logging.Discard())
	ctx := context.Background()

	dir, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, dir.DirectorsOf("c1"))

	dir, err = l.Load(ctx)
	require.NoError(t, err)
	c, ok := dir.Lookup("marketing")
	require.True(t, ok)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 1, src.calls)

	l.Invalidate(ctx)
	_, err = l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestLoader_WithoutCacheReadsEveryTime(t *testing.T) {
	src := &countingSource{}
	l := NewLoader(src, nil, time.Minute, logging.Discard())

	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.calls)
}

func TestLoader_SourceError(t *testing.T) {
	l := NewLoader(&countingSource{err: errors.New("boom")}, nil, time.Minute, logging.Discard())

	_, err := l.Load(context.Background())
	assert.ErrorContains(t, err, "list clinics")
}
