package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestKey(t *testing.T) {
	assert.Equal(t, "progress", Key("progress", nil))
	assert.Equal(t, "progress?a=1&b=2", Key("progress", map[string]string{"b": "2", "a": "1", "c": ""}))
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	c := NewMemory(10, clk.now)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"rate": 80}, time.Minute))

	var got map[string]int
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 80, got["rate"])

	clk.t = clk.t.Add(61 * time.Second)
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, nil)
	in := []string{"a", "b"}
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))
	in[0] = "changed"

	var out []string
	_, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestMemory_EvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Now()}
	c := NewMemory(2, clk.now)

	require.NoError(t, c.Set(ctx, "old", 1, time.Hour))
	require.NoError(t, c.Set(ctx, "used", 2, time.Hour))
	var v int
	ok, _ := c.Get(ctx, "old", &v)
	require.True(t, ok)
	require.NoError(t, c.Set(ctx, "new", 3, time.Hour))

	ok, _ = c.Get(ctx, "used", &v)
	assert.False(t, ok, "least recently used entry is evicted")
	ok, _ = c.Get(ctx, "old", &v)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_ExpiredEntriesMakeRoomFirst(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	c := NewMemory(2, clk.now)

	require.NoError(t, c.Set(ctx, "live", 1, time.Hour))
	require.NoError(t, c.Set(ctx, "stale", 2, time.Second))
	clk.t = clk.t.Add(time.Minute)
	require.NoError(t, c.Set(ctx, "new", 3, time.Hour))

	var v int
	ok, _ := c.Get(ctx, "live", &v)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_ConcurrentRefreshOfExpiredKey(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	c := NewMemory(10, clk.now)
	require.NoError(t, c.Set(ctx, "k", 1, -time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			var v int
			_, _ = c.Get(ctx, "k", &v)
		}()
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "k", 2, time.Hour)
		}()
	}
	wg.Wait()

	var v int
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, ok, "a fresh value is never dropped by a reader of the stale one")
	assert.Equal(t, 2, v)
}

func TestMemory_ClearPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, nil)
	require.NoError(t, c.Set(ctx, "progress:student?id=1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "progress:clinic?c=m", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "schedule?s=f", 3, time.Minute))

	require.NoError(t, c.Clear(ctx, "progress:"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx, ""))
	assert.Equal(t, 0, c.Len())
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Set(context.Background(), "k", 1, time.Minute))
	ok, err := c.Get(context.Background(), "k", new(int))
	assert.NoError(t, err)
	assert.False(t, ok)
}
