package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(s.Close)

	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		clock:  time.Now,
	}
}

func TestRedisOccupancy(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	occ, err := r.Occupancy(ctx, "t1", "support")
	assert.NoError(t, err)
	assert.Equal(t, 0, occ)

	require.NoError(t, r.Enter(ctx, "t1", "support", "CA1"))
	require.NoError(t, r.Enter(ctx, "t1", "support", "CA2"))

	occ, err = r.Occupancy(ctx, "t1", "support")
	assert.NoError(t, err)
	assert.Equal(t, 2, occ)

	// Re-entering the same call is idempotent, not a double count.
	require.NoError(t, r.Enter(ctx, "t1", "support", "CA1"))
	occ, _ = r.Occupancy(ctx, "t1", "support")
	assert.Equal(t, 2, occ)

	require.NoError(t, r.Leave(ctx, "t1", "support", "CA1"))
	occ, _ = r.Occupancy(ctx, "t1", "support")
	assert.Equal(t, 1, occ)
}

func TestRedisQueuesAreScoped(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Enter(ctx, "t1", "support", "CA1"))

	occ, _ := r.Occupancy(ctx, "t1", "sales")
	assert.Equal(t, 0, occ, "different queue same tenant")
	occ, _ = r.Occupancy(ctx, "t2", "support")
	assert.Equal(t, 0, occ, "same queue different tenant")
}

func TestRedisAverageWait(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	base := time.Now()
	r.SetClock(func() time.Time { return base })
	require.NoError(t, r.Enter(ctx, "t1", "support", "CA1"))

	r.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	require.NoError(t, r.Enter(ctx, "t1", "support", "CA2"))
	// Wait-loop re-entry must not reset CA1's enter time.
	require.NoError(t, r.Enter(ctx, "t1", "support", "CA1"))

	r.SetClock(func() time.Time { return base.Add(4 * time.Minute) })
	wait, err := r.AverageWait(ctx, "t1", "support")
	assert.NoError(t, err)
	// CA1 has waited 4 minutes, CA2 has waited 2: average 3.
	assert.Equal(t, 3*time.Minute, wait)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	m.SetClock(func() time.Time { return base })

	require.NoError(t, m.Enter(ctx, "t1", "support", "CA1"))
	require.NoError(t, m.Enter(ctx, "t1", "support", "CA2"))

	occ, err := m.Occupancy(ctx, "t1", "support")
	assert.NoError(t, err)
	assert.Equal(t, 2, occ)

	m.SetClock(func() time.Time { return base.Add(time.Minute) })
	wait, err := m.AverageWait(ctx, "t1", "support")
	assert.NoError(t, err)
	assert.Equal(t, time.Minute, wait)

	require.NoError(t, m.Leave(ctx, "t1", "support", "CA1"))
	occ, _ = m.Occupancy(ctx, "t1", "support")
	assert.Equal(t, 1, occ)

	wait, _ = m.AverageWait(ctx, "t1", "empty")
	assert.Equal(t, time.Duration(0), wait)
}
