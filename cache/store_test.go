package cache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/honlinren/querycache/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evicted struct {
	key    string
	reason cache.EvictReason
}

func TestLRU(t *testing.T) {
	c, err := cache.NewLRU[string, int](2)
	require.NoError(t, err)
	assert.Equal(t, cache.PolicyLRU, c.Policy())

	var ev []evicted
	c.OnEvict(func(key string, _ int, reason cache.EvictReason) {
		ev = append(ev, evicted{key, reason})
	})

	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b is least recently used")

	v, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	assert.Equal(t, []evicted{{"b", cache.EvictCapacity}}, ev)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Len(t, ev, 1, "clear is not an eviction")

	c.Set("d", 4)
	c.Set("e", 5)
	c.Set("f", 6)
	assert.Equal(t, []evicted{{"b", cache.EvictCapacity}, {"d", cache.EvictCapacity}}, ev)
}

func TestLRU_overwrite(t *testing.T) {
	c, err := cache.NewLRU[string, int](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // a becomes most recently used
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)

	v, _ := c.Get("a")
	assert.Equal(t, 10, v)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTTL_expiry(t *testing.T) {
	clock := newFakeClock()

	c, err := cache.NewTTL[string, string](128, 60*time.Second)
	require.NoError(t, err)
	c.SetClock(clock.Now)

	var ev []evicted
	c.OnEvict(func(key string, _ string, reason cache.EvictReason) {
		ev = append(ev, evicted{key, reason})
	})

	c.Set("k", "v")

	clock.Advance(30 * time.Second)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(31 * time.Second)
	assert.Equal(t, "default", c.GetOr("k", "default"))
	assert.False(t, c.Contains("k"))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, []evicted{{"k", cache.EvictExpired}}, ev)

	c.Set("k", "v2")
	v, ok = c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestTTL_ageEqualToTTLIsFresh(t *testing.T) {
	clock := newFakeClock()

	c, err := cache.NewTTL[string, int](1, time.Minute)
	require.NoError(t, err)
	c.SetClock(clock.Now)

	c.Set("k", 1)
	clock.Advance(time.Minute)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestTTL_capacityEvictsOldestInsertion(t *testing.T) {
	c, err := cache.NewTTL[string, int](2, time.Hour)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a") // does not postpone eviction of a
	assert.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("a")
	assert.False(t, ok, "a is the oldest insertion")

	_, ok = c.Get("b")
	assert.True(t, ok)

	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTL_overwriteRefreshes(t *testing.T) {
	clock := newFakeClock()

	c, err := cache.NewTTL[string, int](2, time.Minute)
	require.NoError(t, err)
	c.SetClock(clock.Now)

	c.Set("a", 1)
	clock.Advance(20 * time.Second)
	c.Set("b", 2)
	clock.Advance(30 * time.Second)
	c.Set("a", 10) // fresh timestamp, counted once
	assert.Equal(t, 2, c.Len())

	clock.Advance(35 * time.Second)

	_, ok := c.Get("b")
	assert.False(t, ok, "b expired")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestLFU_tieBreak(t *testing.T) {
	c, err := cache.NewLFU[string, int](2)
	require.NoError(t, err)
	assert.Equal(t, cache.PolicyLFU, c.Policy())

	var ev []evicted
	c.OnEvict(func(key string, _ int, reason cache.EvictReason) {
		ev = append(ev, evicted{key, reason})
	})

	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Frequency("a"))

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []evicted{{"b", cache.EvictCapacity}}, ev)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 3, c.Frequency("a"))

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, c.Frequency("c"))
}

func TestLFU_oldestInBucketEvicted(t *testing.T) {
	c, err := cache.NewLFU[string, int](3)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// All reach frequency 2, b first.
	c.Get("b")
	c.Get("a")
	c.Get("c")

	c.Set("d", 4) // evicts b: min frequency is 2 and b entered that bucket first

	assert.Equal(t, 0, c.Frequency("b"))
	assert.Equal(t, 2, c.Frequency("a"))
	assert.Equal(t, 2, c.Frequency("c"))
	assert.Equal(t, 1, c.Frequency("d"))

	c.Set("e", 5) // evicts d, the only key at frequency 1

	assert.Equal(t, 0, c.Frequency("d"))
	assert.Equal(t, 3, c.Len())
}

func TestLFU_overwriteBumpsFrequency(t *testing.T) {
	c, err := cache.NewLFU[string, int](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)

	v, _ := c.Get("a")
	assert.Equal(t, 10, v)

	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Set("x", 1)
	assert.Equal(t, 1, c.Frequency("x"))
}

func TestNewStore_invalid(t *testing.T) {
	_, err := cache.NewLRU[string, int](0)
	assert.True(t, errors.Is(err, cache.ErrInvalidConfig))

	_, err = cache.NewLFU[string, int](-1)
	assert.True(t, errors.Is(err, cache.ErrInvalidConfig))

	_, err = cache.NewTTL[string, int](1, 0)
	assert.True(t, errors.Is(err, cache.ErrInvalidConfig))
}
