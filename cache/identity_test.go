package cache_test

import (
	"context"
	"testing"

	"github.com/bool64/stats"
	"github.com/honlinren/querycache/cache"
	"github.com/stretchr/testify/assert"
)

func TestIdentitySet(t *testing.T) {
	ctx := context.Background()
	st := &stats.TrackerMock{}
	ids := cache.NewIdentitySet(cache.IdentitySetConfig{Name: "users", Stats: st})

	k1 := cache.MustKey(1)
	k2 := cache.MustKey(2)

	assert.False(t, ids.Contains(k1))

	ids.Add(k1, k2)
	assert.True(t, ids.Contains(k1))
	assert.True(t, ids.ContainsAll([]cache.Key{k1, k2}))
	assert.True(t, ids.ContainsAll(nil))
	assert.Equal(t, 2, ids.Len())

	assert.Equal(t, 1, ids.Discard(ctx, k1))
	assert.False(t, ids.Contains(k1))
	assert.False(t, ids.ContainsAll([]cache.Key{k1, k2}))

	// Discarding an absent key is a no-op.
	assert.Equal(t, 0, ids.Discard(ctx, k1, cache.MustKey(3)))
	assert.Equal(t, 1, ids.Len())

	assert.Equal(t, 1, st.Int(cache.MetricInvalidate))
}
