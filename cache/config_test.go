package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/honlinren/querycache/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("FIND_USER_CAPACITY", "512")

	cfg, err := cache.ParseConfig([]byte(`
queries:
  find_user:
    policy: lru
    capacity: ${FIND_USER_CAPACITY}
    primary_key: params
  count_active:
    policy: ttl
    ttl: 30s
    single_flight: true
  by_email:
    policy: lfu
`))
	require.NoError(t, err)

	q := cfg.Query("find_user", cache.QueryConfig{Arity: 1})
	assert.Equal(t, "find_user", q.Name)
	assert.Equal(t, cache.PolicyLRU, q.Policy)
	assert.Equal(t, 512, q.Capacity)
	assert.Equal(t, 1, q.Arity)
	assert.Equal(t, cache.PrimaryKeyFromParams, q.PrimaryKey)

	q = cfg.Query("count_active", cache.QueryConfig{})
	assert.Equal(t, cache.PolicyTTL, q.Policy)
	assert.Equal(t, 30*time.Second, q.TTL)
	assert.True(t, q.SingleFlight)

	q = cfg.Query("by_email", cache.QueryConfig{Capacity: 64})
	assert.Equal(t, cache.PolicyLFU, q.Policy)
	assert.Equal(t, 64, q.Capacity)

	q = cfg.Query("by_email", cache.QueryConfig{SingleFlight: true})
	assert.True(t, q.SingleFlight, "code default survives a file entry")

	q = cfg.Query("missing", cache.QueryConfig{Policy: cache.PolicyTTL})
	assert.Equal(t, "missing", q.Name)
	assert.Equal(t, cache.PolicyTTL, q.Policy)

	var nilCfg *cache.Config
	assert.Equal(t, "x", nilCfg.Query("x", cache.QueryConfig{}).Name)
}

func TestParseConfig_invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"policy":      "queries:\n  q:\n    policy: mru\n",
		"capacity":    "queries:\n  q:\n    capacity: -1\n",
		"ttl":         "queries:\n  q:\n    policy: ttl\n    ttl: -1s\n",
		"primary key": "queries:\n  q:\n    primary_key: row\n",
		"arity":       "queries:\n  q:\n    arity: 9\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := cache.ParseConfig([]byte(doc))
			assert.True(t, errors.Is(err, cache.ErrInvalidConfig), err)
		})
	}

	_, err := cache.ParseConfig([]byte("queries: ["))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queries:\n  q:\n    capacity: 8\n"), 0o600))

	cfg, err := cache.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Queries["q"].Capacity)

	_, err = cache.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestQueryConfig_WithDefaults(t *testing.T) {
	c := cache.QueryConfig{}.WithDefaults()
	assert.Equal(t, cache.PolicyLRU, c.Policy)
	assert.Equal(t, cache.DefaultCapacity, c.Capacity)
	assert.Equal(t, cache.PrimaryKeyFromEntity, c.PrimaryKey)

	c = cache.QueryConfig{Policy: cache.PolicyTTL}.WithDefaults()
	assert.Equal(t, cache.DefaultTTL, c.TTL)
	require.NoError(t, c.Validate())
}
