package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"golang.org/x/sync/singleflight"
)

// 上报给 stats.Tracker 的指标名，带 "name" 标签
const (
	MetricHit        = "cache_hit"
	MetricMiss       = "cache_miss"
	MetricStale      = "cache_stale"
	MetricFetch      = "cache_fetch"
	MetricFailed     = "cache_failed"
	MetricWrite      = "cache_write"
	MetricEvict      = "cache_evict"
	MetricExpired    = "cache_expired"
	MetricInvalidate = "cache_invalidate"
)

// Fetcher 根据查询参数从数据访问层加载值
// 未找到时 bool 返回false，这种结果不会被缓存
type Fetcher[V any] func(ctx context.Context, params ...any) (V, bool, error)

// Entity 有主键的记录
type Entity interface {
	PrimaryKey() Key
}

// Option 查询选项
type Option func(*options)

type options struct {
	ids   *IdentitySet
	log   ctxd.Logger
	stat  stats.Tracker
	clock func() time.Time
}

// WithIdentitySet 绑定仓库的标识集合，LRU策略必需
func WithIdentitySet(ids *IdentitySet) Option {
	return func(o *options) { o.ids = ids }
}

// WithLogger 设置上下文日志
func WithLogger(l ctxd.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStats 设置指标收集器
func WithStats(s stats.Tracker) Option {
	return func(o *options) { o.stat = s }
}

// WithClock 设置TTL策略的时间源
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// entry 缓存值及其实体标识的代数
type entry[V any] struct {
	value V
	gens  []uint64
}

// Query 位于 Fetcher 之前的读穿透缓存
//
// LRU命中时只有所有主键都在标识集合中才返回，否则重新加载；TTL和LFU命中直接返回。
// 未找到的结果和错误不会被缓存。
//
// 同一个key的并发未命中各自加载，最后写入的生效，除非开启 QueryConfig.SingleFlight
type Query[V any] struct {
	cfg      QueryConfig
	fetch    Fetcher[V]
	identify func(key Key, v V) []Key // 仅LRU非nil

	mu    sync.Mutex
	store Store[Key, entry[V]]
	ids   *IdentitySet

	group *singleflight.Group
	log   ctxd.Logger
	stat  stats.Tracker
}

// NewQuery 创建缓存查询，entityKeys 从值中读取主键
//
// entityKeys 仅用于 LRU 策略的 PrimaryKeyFromEntity，其他情况可以为nil
func NewQuery[V any](cfg QueryConfig, fetch Fetcher[V], entityKeys func(V) []Key, opts ...Option) (*Query[V], error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if fetch == nil {
		return nil, fmt.Errorf("%w: %s: nil fetcher", ErrInvalidConfig, cfg.Name)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.log == nil {
		o.log = ctxd.NoOpLogger{}
	}

	q := &Query[V]{
		cfg:   cfg,
		fetch: fetch,
		log:   o.log,
		stat:  o.stat,
	}

	if cfg.SingleFlight {
		q.group = &singleflight.Group{}
	}

	switch cfg.Policy {
	case PolicyLRU:
		if o.ids == nil {
			return nil, fmt.Errorf("%w: %s: lru policy requires an identity set", ErrInvalidConfig, cfg.Name)
		}

		q.ids = o.ids

		if cfg.PrimaryKey == PrimaryKeyFromParams {
			q.identify = func(key Key, _ V) []Key { return []Key{key} }
		} else {
			if entityKeys == nil {
				return nil, fmt.Errorf("%w: %s: value has no primary key, use primary_key: params", ErrInvalidConfig, cfg.Name)
			}

			q.identify = func(_ Key, v V) []Key { return entityKeys(v) }
		}

		s, err := NewLRU[Key, entry[V]](cfg.Capacity)
		if err != nil {
			return nil, err
		}

		q.store = s
	case PolicyTTL:
		s, err := NewTTL[Key, entry[V]](cfg.Capacity, cfg.TTL)
		if err != nil {
			return nil, err
		}

		s.SetClock(o.clock)
		q.store = s
	case PolicyLFU:
		s, err := NewLFU[Key, entry[V]](cfg.Capacity)
		if err != nil {
			return nil, err
		}

		q.store = s
	}

	q.store.OnEvict(q.evicted)

	return q, nil
}

// NewRecordQuery 创建返回单个实体的缓存查询
func NewRecordQuery[E Entity](cfg QueryConfig, fetch Fetcher[E], opts ...Option) (*Query[E], error) {
	return NewQuery(cfg, fetch, func(e E) []Key { return []Key{e.PrimaryKey()} }, opts...)
}

// NewListQuery 创建返回实体列表的缓存查询
// LRU命中时列表中所有实体都有效才返回
func NewListQuery[E Entity](cfg QueryConfig, fetch Fetcher[[]E], opts ...Option) (*Query[[]E], error) {
	return NewQuery(cfg, fetch, func(list []E) []Key {
		keys := make([]Key, len(list))
		for i, e := range list {
			keys[i] = e.PrimaryKey()
		}

		return keys
	}, opts...)
}

// Name 查询名称
func (q *Query[V]) Name() string {
	return q.cfg.Name
}

// Policy 淘汰策略
func (q *Query[V]) Policy() Policy {
	return q.cfg.Policy
}

// Len 驻留条目数量，包括已被写操作失效的条目
func (q *Query[V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.store.Len()
}

// Purge 清除该查询的所有缓存，标识集合保留
func (q *Query[V]) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.store.Clear()
}

// Get 根据查询参数获取值，缓存有效时从缓存，否则从 Fetcher 加载
// 未找到时 bool 返回false
func (q *Query[V]) Get(ctx context.Context, params ...any) (V, bool, error) {
	var zero V

	key, err := deriveKey(q.cfg.Arity, params)
	if err != nil {
		return zero, false, fmt.Errorf("%s: %w", q.cfg.Name, err)
	}

	if v, ok := q.lookup(ctx, key); ok {
		return v, true, nil
	}

	if q.group == nil {
		return q.load(ctx, key, params)
	}

	type result struct {
		v     V
		found bool
	}

	// 共享加载不随发起者取消，每个调用方只等待自己的 ctx
	ch := q.group.DoChan(key.typed(), func() (interface{}, error) {
		v, found, err := q.load(context.WithoutCancel(ctx), key, params)

		return result{v: v, found: found}, err
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}

		r := res.Val.(result)

		return r.v, r.found, nil
	}
}

// lookup 在同一临界区内读取存储并检查标识集合
func (q *Query[V]) lookup(ctx context.Context, key Key) (V, bool) {
	q.mu.Lock()
	e, ok := q.store.Get(key)
	trusted := ok && (q.identify == nil || q.ids.trusted(q.identify(key, e.value), e.gens))
	q.mu.Unlock()

	switch {
	case trusted:
		q.count(ctx, MetricHit, 1)
		q.log.Debug(ctx, "cache hit", "name", q.cfg.Name, "key", key.String())
	case ok:
		q.count(ctx, MetricStale, 1)
		q.log.Debug(ctx, "cache hit with invalidated identity", "name", q.cfg.Name, "key", key.String())
	default:
		q.count(ctx, MetricMiss, 1)
		q.log.Debug(ctx, "cache miss", "name", q.cfg.Name, "key", key.String())
	}

	if !trusted {
		var zero V
		return zero, false
	}

	return e.value, true
}

// load 加载值并写入缓存，加载失败、未找到或 ctx 结束时不写入
func (q *Query[V]) load(ctx context.Context, key Key, params []any) (V, bool, error) {
	var zero V

	q.count(ctx, MetricFetch, 1)

	v, found, err := q.fetch(ctx, params...)
	if err != nil {
		q.count(ctx, MetricFailed, 1)
		q.log.Warn(ctx, "cache fetch failed", "name", q.cfg.Name, "key", key.String(), "error", err)

		var dbErr *DatabaseError
		if !errors.As(err, &dbErr) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = &DatabaseError{Op: q.cfg.Name, Err: err}
		}

		return zero, false, err
	}

	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	if !found {
		return zero, false, nil
	}

	e := entry[V]{value: v}

	q.mu.Lock()
	if q.identify != nil {
		e.gens = q.ids.track(q.identify(key, v))
	}

	q.store.Set(key, e)
	q.mu.Unlock()

	q.count(ctx, MetricWrite, 1)

	return v, true, nil
}

func (q *Query[V]) evicted(key Key, _ entry[V], reason EvictReason) {
	ctx := context.Background()

	if reason == EvictExpired {
		q.count(ctx, MetricExpired, 1)
	} else {
		q.count(ctx, MetricEvict, 1)
	}

	q.log.Debug(ctx, "cache entry evicted", "name", q.cfg.Name, "key", key.String(), "reason", reason.String())
}

func (q *Query[V]) count(ctx context.Context, metric string, n float64) {
	if q.stat != nil {
		q.stat.Add(ctx, metric, n, "name", q.cfg.Name)
	}
}
