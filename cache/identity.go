package cache

import (
	"context"
	"sync"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// IdentitySet LRU缓存中被认为是最新的实体主键集合
//
// 一个仓库的所有LRU查询共享同一个集合：读取时加入主键，写入时移除主键；
// 主键不在集合中的缓存值即使仍驻留在存储中，下次读取也会重新加载。集合不会被整体清空。
//
// key 被移除后再次加入时分配新的代数，因此移除前缓存的值在其他查询重新加入该key后仍然无效
type IdentitySet struct {
	name string
	log  ctxd.Logger
	stat stats.Tracker

	mu   sync.RWMutex
	seq  uint64
	keys map[Key]uint64 // 主键 -> 代数
}

// IdentitySetConfig 标识集合配置
type IdentitySetConfig struct {
	// Name 用于日志和统计，通常是表名
	Name string

	// Logger 上下文日志，可以为nil
	Logger ctxd.Logger

	// Stats 指标收集器，可以为nil
	Stats stats.Tracker
}

// NewIdentitySet 创建空集合，配置可选
func NewIdentitySet(cfg ...IdentitySetConfig) *IdentitySet {
	config := IdentitySetConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.Logger == nil {
		config.Logger = ctxd.NoOpLogger{}
	}

	return &IdentitySet{
		name: config.Name,
		log:  config.Logger,
		stat: config.Stats,
		keys: make(map[Key]uint64),
	}
}

// Add 将主键标记为有效
func (s *IdentitySet) Add(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if _, ok := s.keys[k]; !ok {
			s.seq++
			s.keys[k] = s.seq
		}
	}
}

// track 加入主键并返回各自的代数
func (s *IdentitySet) track(keys []Key) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	gens := make([]uint64, len(keys))

	for i, k := range keys {
		g, ok := s.keys[k]
		if !ok {
			s.seq++
			g = s.seq
			s.keys[k] = g
		}

		gens[i] = g
	}

	return gens
}

// trusted 所有主键都存在且代数与 track 时一致
func (s *IdentitySet) trusted(keys []Key, gens []uint64) bool {
	if len(keys) != len(gens) {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, k := range keys {
		if g, ok := s.keys[k]; !ok || g != gens[i] {
			return false
		}
	}

	return true
}

// Contains 主键是否有效
func (s *IdentitySet) Contains(pk Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.keys[pk]

	return ok
}

// ContainsAll 所有主键是否都有效
func (s *IdentitySet) ContainsAll(keys []Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range keys {
		if _, ok := s.keys[k]; !ok {
			return false
		}
	}

	return true
}

// Discard 移除主键，不存在的忽略，返回移除的数量
//
// 写操作的失效只做这一件事，不修改任何存储
func (s *IdentitySet) Discard(ctx context.Context, keys ...Key) int {
	s.mu.Lock()

	n := 0

	for _, k := range keys {
		if _, ok := s.keys[k]; ok {
			delete(s.keys, k)
			n++
		}
	}

	s.mu.Unlock()

	if n > 0 {
		s.log.Debug(ctx, "identity invalidated", "name", s.name, "keys", keys)

		if s.stat != nil {
			s.stat.Add(ctx, MetricInvalidate, float64(n), "name", s.name)
		}
	}

	return n
}

// Len 有效主键数量
func (s *IdentitySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.keys)
}
