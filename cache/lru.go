package cache

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRU 最近最少使用淘汰，满时移除最久未访问的条目
type LRU[K comparable, V any] struct {
	lru     *simplelru.LRU[K, V]
	onEvict EvictFunc[K, V]
	purging bool // Clear 期间不触发淘汰回调
}

var _ Store[int, int] = &LRU[int, int]{}

// NewLRU 创建最多容纳 capacity 个条目的LRU存储
func NewLRU[K comparable, V any](capacity int) (*LRU[K, V], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}

	c := &LRU[K, V]{}

	l, err := simplelru.NewLRU[K, V](capacity, c.evicted)
	if err != nil {
		return nil, err
	}

	c.lru = l

	return c, nil
}

// Get 获取值并标记为最近使用
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set 写入值并标记为最近使用，超出容量时淘汰最久未使用的条目
func (c *LRU[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Len 条目数量
func (c *LRU[K, V]) Len() int {
	return c.lru.Len()
}

// Clear 清空所有条目
func (c *LRU[K, V]) Clear() {
	c.purging = true
	c.lru.Purge()
	c.purging = false
}

// OnEvict 设置淘汰回调
func (c *LRU[K, V]) OnEvict(fn EvictFunc[K, V]) {
	c.onEvict = fn
}

// Policy 返回 PolicyLRU
func (c *LRU[K, V]) Policy() Policy {
	return PolicyLRU
}

func (c *LRU[K, V]) evicted(key K, value V) {
	if c.purging || c.onEvict == nil {
		return
	}

	c.onEvict(key, value, EvictCapacity)
}
