package cache

import (
	"container/list"
	"fmt"
	"time"
)

type ttlEntry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// TTL 条目超过存活时间后过期，满时按插入顺序淘汰，读取不改变顺序
//
// 过期是惰性的：Get、Set、Contains、Len 先清理过期条目，没有后台清理协程
type TTL[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	order    *list.List // 队头是最早插入的条目
	items    map[K]*list.Element
	onEvict  EvictFunc[K, V]
}

var _ Store[int, int] = &TTL[int, int]{}

// NewTTL 创建TTL存储
func NewTTL[K comparable, V any](capacity int, ttl time.Duration) (*TTL[K, V], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, ttl)
	}

	return &TTL[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}, nil
}

// SetClock 替换时间源，nil 恢复 time.Now
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}

	c.now = now
}

// TimeToLive 配置的存活时间
func (c *TTL[K, V]) TimeToLive() time.Duration {
	return c.ttl
}

// Get 获取未过期的值
func (c *TTL[K, V]) Get(key K) (V, bool) {
	now := c.now()
	c.sweep(now)

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	e := el.Value.(*ttlEntry[K, V])
	if now.Sub(e.storedAt) > c.ttl {
		c.remove(el, EvictExpired)

		var zero V

		return zero, false
	}

	return e.value, true
}

// GetOr 获取未过期的值，不存在时返回 def
func (c *TTL[K, V]) GetOr(key K, def V) V {
	if v, ok := c.Get(key); ok {
		return v
	}

	return def
}

// Set 写入值并记录当前时间
//
// 覆盖已有key时重新排到队尾；新key在存储已满时淘汰最早插入的条目
func (c *TTL[K, V]) Set(key K, value V) {
	now := c.now()
	c.sweep(now)

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	} else if c.order.Len() >= c.capacity {
		c.remove(c.order.Front(), EvictCapacity)
	}

	c.items[key] = c.order.PushBack(&ttlEntry[K, V]{key: key, value: value, storedAt: now})
}

// Contains 是否存在未过期的值
func (c *TTL[K, V]) Contains(key K) bool {
	c.sweep(c.now())

	_, ok := c.items[key]

	return ok
}

// Len 未过期条目数量
func (c *TTL[K, V]) Len() int {
	c.sweep(c.now())

	return c.order.Len()
}

// Clear 清空所有条目
func (c *TTL[K, V]) Clear() {
	c.order.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

// OnEvict 设置淘汰回调
func (c *TTL[K, V]) OnEvict(fn EvictFunc[K, V]) {
	c.onEvict = fn
}

// Policy 返回 PolicyTTL
func (c *TTL[K, V]) Policy() Policy {
	return PolicyTTL
}

// sweep 清理过期条目，插入顺序即时间顺序，遇到第一个未过期条目即停止
func (c *TTL[K, V]) sweep(now time.Time) {
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if now.Sub(el.Value.(*ttlEntry[K, V]).storedAt) <= c.ttl {
			return
		}

		c.remove(el, EvictExpired)
	}
}

func (c *TTL[K, V]) remove(el *list.Element, reason EvictReason) {
	e := c.order.Remove(el).(*ttlEntry[K, V])
	delete(c.items, e.key)

	if c.onEvict != nil {
		c.onEvict(e.key, e.value, reason)
	}
}
