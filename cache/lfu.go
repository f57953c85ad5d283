package cache

import "container/list"

type lfuEntry[K comparable, V any] struct {
	key   K
	value V
	freq  int
}

// LFU 最不经常使用淘汰，满时移除访问次数最少的条目，次数相同时移除最早进入该频次的key
type LFU[K comparable, V any] struct {
	capacity int
	minFreq  int
	items    map[K]*list.Element
	buckets  map[int]*list.List // 频次 -> key列表，最早的在前
	onEvict  EvictFunc[K, V]
}

var _ Store[int, int] = &LFU[int, int]{}

// NewLFU 创建最多容纳 capacity 个条目的LFU存储
func NewLFU[K comparable, V any](capacity int) (*LFU[K, V], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}

	return &LFU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		buckets:  make(map[int]*list.List),
	}, nil
}

// Get 获取值并增加访问频次
func (c *LFU[K, V]) Get(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	el = c.touch(el)

	return el.Value.(*lfuEntry[K, V]).value, true
}

// Set 覆盖已有key并增加频次；新key以频次1插入，满时先淘汰最低频次中最早的key
func (c *LFU[K, V]) Set(key K, value V) {
	if el, ok := c.items[key]; ok {
		el = c.touch(el)
		el.Value.(*lfuEntry[K, V]).value = value

		return
	}

	if len(c.items) >= c.capacity {
		c.evict()
	}

	c.items[key] = c.bucket(1).PushBack(&lfuEntry[K, V]{key: key, value: value, freq: 1})
	c.minFreq = 1
}

// Frequency key的访问频次，不存在时为0
func (c *LFU[K, V]) Frequency(key K) int {
	if el, ok := c.items[key]; ok {
		return el.Value.(*lfuEntry[K, V]).freq
	}

	return 0
}

// Len 条目数量
func (c *LFU[K, V]) Len() int {
	return len(c.items)
}

// Clear 清空所有条目
func (c *LFU[K, V]) Clear() {
	c.items = make(map[K]*list.Element, c.capacity)
	c.buckets = make(map[int]*list.List)
	c.minFreq = 0
}

// OnEvict 设置淘汰回调
func (c *LFU[K, V]) OnEvict(fn EvictFunc[K, V]) {
	c.onEvict = fn
}

// Policy 返回 PolicyLFU
func (c *LFU[K, V]) Policy() Policy {
	return PolicyLFU
}

func (c *LFU[K, V]) bucket(freq int) *list.List {
	b, ok := c.buckets[freq]
	if !ok {
		b = list.New()
		c.buckets[freq] = b
	}

	return b
}

// touch 将条目移到下一个频次桶，返回新的链表元素
func (c *LFU[K, V]) touch(el *list.Element) *list.Element {
	e := el.Value.(*lfuEntry[K, V])
	old := c.buckets[e.freq]
	old.Remove(el)

	if old.Len() == 0 {
		delete(c.buckets, e.freq)

		if c.minFreq == e.freq {
			c.minFreq++
		}
	}

	e.freq++
	el = c.bucket(e.freq).PushBack(e)
	c.items[e.key] = el

	return el
}

func (c *LFU[K, V]) evict() {
	b, ok := c.buckets[c.minFreq]
	if !ok {
		return
	}

	e := b.Remove(b.Front()).(*lfuEntry[K, V])
	if b.Len() == 0 {
		delete(c.buckets, c.minFreq)
	}

	delete(c.items, e.key)

	if c.onEvict != nil {
		c.onEvict(e.key, e.value, EvictCapacity)
	}
}
