package cache

import "fmt"

// Policy 淘汰策略名称
type Policy string

// 支持的淘汰策略
const (
	PolicyLRU Policy = "lru"
	PolicyTTL Policy = "ttl"
	PolicyLFU Policy = "lfu"
)

// Valid 是否为已知策略
func (p Policy) Valid() bool {
	switch p {
	case PolicyLRU, PolicyTTL, PolicyLFU:
		return true
	default:
		return false
	}
}

// EvictReason 条目被移出存储的原因
type EvictReason int

const (
	// EvictCapacity 容量已满，为新条目腾出空间
	EvictCapacity EvictReason = iota
	// EvictExpired 条目已过期
	EvictExpired
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	default:
		return fmt.Sprintf("EvictReason(%d)", int(r))
	}
}

// EvictFunc 存储按自身淘汰规则移除条目时调用
type EvictFunc[K comparable, V any] func(key K, value V, reason EvictReason)

// Store 有容量上限和淘汰规则的键值存储
//
// 非并发安全，由调用方加锁
type Store[K comparable, V any] interface {
	// Get 获取值，按策略更新访问状态
	Get(key K) (V, bool)
	// Set 写入或覆盖，满时按策略淘汰
	Set(key K, value V)
	// Len 驻留条目数量
	Len() int
	// Clear 清空所有条目，不触发淘汰回调
	Clear()
	// OnEvict 注册淘汰回调，nil 表示关闭
	OnEvict(fn EvictFunc[K, V])
	// Policy 存储的淘汰策略
	Policy() Policy
}

func checkCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, capacity)
	}

	return nil
}
