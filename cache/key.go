package cache

import (
	"fmt"
	"reflect"
	"strings"
)

// MaxKeyArity Key 最多包含的参数个数
const MaxKeyArity = 8

// Key 查询参数的有序元组
//
// 逐个比较参数，包括动态类型：int 的 1 和 uint 的 1 是不同的key。
// 参数原样使用，调用方需保证顺序一致
type Key struct {
	n int
	v [MaxKeyArity]any
}

// NewKey 由查询参数构造 Key
func NewKey(params ...any) (Key, error) {
	var k Key

	if len(params) > MaxKeyArity {
		return k, fmt.Errorf("%w: %d parameters, at most %d supported", ErrKeyArity, len(params), MaxKeyArity)
	}

	for i, p := range params {
		if p != nil && !reflect.ValueOf(p).Comparable() {
			return k, fmt.Errorf("%w: parameter %d of type %T", ErrUnhashableKey, i, p)
		}

		k.v[i] = p
	}

	k.n = len(params)

	return k, nil
}

// MustKey 构造 Key，参数无效时 panic
func MustKey(params ...any) Key {
	k, err := NewKey(params...)
	if err != nil {
		panic(err)
	}

	return k
}

// Len 参数个数
func (k Key) Len() int {
	return k.n
}

// At 第 i 个参数
func (k Key) At(i int) any {
	return k.v[i]
}

// Values 参数副本
func (k Key) Values() []any {
	out := make([]any, k.n)
	copy(out, k.v[:k.n])

	return out
}

// String 用于日志，如 (uint(1), "a")
func (k Key) String() string {
	var sb strings.Builder

	sb.WriteByte('(')

	for i := 0; i < k.n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}

		v := k.v[i]

		switch {
		case v == nil:
			sb.WriteString("nil")
		case isNumber(v):
			fmt.Fprintf(&sb, "%T(%v)", v, v)
		default:
			fmt.Fprintf(&sb, "%#v", v)
		}
	}

	sb.WriteByte(')')

	return sb.String()
}

// typed 每个参数都带上动态类型，不同的key得到不同的字符串
func (k Key) typed() string {
	var sb strings.Builder

	for i := 0; i < k.n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(&sb, "%T:%#v", k.v[i], k.v[i])
	}

	return sb.String()
}

func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// deriveKey 由调用参数构造 Key，arity 固定时检查参数个数
func deriveKey(arity int, params []any) (Key, error) {
	if arity > 0 && len(params) != arity {
		return Key{}, fmt.Errorf("%w: got %d parameters, want %d", ErrKeyArity, len(params), arity)
	}

	return NewKey(params...)
}
