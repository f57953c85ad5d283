package cache

import "fmt"

// SentinelError 常量错误
type SentinelError string

const (
	// ErrUnhashableKey 参数不能作为缓存key
	ErrUnhashableKey = SentinelError("unhashable cache key parameter")

	// ErrKeyArity 参数个数不符
	ErrKeyArity = SentinelError("cache key arity mismatch")

	// ErrInvalidConfig 缓存配置无效
	ErrInvalidConfig = SentinelError("invalid cache config")
)

// Error 实现 error 接口
func (e SentinelError) Error() string {
	return string(e)
}

// DatabaseError 数据访问层的错误，无论是否经过缓存都返回该类型
type DatabaseError struct {
	// Op 失败的操作，如 "find_by_id"
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %s: %v", e.Op, e.Err)
}

// Unwrap 返回驱动错误
func (e *DatabaseError) Unwrap() error {
	return e.Err
}
