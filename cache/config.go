package cache

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// QueryConfig 零值字段的默认值
const (
	DefaultCapacity = 256
	DefaultTTL      = 60 * time.Second
)

// PrimaryKeySource LRU查询的有效性标记来源
type PrimaryKeySource string

const (
	// PrimaryKeyFromEntity 从加载的记录中读取主键
	PrimaryKeyFromEntity PrimaryKeySource = "entity"
	// PrimaryKeyFromParams 查询参数本身就是主键
	PrimaryKeyFromParams PrimaryKeySource = "params"
)

// QueryConfig 缓存查询配置
type QueryConfig struct {
	// Name 用于日志和统计
	Name string `yaml:"name"`

	// Policy 淘汰策略，默认 lru
	Policy Policy `yaml:"policy"`

	// Capacity 最多缓存的参数组合数量，默认 256
	Capacity int `yaml:"capacity"`

	// TTL ttl策略的存活时间，默认 60s
	TTL time.Duration `yaml:"ttl"`

	// Arity 参数个数，0 表示不检查
	Arity int `yaml:"arity"`

	// PrimaryKey lru策略的有效性标记来源，默认 entity
	PrimaryKey PrimaryKeySource `yaml:"primary_key"`

	// SingleFlight 同一个key的并发未命中共享一次加载
	SingleFlight bool `yaml:"single_flight"`
}

// WithDefaults 返回填充默认值后的副本
func (c QueryConfig) WithDefaults() QueryConfig {
	if c.Policy == "" {
		c.Policy = PolicyLRU
	}

	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}

	if c.Policy == PolicyTTL && c.TTL == 0 {
		c.TTL = DefaultTTL
	}

	if c.Policy == PolicyLRU && c.PrimaryKey == "" {
		c.PrimaryKey = PrimaryKeyFromEntity
	}

	return c
}

// Validate 检查配置
func (c QueryConfig) Validate() error {
	if !c.Policy.Valid() {
		return fmt.Errorf("%w: %s: unknown policy %q", ErrInvalidConfig, c.Name, c.Policy)
	}

	if c.Capacity <= 0 {
		return fmt.Errorf("%w: %s: capacity must be positive, got %d", ErrInvalidConfig, c.Name, c.Capacity)
	}

	if c.Policy == PolicyTTL && c.TTL <= 0 {
		return fmt.Errorf("%w: %s: ttl must be positive, got %s", ErrInvalidConfig, c.Name, c.TTL)
	}

	if c.Arity < 0 || c.Arity > MaxKeyArity {
		return fmt.Errorf("%w: %s: arity must be in [0, %d], got %d", ErrInvalidConfig, c.Name, MaxKeyArity, c.Arity)
	}

	if c.Policy == PolicyLRU {
		switch c.PrimaryKey {
		case PrimaryKeyFromEntity, PrimaryKeyFromParams:
		default:
			return fmt.Errorf("%w: %s: unknown primary key source %q", ErrInvalidConfig, c.Name, c.PrimaryKey)
		}
	}

	return nil
}

// Config 按名称组织的查询配置，通常从YAML加载：
//
//	queries:
//	  find_user:
//	    policy: lru
//	    capacity: 512
//	    primary_key: params
//	  count_active:
//	    policy: ttl
//	    ttl: 30s
type Config struct {
	Queries map[string]QueryConfig `yaml:"queries"`
}

// LoadConfig 从文件读取YAML配置，展开 ${VAR} 环境变量
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig 解析YAML配置，展开 ${VAR} 环境变量
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for name, q := range cfg.Queries {
		if q.Name == "" {
			q.Name = name
		}

		if err := q.WithDefaults().Validate(); err != nil {
			return nil, err
		}

		cfg.Queries[name] = q
	}

	return cfg, nil
}

// Query 获取指定查询的配置，不存在时使用 def
// 文件中未设置的字段取自 def
func (c *Config) Query(name string, def QueryConfig) QueryConfig {
	if def.Name == "" {
		def.Name = name
	}

	if c == nil {
		return def
	}

	q, ok := c.Queries[name]
	if !ok {
		return def
	}

	if q.Policy == "" {
		q.Policy = def.Policy
	}

	if q.Capacity == 0 {
		q.Capacity = def.Capacity
	}

	if q.TTL == 0 {
		q.TTL = def.TTL
	}

	if q.Arity == 0 {
		q.Arity = def.Arity
	}

	if q.PrimaryKey == "" {
		q.PrimaryKey = def.PrimaryKey
	}

	// 文件只能开启 single_flight，不能关闭代码中的默认值
	q.SingleFlight = q.SingleFlight || def.SingleFlight

	return q
}
