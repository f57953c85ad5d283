package cache

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepository 基于GORM的仓库实现，创建的缓存查询共享同一个标识集合
type GormRepository[T Entity] struct {
	db          *gorm.DB
	ids         *IdentitySet
	table       string
	primaryKeys []string // 主键字段名
	opts        []Option
}

var _ Repository[Entity] = &GormRepository[Entity]{}

// NewGormRepository 创建GORM仓库
// 主键字段和表名从 T 的GORM模型解析
// opts: 传递给仓库创建的所有缓存查询，未指定 WithIdentitySet 时新建标识集合
func NewGormRepository[T Entity](db *gorm.DB, opts ...Option) (*GormRepository[T], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse %T schema: %w", *new(T), err)
	}

	if len(stmt.Schema.PrimaryFieldDBNames) == 0 {
		return nil, fmt.Errorf("%w: %s has no primary key", ErrInvalidConfig, stmt.Schema.Table)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.ids == nil {
		o.ids = NewIdentitySet(IdentitySetConfig{Name: stmt.Schema.Table, Logger: o.log, Stats: o.stat})
		opts = append(opts, WithIdentitySet(o.ids))
	}

	return &GormRepository[T]{
		db:          db,
		ids:         o.ids,
		table:       stmt.Schema.Table,
		primaryKeys: stmt.Schema.PrimaryFieldDBNames,
		opts:        opts,
	}, nil
}

// DB 数据库连接
func (r *GormRepository[T]) DB() *gorm.DB {
	return r.db
}

// Table 表名
func (r *GormRepository[T]) Table() string {
	return r.table
}

// Identities 仓库LRU查询共享的标识集合
func (r *GormRepository[T]) Identities() *IdentitySet {
	return r.ids
}

// FindAll 获取所有实体
func (r *GormRepository[T]) FindAll(ctx context.Context) ([]*T, error) {
	var entities []*T

	if err := r.db.WithContext(ctx).Find(&entities).Error; err != nil {
		return nil, r.wrap("find_all", err)
	}

	return entities, nil
}

// FindByID 根据主键获取实体
func (r *GormRepository[T]) FindByID(ctx context.Context, pk ...any) (*T, bool, error) {
	cond, err := r.pkCondition(pk)
	if err != nil {
		return nil, false, err
	}

	entity := new(T)

	err = r.db.WithContext(ctx).Where(cond).First(entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, r.wrap("find_by_id", err)
	}

	return entity, true, nil
}

// ExistsByID 根据主键判断实体是否存在
func (r *GormRepository[T]) ExistsByID(ctx context.Context, pk ...any) (bool, error) {
	cond, err := r.pkCondition(pk)
	if err != nil {
		return false, err
	}

	var n int64

	if err := r.db.WithContext(ctx).Model(new(T)).Where(cond).Count(&n).Error; err != nil {
		return false, r.wrap("exists_by_id", err)
	}

	return n > 0, nil
}

// Count 实体数量
func (r *GormRepository[T]) Count(ctx context.Context) (int64, error) {
	var n int64

	if err := r.db.WithContext(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, r.wrap("count", err)
	}

	return n, nil
}

// Insert 创建实体
func (r *GormRepository[T]) Insert(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return r.wrap("insert", err)
	}

	return nil
}

// Update 保存实体，提交后使其标识失效
func (r *GormRepository[T]) Update(ctx context.Context, entity *T) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(entity).Error
	})
	if err != nil {
		return r.wrap("update", err)
	}

	r.ids.Discard(ctx, (*entity).PrimaryKey())

	return nil
}

// Delete 删除实体，提交后使其标识失效
func (r *GormRepository[T]) Delete(ctx context.Context, entity *T) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(entity).Error
	})
	if err != nil {
		return r.wrap("delete", err)
	}

	r.ids.Discard(ctx, (*entity).PrimaryKey())

	return nil
}

// DeleteByID 根据主键删除实体，使被删除记录的标识失效
func (r *GormRepository[T]) DeleteByID(ctx context.Context, pk ...any) error {
	cond, err := r.pkCondition(pk)
	if err != nil {
		return err
	}

	var deleted []*T

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(cond).Find(&deleted).Error; err != nil {
			return err
		}

		if len(deleted) == 0 {
			return nil
		}

		return tx.Where(cond).Delete(new(T)).Error
	})
	if err != nil {
		return r.wrap("delete_by_id", err)
	}

	if len(deleted) > 0 {
		r.ids.Discard(ctx, r.listKeys(deleted)...)
	}

	return nil
}

// Exec 在事务中执行原生写语句，提交后使 pk 失效，返回影响行数
// 空 pk 不使任何标识失效
//
// pk 需与实体主键类型一致，如 entity.PrimaryKey()
func (r *GormRepository[T]) Exec(ctx context.Context, sql string, pk Key, args ...any) (int64, error) {
	var n int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(sql, args...)
		n = res.RowsAffected

		return res.Error
	})
	if err != nil {
		return 0, r.wrap("exec", err)
	}

	if pk.Len() > 0 {
		r.ids.Discard(ctx, pk)
	}

	return n, nil
}

// First 查询满足条件的第一个实体
func (r *GormRepository[T]) First(where string) Fetcher[*T] {
	return func(ctx context.Context, params ...any) (*T, bool, error) {
		entity := new(T)

		err := r.scope(ctx, where, params).First(entity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}

		if err != nil {
			return nil, false, r.wrap("first", err)
		}

		return entity, true, nil
	}
}

// Find 查询满足条件的实体列表，where 为空时查询全部
// 空列表视为未找到
func (r *GormRepository[T]) Find(where string) Fetcher[[]*T] {
	return func(ctx context.Context, params ...any) ([]*T, bool, error) {
		var entities []*T

		if err := r.scope(ctx, where, params).Find(&entities).Error; err != nil {
			return nil, false, r.wrap("find", err)
		}

		return entities, len(entities) > 0, nil
	}
}

// CountWhere 统计满足条件的实体数量
func (r *GormRepository[T]) CountWhere(where string) Fetcher[int64] {
	return func(ctx context.Context, params ...any) (int64, bool, error) {
		var n int64

		if err := r.scope(ctx, where, params).Model(new(T)).Count(&n).Error; err != nil {
			return 0, false, r.wrap("count", err)
		}

		return n, true, nil
	}
}

// CacheByID 创建按主键查询的缓存，参数个数默认等于主键字段数
//
// 有效性标记从加载的实体读取，uint 主键用 Get(ctx, 1) 查询同样会被写操作失效
func (r *GormRepository[T]) CacheByID(cfg QueryConfig, opts ...Option) (*Query[*T], error) {
	if cfg.Arity == 0 {
		cfg.Arity = len(r.primaryKeys)
	}

	return NewQuery(cfg, Fetcher[*T](r.FindByID), r.entityKeys, r.queryOptions(opts)...)
}

// CacheFirst 创建查询第一个满足条件实体的缓存
func (r *GormRepository[T]) CacheFirst(cfg QueryConfig, where string, opts ...Option) (*Query[*T], error) {
	return NewQuery(cfg, r.First(where), r.entityKeys, r.queryOptions(opts)...)
}

// CacheFind 创建查询实体列表的缓存
func (r *GormRepository[T]) CacheFind(cfg QueryConfig, where string, opts ...Option) (*Query[[]*T], error) {
	return NewQuery(cfg, r.Find(where), r.listKeys, r.queryOptions(opts)...)
}

// CacheCount 创建统计数量的缓存
// 数量没有主键，lru 策略需要 PrimaryKeyFromParams
func (r *GormRepository[T]) CacheCount(cfg QueryConfig, where string, opts ...Option) (*Query[int64], error) {
	return NewQuery(cfg, r.CountWhere(where), nil, r.queryOptions(opts)...)
}

func (r *GormRepository[T]) queryOptions(opts []Option) []Option {
	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)

	return append(all, opts...)
}

func (r *GormRepository[T]) entityKeys(e *T) []Key {
	return []Key{(*e).PrimaryKey()}
}

func (r *GormRepository[T]) listKeys(list []*T) []Key {
	keys := make([]Key, len(list))
	for i, e := range list {
		keys[i] = (*e).PrimaryKey()
	}

	return keys
}

func (r *GormRepository[T]) scope(ctx context.Context, where string, params []any) *gorm.DB {
	tx := r.db.WithContext(ctx)
	if where != "" {
		tx = tx.Where(where, params...)
	}

	return tx
}

func (r *GormRepository[T]) pkCondition(pk []any) (map[string]interface{}, error) {
	if len(pk) != len(r.primaryKeys) {
		return nil, fmt.Errorf("%s: %w: got %d primary key values, want %d",
			r.table, ErrKeyArity, len(pk), len(r.primaryKeys))
	}

	cond := make(map[string]interface{}, len(pk))
	for i, col := range r.primaryKeys {
		cond[col] = pk[i]
	}

	return cond, nil
}

func (r *GormRepository[T]) wrap(op string, err error) error {
	return &DatabaseError{Op: r.table + "." + op, Err: err}
}
