package cache

import "context"

// Repository 实体的数据访问接口（不经过缓存）
//
// 更新和删除会从仓库的标识集合中移除实体主键，LRU缓存查询下次读取时重新加载
type Repository[T Entity] interface {
	// FindAll 获取所有实体
	FindAll(ctx context.Context) ([]*T, error)

	// FindByID 根据主键获取实体，不存在时返回false
	FindByID(ctx context.Context, pk ...any) (*T, bool, error)

	// ExistsByID 根据主键判断实体是否存在
	ExistsByID(ctx context.Context, pk ...any) (bool, error)

	// Count 实体数量
	Count(ctx context.Context) (int64, error)

	// Insert 创建实体
	Insert(ctx context.Context, entity *T) error

	// Update 保存实体并使其标识失效
	Update(ctx context.Context, entity *T) error

	// Delete 删除实体并使其标识失效
	Delete(ctx context.Context, entity *T) error

	// DeleteByID 根据主键删除实体并使其标识失效
	DeleteByID(ctx context.Context, pk ...any) error

	// Identities 仓库LRU查询共享的标识集合
	Identities() *IdentitySet
}
