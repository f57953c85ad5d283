// Package cache 关系型数据访问层之前的参数化查询读穿透缓存
//
// Query 将 Fetcher 的结果缓存在由 QueryConfig.Policy 选择的有界 Store 中：
//
//   - lru 保留最近使用的结果，只有缓存实体的主键仍在仓库的 IdentitySet 中才算命中。
//     写操作从集合中移除主键，持有该实体的所有 lru 查询下次读取时重新加载，写方无需知道有哪些查询。
//   - ttl 在存活时间内保留结果，不受写操作影响，过期前可能返回旧数据。
//   - lfu 保留访问频繁的结果，不受写操作影响。
//
// 结果按原样的查询参数作为key（见 Key），未找到的结果和错误不会被缓存。
//
// GormRepository 用GORM实现数据访问，并创建绑定其标识集合的缓存查询：
//
//	repo, err := cache.NewGormRepository[User](db)
//	findUser, err := repo.CacheByID(cache.QueryConfig{Name: "find_user"})
//	user, found, err := findUser.Get(ctx, uint(1))
//	err = repo.Update(ctx, user) // 下次 findUser.Get 重新加载
package cache
