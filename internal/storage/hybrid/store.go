// Package hybrid 组合持久存储与 Redis：信件和用户走数据库，
// 限流计数与令牌黑名单走 Redis。
package hybrid

import (
	"time"

	"timeletter/backend/internal/storage"
	redisstore "timeletter/backend/internal/storage/redis"
)

// Store 混合存储实现
type Store struct {
	storage.Store // 信件与用户的持久存储
	cache         *redisstore.Cache
}

// NewStore 创建混合存储
func NewStore(persistent storage.Store, cache *redisstore.Cache) *Store {
	return &Store{
		Store: persistent,
		cache: cache,
	}
}

// IncrementRateLimit 递增限流计数（Redis）
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return s.cache.IncrementRateLimit(key, window)
}

// GetRateLimit 查询限流计数（Redis）
func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.cache.GetRateLimit(key)
}

// AddToBlacklist 将令牌加入黑名单（Redis）
func (s *Store) AddToBlacklist(jti string, ttl time.Duration) error {
	return s.cache.AddToBlacklist(jti, ttl)
}

// IsBlacklisted 判断令牌是否在黑名单中（Redis）
func (s *Store) IsBlacklisted(jti string) (bool, error) {
	return s.cache.IsBlacklisted(jti)
}
