package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 缓存操作的超时时间
const opTimeout = 3 * time.Second

// Cache 基于 Redis 的限流计数与令牌黑名单实现
type Cache struct {
	client *Client
}

// NewCache 创建 Redis 缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// IncrementRateLimit 递增限流计数，首次递增时设置窗口过期
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	pipe := c.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetRateLimit 查询当前限流计数
func (c *Cache) GetRateLimit(key string) (int64, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	val, err := c.client.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// AddToBlacklist 将令牌 jti 加入黑名单，TTL 对齐令牌剩余有效期
func (c *Cache) AddToBlacklist(jti string, ttl time.Duration) error {
	ctx, cancel := c.ctx()
	defer cancel()

	return c.client.rdb.Set(ctx, "jwt:blacklist:"+jti, "1", ttl).Err()
}

// IsBlacklisted 判断令牌 jti 是否在黑名单中
func (c *Cache) IsBlacklisted(jti string) (bool, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	n, err := c.client.rdb.Exists(ctx, "jwt:blacklist:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
