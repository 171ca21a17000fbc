// Package redis 定义缓存服务接口
// Service 层依赖此接口而非具体 Redis 实现
package redis

import (
	"context"
	"time"
)

// CacheService 缓存服务接口
type CacheService interface {
	// Set 设置键值对并指定过期时间
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get 获取键对应的值（键不存在返回空字符串和 nil）
	Get(ctx context.Context, key string) (string, error)
	// Delete 删除键（如果存在）
	Delete(ctx context.Context, key string) error
	// DeleteByPattern 删除匹配模式的所有键
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AsyncCacheService 在 CacheService 之上提供异步任务提交能力，用于非阻塞的缓存失效
type AsyncCacheService interface {
	CacheService
	// Incr 原子自增并返回新值，键不存在时从 0 开始
	Incr(ctx context.Context, key string) (int64, error)
	// SubmitTask 提交异步缓存任务
	SubmitTask(action func())
}
