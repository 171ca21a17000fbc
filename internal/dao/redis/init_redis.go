package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"channel_chat_server/internal/config"
	"channel_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// Init 根据配置创建 Redis 客户端并校验连通性
func Init(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.Db,
		PoolSize:     50,
		MinIdleConns: cfg.Workers,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errorx.Wrap(err, errorx.CodeCacheError, fmt.Sprintf("redis ping %s", addr))
	}
	return NewRedisCache(client, cfg.Workers, cfg.QueueSize), nil
}
