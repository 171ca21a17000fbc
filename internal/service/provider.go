package service

import (
	"channel_chat_server/internal/config"
	"channel_chat_server/internal/dao/gormdb/repository"
	myredis "channel_chat_server/internal/dao/redis"
	"channel_chat_server/internal/service/directory"
	"channel_chat_server/internal/service/message"
)

// Services 聚合所有 Service 实例
type Services struct {
	Channel ChannelService
	Message MessageService
}

// NewServices 创建所有 Service 实例，cache 为 nil 时不使用缓存
func NewServices(repos *repository.Repositories, cache myredis.AsyncCacheService, conf *config.ChatConfig) *Services {
	var plainCache myredis.CacheService
	if cache != nil {
		plainCache = cache
	}
	return &Services{
		Channel: directory.NewChannelService(repos.Channel, plainCache, conf.StoreTimeout, conf.CacheTTL),
		Message: message.NewMessageService(repos.Message, repos.User, cache, message.Options{
			HistoryLimit:    conf.HistoryLimit,
			MaxHistoryLimit: conf.MaxHistoryLimit,
			StoreTimeout:    conf.StoreTimeout,
			CacheTTL:        conf.HistoryCacheTTL,
		}),
	}
}
