// Package directory 提供频道元数据查询
// 频道类型不可变，解析结果缓存到 Redis
package directory

import (
	"context"
	"time"

	"channel_chat_server/internal/dao/gormdb/repository"
	myredis "channel_chat_server/internal/dao/redis"
	"channel_chat_server/internal/dto/respond"
	"channel_chat_server/internal/model"
	"channel_chat_server/pkg/constants"
	"channel_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// channelService 频道目录实现
type channelService struct {
	channels     repository.ChannelRepository
	cache        myredis.CacheService // 可为 nil
	storeTimeout time.Duration
	cacheTTL     time.Duration
}

// NewChannelService 构造函数，cache 为 nil 时每次都查库
func NewChannelService(channels repository.ChannelRepository, cache myredis.CacheService, storeTimeout, cacheTTL time.Duration) *channelService {
	return &channelService{
		channels:     channels,
		cache:        cache,
		storeTimeout: storeTimeout,
		cacheTTL:     cacheTTL,
	}
}

// ResolveType 返回频道类型，频道不存在时返回 CodeNotFound
func (s *channelService) ResolveType(ctx context.Context, channelId string) (model.ChannelType, error) {
	cacheKey := constants.CHANNEL_TYPE_KEY_PREFIX + channelId
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			zap.L().Warn("读取频道类型缓存失败", zap.String("channel_id", channelId), zap.Error(err))
		} else if t := model.ChannelType(cached); t.Valid() {
			return t, nil
		}
	}

	channel, err := s.find(ctx, channelId)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, string(channel.Type), s.cacheTTL); err != nil {
			zap.L().Warn("写入频道类型缓存失败", zap.String("channel_id", channelId), zap.Error(err))
		}
	}
	return channel.Type, nil
}

// GetChannel 获取单个频道
func (s *channelService) GetChannel(ctx context.Context, channelId string) (*respond.ChannelRespond, error) {
	channel, err := s.find(ctx, channelId)
	if err != nil {
		return nil, err
	}
	rsp := respond.NewChannelRespond(channel)
	return &rsp, nil
}

// ListChannels 按 position 排序列出所有频道
func (s *channelService) ListChannels(ctx context.Context) ([]respond.ChannelRespond, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	channels, err := s.channels.List(ctx)
	if err != nil {
		zap.L().Error("查询频道列表失败", zap.Error(err))
		return nil, err
	}
	rsp := make([]respond.ChannelRespond, 0, len(channels))
	for i := range channels {
		rsp = append(rsp, respond.NewChannelRespond(&channels[i]))
	}
	return rsp, nil
}

func (s *channelService) find(ctx context.Context, channelId string) (*model.Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	channel, err := s.channels.FindByID(ctx, channelId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Wrapf(err, errorx.CodeNotFound, "频道 %s 不存在", channelId)
		}
		zap.L().Error("查询频道失败", zap.String("channel_id", channelId), zap.Error(err))
		return nil, err
	}
	return channel, nil
}
