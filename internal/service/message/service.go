// Package message 负责消息写入、作者资料解析与历史查询
package message

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"channel_chat_server/internal/dao/gormdb/repository"
	myredis "channel_chat_server/internal/dao/redis"
	"channel_chat_server/internal/dto/respond"
	"channel_chat_server/internal/model"
	"channel_chat_server/pkg/constants"
	"channel_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Options 消息服务参数
type Options struct {
	HistoryLimit    int           // 默认历史条数
	MaxHistoryLimit int           // 历史条数上限
	StoreTimeout    time.Duration // 单次存储调用超时
	CacheTTL        time.Duration // 历史缓存过期时间
}

// messageService 消息业务逻辑实现
type messageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	cache    myredis.AsyncCacheService // 可为 nil
	opts     Options
}

// NewMessageService 构造函数，cache 为 nil 时不缓存历史
func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, cache myredis.AsyncCacheService, opts Options) *messageService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.MaxHistoryLimit < opts.HistoryLimit {
		opts.MaxHistoryLimit = opts.HistoryLimit
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &messageService{
		messages: messages,
		users:    users,
		cache:    cache,
		opts:     opts,
	}
}

// Append 写入一条消息，content 去除首尾空白，空字符串视为缺失
// 存储失败返回 CodeDBError，调用方不得广播
func (s *messageService) Append(ctx context.Context, channelId, userId, content, imageUrl string) (*model.Message, error) {
	msg := &model.Message{
		ChannelID: channelId,
		UserID:    userId,
		Content:   optional(strings.TrimSpace(content)),
		ImageURL:  optional(strings.TrimSpace(imageUrl)),
	}
	if msg.Content == nil && msg.ImageURL == nil {
		return nil, errorx.ErrEmptyMessage
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.messages.Create(storeCtx, msg); err != nil {
		zap.L().Error("写入消息失败",
			zap.String("channel_id", channelId),
			zap.String("user_id", userId),
			zap.Error(err))
		return nil, errorx.Wrap(err, errorx.CodeDBError, "写入消息失败")
	}

	s.invalidateHistory(channelId)
	return msg, nil
}

// ResolveAuthor 查询作者资料，用户不存在时返回占位资料
func (s *messageService) ResolveAuthor(ctx context.Context, userId string) (respond.UserProfile, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	user, err := s.users.FindByID(storeCtx, userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return respond.PlaceholderProfile(userId), nil
		}
		zap.L().Error("查询消息作者失败", zap.String("user_id", userId), zap.Error(err))
		return respond.UserProfile{}, errorx.Wrap(err, errorx.CodeDBError, "查询用户失败")
	}
	return respond.NewUserProfile(user), nil
}

// Create 写入消息并附带作者资料
func (s *messageService) Create(ctx context.Context, channelId, userId, content, imageUrl string) (*respond.MessageWithUser, error) {
	msg, err := s.Append(ctx, channelId, userId, content, imageUrl)
	if err != nil {
		return nil, err
	}
	author, err := s.ResolveAuthor(ctx, userId)
	if err != nil {
		return nil, err
	}
	rsp := respond.NewMessageWithUser(msg, author)
	return &rsp, nil
}

// NormalizeLimit 非正数使用默认值，超过上限截断
func (s *messageService) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return s.opts.HistoryLimit
	}
	if limit > s.opts.MaxHistoryLimit {
		return s.opts.MaxHistoryLimit
	}
	return limit
}

// History 返回频道最近的消息，按创建时间升序
// 作者一次性批量查询，缺失的作者使用占位资料
func (s *messageService) History(ctx context.Context, channelId string, limit int) ([]respond.MessageWithUser, error) {
	limit = s.NormalizeLimit(limit)

	// 版本号在查库之前读取，期间有新消息写入时本次结果只会落到旧版本的 key
	var cacheKey string
	if s.cache != nil {
		version, err := s.cache.Get(ctx, historyVersionKey(channelId))
		if err != nil {
			zap.L().Warn("读取历史消息缓存版本失败", zap.String("channel_id", channelId), zap.Error(err))
		} else {
			cacheKey = historyKey(channelId, version, limit)
		}
	}

	if cacheKey != "" {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			zap.L().Warn("读取历史消息缓存失败", zap.String("channel_id", channelId), zap.Error(err))
		} else if cached != "" {
			var rsp []respond.MessageWithUser
			if err := json.Unmarshal([]byte(cached), &rsp); err == nil {
				return rsp, nil
			}
			zap.L().Warn("历史消息缓存格式错误", zap.String("key", cacheKey))
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	messages, err := s.messages.FindLatestByChannel(storeCtx, channelId, limit)
	if err != nil {
		zap.L().Error("查询历史消息失败", zap.String("channel_id", channelId), zap.Error(err))
		return nil, errorx.Wrap(err, errorx.CodeDBError, "查询历史消息失败")
	}

	profiles, err := s.resolveAuthors(storeCtx, messages)
	if err != nil {
		return nil, err
	}

	// 查询结果为倒序，翻转一次得到升序
	rsp := make([]respond.MessageWithUser, len(messages))
	for i := range messages {
		m := &messages[len(messages)-1-i]
		rsp[i] = respond.NewMessageWithUser(m, profiles[m.UserID])
	}

	if cacheKey != "" {
		if data, err := json.Marshal(rsp); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), s.opts.CacheTTL); err != nil {
				zap.L().Warn("写入历史消息缓存失败", zap.String("channel_id", channelId), zap.Error(err))
			}
		}
	}
	return rsp, nil
}

func (s *messageService) resolveAuthors(ctx context.Context, messages []model.Message) (map[string]respond.UserProfile, error) {
	ids := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		zap.L().Error("批量查询消息作者失败", zap.Int("count", len(ids)), zap.Error(err))
		return nil, errorx.Wrap(err, errorx.CodeDBError, "查询用户失败")
	}

	profiles := make(map[string]respond.UserProfile, len(ids))
	for i := range users {
		profiles[users[i].ID] = respond.NewUserProfile(&users[i])
	}
	for _, id := range ids {
		if _, ok := profiles[id]; !ok {
			profiles[id] = respond.PlaceholderProfile(id)
		}
	}
	return profiles, nil
}

// invalidateHistory 自增频道的历史缓存版本号，旧版本的 key 不再被读取，异步清理
// 自增失败时退化为直接删除频道的全部历史缓存
func (s *messageService) invalidateHistory(channelId string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StoreTimeout)
	defer cancel()

	pattern := constants.CHANNEL_MESSAGES_KEY_PREFIX + channelId + "_*"
	version, err := s.cache.Incr(ctx, historyVersionKey(channelId))
	if err != nil {
		zap.L().Warn("更新历史消息缓存版本失败", zap.String("channel_id", channelId), zap.Error(err))
	} else {
		pattern = historyPrefix(channelId, strconv.FormatInt(version-1, 10)) + "*"
	}

	s.cache.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.StoreTimeout)
		defer cancel()
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			zap.L().Warn("删除历史消息缓存失败", zap.String("pattern", pattern), zap.Error(err))
		}
	})
}

func historyVersionKey(channelId string) string {
	return constants.CHANNEL_MESSAGES_VERSION_PREFIX + channelId
}

// historyPrefix 版本号为空时视为 0
func historyPrefix(channelId, version string) string {
	if version == "" {
		version = "0"
	}
	return constants.CHANNEL_MESSAGES_KEY_PREFIX + channelId + "_v" + version + "_"
}

func historyKey(channelId, version string, limit int) string {
	return historyPrefix(channelId, version) + strconv.Itoa(limit)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
