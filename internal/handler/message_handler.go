package handler

import (
	"channel_chat_server/internal/dto/request"
	"channel_chat_server/internal/model"
	"channel_chat_server/internal/service"
	"channel_chat_server/pkg/constants"
	"channel_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// MessageHandler 非实时的消息创建接口
type MessageHandler struct {
	channelSvc      service.ChannelService
	messageSvc      service.MessageService
	requireSameUser bool
}

func NewMessageHandler(channelSvc service.ChannelService, messageSvc service.MessageService, requireSameUser bool) *MessageHandler {
	return &MessageHandler{channelSvc: channelSvc, messageSvc: messageSvc, requireSameUser: requireSameUser}
}

// Create 写入消息并返回带作者资料的消息，不做实时广播
// POST /api/messages
// 请求体: request.CreateMessageRequest
func (h *MessageHandler) Create(c *gin.Context) {
	var req request.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if h.requireSameUser && c.GetString(constants.CONTEXT_USER_ID) != req.UserId {
		HandleError(c, errorx.ErrUserMismatch)
		return
	}

	// 与实时通道一致：频道必须存在且为文字频道
	channelType, err := h.channelSvc.ResolveType(c.Request.Context(), req.ChannelId)
	if err != nil {
		HandleError(c, err)
		return
	}
	if channelType != model.ChannelTypeText {
		HandleError(c, errorx.ErrVoiceChannel)
		return
	}

	data, err := h.messageSvc.Create(c.Request.Context(), req.ChannelId, req.UserId, req.Content, req.ImageUrl)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleCreated(c, data)
}
