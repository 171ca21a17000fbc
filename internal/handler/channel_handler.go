package handler

import (
	"strconv"

	"channel_chat_server/internal/dto/request"
	"channel_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ChannelHandler 频道与历史消息查询
type ChannelHandler struct {
	channelSvc service.ChannelService
	messageSvc service.MessageService
}

func NewChannelHandler(channelSvc service.ChannelService, messageSvc service.MessageService) *ChannelHandler {
	return &ChannelHandler{channelSvc: channelSvc, messageSvc: messageSvc}
}

// List 频道列表，按 position、name 排序
// GET /api/channels
func (h *ChannelHandler) List(c *gin.Context) {
	data, err := h.channelSvc.ListChannels(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Get 单个频道
// GET /api/channels/:channelId
func (h *ChannelHandler) Get(c *gin.Context) {
	var req request.ChannelUriRequest
	if err := c.ShouldBindUri(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.GetChannel(c.Request.Context(), req.ChannelId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// History 频道最近消息，按创建时间升序
// GET /api/channels/:channelId/messages?limit=50
// limit 非法或不为正数时使用默认值，超过上限时截断
func (h *ChannelHandler) History(c *gin.Context) {
	var req request.ChannelUriRequest
	if err := c.ShouldBindUri(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}
	data, err := h.messageSvc.History(c.Request.Context(), req.ChannelId, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
