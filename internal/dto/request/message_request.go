package request

// CreateMessageRequest HTTP 创建消息，不触发实时广播
type CreateMessageRequest struct {
	ChannelId string `json:"channelId" binding:"required,uuid"`
	UserId    string `json:"userId" binding:"required,uuid"`
	Content   string `json:"content" binding:"required,notblank,max=4000"`
	ImageUrl  string `json:"imageUrl" binding:"omitempty,url"`
}

// ChannelUriRequest 路径参数中的频道 ID
type ChannelUriRequest struct {
	ChannelId string `uri:"channelId" json:"channelId" binding:"required,uuid"`
}
