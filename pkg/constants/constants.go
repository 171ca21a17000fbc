package constants

const (
	CHANNEL_TYPE_KEY_PREFIX         = "channel_type_"             // 频道类型缓存 key 前缀
	CHANNEL_MESSAGES_KEY_PREFIX     = "channel_messages_"         // 历史消息缓存 key 前缀，后接 channelId_v版本_limit
	CHANNEL_MESSAGES_VERSION_PREFIX = "channel_messages_version_" // 历史消息缓存版本号，每次写入消息自增
	CONTEXT_USER_ID                 = "user_id"                   // gin 上下文中的认证用户 ID
	ACCESS_TOKEN_SUBJECT            = "access_token"              // Access Token 的 subject
	TOKEN_ISSUER                    = "channel_chat"              // Token 签发方
)
