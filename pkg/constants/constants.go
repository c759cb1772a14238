package constants

const (
	CHANNEL_SIZE        = 100  // 每个连接的发送缓冲通道大小
	TRANSMIT_CHAN_SIZE  = 1024 // 网关广播通道大小
	REDIS_TASK_BUFFER   = 3000 // Redis 异步任务缓冲区大小
	MAX_MESSAGE_LENGTH  = 4000 // 单条消息最大字符数
	WS_READ_LIMIT       = 8192 // 单个 websocket 帧最大字节数
	DEFAULT_PAGE_SIZE   = 20   // 检索默认分页大小
	MAX_PAGE_SIZE       = 100  // 检索最大分页大小
	CTX_USER_ID_KEY     = "userID"
	CTX_TOKEN_CLAIM_KEY = "tokenClaims"
)
