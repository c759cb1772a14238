package request

// CreateConversationRequest 查找或创建与 user_id 的私聊会话
type CreateConversationRequest struct {
	UserID uint `json:"user_id" binding:"required,min=1"`
}

// SendMessageRequest 发送消息请求
// 空内容由业务层返回 EmptyMessage，这里不做 required 校验
type SendMessageRequest struct {
	Content string `json:"content" binding:"max=4000"`
}
