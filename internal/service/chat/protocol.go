package chat

import (
	"time"

	"reconnect_server/internal/dto/respond"
)

// 客户端事件
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventSendMessage = "sendMessage"
)

// 服务端事件
const (
	EventJoined       = "joined"
	EventLeft         = "left"
	EventNewMessage   = "newMessage"
	EventMessageSent  = "messageSent"
	EventMessageError = "messageError"
	EventError        = "error"
)

// ClientEvent 客户端发来的帧
type ClientEvent struct {
	Event          string `json:"event"`
	ConversationID uint   `json:"conversation_id"`
	Text           string `json:"text"`
}

// ServerEvent 推送给客户端的帧
type ServerEvent struct {
	Event          string          `json:"event"`
	ConversationID uint            `json:"conversation_id,omitempty"`
	Data           *MessagePayload `json:"data,omitempty"`
	Code           int             `json:"code,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// MessagePayload newMessage 和 messageSent 的消息体
type MessagePayload struct {
	ID             int64     `json:"id,string"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// Broadcast 经由 broker 分发的广播事件
// OriginConnID 为发起连接，投递时跳过；REST 发送时为空
type Broadcast struct {
	ConversationID uint           `json:"conversation_id"`
	OriginConnID   string         `json:"origin_conn_id,omitempty"`
	Payload        MessagePayload `json:"payload"`
}

// PayloadFrom 已持久化消息转为推送消息体
func PayloadFrom(m *respond.MessageRespond) MessagePayload {
	return MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Content,
		Timestamp:      m.CreatedAt,
	}
}
