// Package chat 实现实时推送网关
// 连接按会话频道分组，消息经 MessageBroker 分发到各进程的 Hub 再推给本机连接
package chat

import (
	"context"

	"reconnect_server/internal/config"
)

// MessageBroker 定义消息代理接口
// 支持多种实现：KafkaBroker (分布式), ChannelBroker (单机)
type MessageBroker interface {
	// Publish 发布广播事件
	Publish(ctx context.Context, b *Broadcast) error
	// Start 消费循环，阻塞到 ctx 结束
	Start(ctx context.Context) error
	// Close 关闭代理资源
	Close() error
}

// Deliverer 把广播投递给本机连接，由 Hub 实现
type Deliverer interface {
	Deliver(b *Broadcast)
}

// NewBroker 按 messageMode 选择实现，默认 channel
func NewBroker(cfg config.KafkaConfig, hub Deliverer) MessageBroker {
	if cfg.MessageMode == "kafka" {
		return NewKafkaBroker(NewKafkaClient(cfg), hub)
	}
	return NewChannelBroker(hub)
}
