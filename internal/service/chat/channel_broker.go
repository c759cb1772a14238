package chat

import (
	"context"

	"reconnect_server/pkg/constants"
)

// ChannelBroker 单机模式，广播经进程内通道交给 Hub
type ChannelBroker struct {
	// Transmit 广播转发通道
	Transmit chan *Broadcast
	hub      Deliverer
}

func NewChannelBroker(hub Deliverer) *ChannelBroker {
	return &ChannelBroker{
		Transmit: make(chan *Broadcast, constants.TRANSMIT_CHAN_SIZE),
		hub:      hub,
	}
}

// Publish 通道满时阻塞直到 ctx 结束
func (b *ChannelBroker) Publish(ctx context.Context, msg *Broadcast) error {
	select {
	case b.Transmit <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBroker) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-b.Transmit:
			b.hub.Deliver(msg)
		}
	}
}

// Close Transmit 不关闭，避免并发 Publish 写入已关闭通道
func (b *ChannelBroker) Close() error {
	return nil
}
