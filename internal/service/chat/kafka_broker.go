package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"go.uber.org/zap"
)

// kafkaTransport KafkaBroker 依赖的读写能力
type kafkaTransport interface {
	SendMessage(ctx context.Context, key, value []byte) error
	ReadMessage(ctx context.Context) ([]byte, error)
	Close() error
}

// KafkaBroker 分布式模式
// 广播写入 Kafka，每个进程消费全量事件并投递给本机 Hub
type KafkaBroker struct {
	client kafkaTransport
	hub    Deliverer
}

func NewKafkaBroker(client kafkaTransport, hub Deliverer) *KafkaBroker {
	return &KafkaBroker{client: client, hub: hub}
}

func (b *KafkaBroker) Publish(ctx context.Context, msg *Broadcast) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatUint(uint64(msg.ConversationID), 10))
	return b.client.SendMessage(ctx, key, value)
}

func (b *KafkaBroker) Start(ctx context.Context) error {
	for {
		value, err := b.client.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			zap.L().Error("kafka read broadcast", zap.Error(err))
			return err
		}
		var msg Broadcast
		if err := json.Unmarshal(value, &msg); err != nil {
			zap.L().Warn("skip malformed broadcast", zap.Error(err))
			continue
		}
		b.hub.Deliver(&msg)
	}
}

func (b *KafkaBroker) Close() error {
	return b.client.Close()
}
