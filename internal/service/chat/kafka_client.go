package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"reconnect_server/internal/config"
)

// KafkaClient Kafka 客户端结构
type KafkaClient struct {
	Producer *kafka.Writer // 生产者：负责写入消息
	Consumer *kafka.Reader // 消费者：负责读取消息
}

// NewKafkaClient 创建 Kafka 客户端
// 广播需要每个进程都收到全量消息，未配置 GroupID 时按进程生成唯一消费者组
func NewKafkaClient(cfg config.KafkaConfig) *KafkaClient {
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "reconnect-gateway-" + uuid.NewString()
	}
	return &KafkaClient{
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.HostPort),
			Topic:                  cfg.ChatTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           cfg.Timeout * time.Second,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.ChatTopic,
			CommitInterval: cfg.Timeout * time.Second,
			GroupID:        groupID,
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// SendMessage 写入一条消息，同一 key 落在同一分区以保证会话内顺序
func (k *KafkaClient) SendMessage(ctx context.Context, key, value []byte) error {
	return k.Producer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// ReadMessage 阻塞读取下一条消息
func (k *KafkaClient) ReadMessage(ctx context.Context) ([]byte, error) {
	msg, err := k.Consumer.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (k *KafkaClient) Close() error {
	var firstErr error
	if err := k.Producer.Close(); err != nil {
		zap.L().Error("close kafka producer", zap.Error(err))
		firstErr = err
	}
	if err := k.Consumer.Close(); err != nil {
		zap.L().Error("close kafka consumer", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
