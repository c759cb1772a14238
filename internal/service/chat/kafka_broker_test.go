package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopTransport 把写入的消息原样交给读端
type loopTransport struct {
	keys   [][]byte
	queue  chan []byte
	closed bool
}

func (l *loopTransport) SendMessage(_ context.Context, key, value []byte) error {
	l.keys = append(l.keys, key)
	l.queue <- value
	return nil
}

func (l *loopTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case v := <-l.queue:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *loopTransport) Close() error {
	l.closed = true
	return nil
}

type recordingHub struct {
	got chan *Broadcast
}

func (r *recordingHub) Deliver(b *Broadcast) { r.got <- b }

func TestKafkaBroker_RoundTripKeepsOrigin(t *testing.T) {
	transport := &loopTransport{queue: make(chan []byte, 4)}
	hub := &recordingHub{got: make(chan *Broadcast, 4)}
	broker := NewKafkaBroker(transport, hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broker.Start(ctx) }()

	// 格式错误的消息被跳过
	transport.queue <- []byte("{broken")

	want := &Broadcast{ConversationID: 9, OriginConnID: "conn-1", Payload: MessagePayload{ID: 123456789012345, Text: "hi"}}
	require.NoError(t, broker.Publish(ctx, want))
	assert.Equal(t, []byte("9"), transport.keys[0])

	select {
	case got := <-hub.got:
		assert.Equal(t, want.OriginConnID, got.OriginConnID)
		assert.Equal(t, want.Payload.ID, got.Payload.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}

	cancel()
	assert.NoError(t, <-done)
	require.NoError(t, broker.Close())
	assert.True(t, transport.closed)
}

func TestBroadcastEncodesIDAsString(t *testing.T) {
	data, err := json.Marshal(Broadcast{Payload: MessagePayload{ID: 42}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"42"`)
}
