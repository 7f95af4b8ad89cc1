package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hafbjorn109/wiperino/internal/broadcast"
	"github.com/hafbjorn109/wiperino/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	roomChannelInfix   = "room:"
	channelBufferSize  = 1024
	deliverChannelSize = 256
)

// Transport is the cluster-wide broadcast.Transport. Each room maps to its
// own pub/sub channel; every process pattern-subscribes to all of them once.
type Transport struct {
	rdb    *goredis.Client
	prefix string
}

var _ broadcast.Transport = (*Transport)(nil)

// NewTransport creates a transport publishing on "<prefix>:room:<room key>".
func NewTransport(client *Client, prefix string) *Transport {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &Transport{rdb: client.rdb, prefix: prefix + roomChannelInfix}
}

func (t *Transport) channel(room string) string {
	return t.prefix + room
}

func (t *Transport) Publish(ctx context.Context, msg broadcast.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := t.rdb.Publish(ctx, t.channel(msg.Room), data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe pattern-subscribes and waits for Redis to confirm before
// returning, so no publish issued afterwards is missed.
func (t *Transport) Subscribe(ctx context.Context) (<-chan broadcast.Message, error) {
	sub := t.rdb.PSubscribe(ctx, t.prefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to confirm subscription: %w", err)
	}

	out := make(chan broadcast.Message, deliverChannelSize)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgCh := sub.Channel(goredis.WithChannelSize(channelBufferSize))
		for {
			select {
			case raw, ok := <-msgCh:
				if !ok {
					return
				}
				msg, err := t.decode(raw)
				if err != nil {
					slog.Warn("Dropping undecodable broadcast", "channel", raw.Channel, "error", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (t *Transport) decode(raw *goredis.Message) (broadcast.Message, error) {
	var msg broadcast.Message
	if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
		return broadcast.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	room, err := domain.ParseRoomKey(strings.TrimPrefix(raw.Channel, t.prefix))
	if err != nil {
		return broadcast.Message{}, err
	}
	msg.Room = room.Key()
	return msg, nil
}
