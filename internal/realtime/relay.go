package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/charlesng35/leadflow/pkg/logger"
)

// DefaultRelayChannel is the Redis channel realtime messages are relayed on.
const DefaultRelayChannel = "leadflow:realtime"

type pubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisRelay fans broadcasts out through Redis pub/sub so that subscribers
// connected to any instance receive them. Every instance, including the
// publishing one, delivers relayed messages to its local hub.
type RedisRelay struct {
	client  pubSubClient
	channel string
	local   Broadcaster
	log     *zap.Logger
}

// NewRedisRelay wraps local with a Redis relay on channel.
func NewRedisRelay(client pubSubClient, channel string, local Broadcaster) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("realtime relay: redis client is required")
	}
	if local == nil {
		return nil, errors.New("realtime relay: local broadcaster is required")
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		log:     logger.WithModule("realtime.relay"),
	}, nil
}

// BroadcastStream publishes the message to Redis. If Redis rejects it, the
// message is still delivered locally.
func (r *RedisRelay) BroadcastStream(stream string, message Message) {
	message.Stream = normalizeStream(stream)
	payload, err := json.Marshal(message)
	if err != nil {
		r.log.Warn("encode relay message", zap.Error(err))
		r.local.BroadcastStream(stream, message)
		return
	}

	if err := r.client.Publish(context.Background(), r.channel, payload).Err(); err != nil {
		r.log.Warn("relay publish failed, delivering locally", zap.Error(err))
		r.local.BroadcastStream(stream, message)
	}
}

// Run consumes relayed messages until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(payload string) {
	var message Message
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		r.log.Warn("decode relay message", zap.Error(err))
		return
	}
	r.local.BroadcastStream(message.Stream, message)
}
