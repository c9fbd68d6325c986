package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	messages []Message
}

func (r *recordingBroadcaster) BroadcastStream(stream string, message Message) {
	message.Stream = stream
	r.messages = append(r.messages, message)
}

type fakePubSub struct {
	channel   string
	published []byte
	err       error
}

func (f *fakePubSub) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.published, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func (f *fakePubSub) Subscribe(context.Context, ...string) *redis.PubSub {
	return nil
}

func TestRedisRelayPublishesAndDeliversRoundTrip(t *testing.T) {
	client := &fakePubSub{}
	local := &recordingBroadcaster{}
	relay, err := NewRedisRelay(client, "", local)
	require.NoError(t, err)

	relay.BroadcastStream(StreamNotifications, Message{Event: "notification.created"})
	require.Equal(t, DefaultRelayChannel, client.channel)
	require.Empty(t, local.messages, "local delivery happens when the message comes back from redis")

	relay.deliver(string(client.published))
	require.Len(t, local.messages, 1)
	require.Equal(t, StreamNotifications, local.messages[0].Stream)
	require.Equal(t, "notification.created", local.messages[0].Event)
}

func TestRedisRelayFallsBackToLocalDelivery(t *testing.T) {
	client := &fakePubSub{err: errors.New("redis down")}
	local := &recordingBroadcaster{}
	relay, err := NewRedisRelay(client, "custom", local)
	require.NoError(t, err)

	relay.BroadcastStream(StreamPipeline, Message{Event: "lead.moved"})
	require.Len(t, local.messages, 1)
	require.Equal(t, "custom", client.channel)
}

func TestRedisRelayIgnoresMalformedPayload(t *testing.T) {
	local := &recordingBroadcaster{}
	relay, err := NewRedisRelay(&fakePubSub{}, "", local)
	require.NoError(t, err)

	relay.deliver("{not json")
	require.Empty(t, local.messages)

	payload, err := json.Marshal(Message{Stream: StreamPipeline, Event: "lead.moved"})
	require.NoError(t, err)
	relay.deliver(string(payload))
	require.Len(t, local.messages, 1)
}

func TestNewRedisRelayValidatesArguments(t *testing.T) {
	_, err := NewRedisRelay(nil, "", &recordingBroadcaster{})
	require.Error(t, err)
	_, err = NewRedisRelay(&fakePubSub{}, "", nil)
	require.Error(t, err)
}
