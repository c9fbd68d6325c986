package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPSinkPublishesEventByType(t *testing.T) {
	ch := &fakeChannel{}
	sink := newAMQPSink(ch, "", 0)

	sink.Handle(context.Background(), Event{Type: LeadMoved, SubjectID: "lead-1", Payload: map[string]string{"to": "s2"}})

	require.Equal(t, DefaultExchange, ch.exchange)
	require.Equal(t, "lead.moved", ch.key)
	require.Equal(t, "application/json", ch.msg.ContentType)
	require.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	require.Equal(t, "lead-1", decoded["subject_id"])
}

func TestAMQPSinkSwallowsPublishErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	sink := newAMQPSink(ch, "crm", 0)

	require.NotPanics(t, func() {
		sink.Handle(context.Background(), Event{Type: LeadCreated})
	})
	require.Equal(t, "crm", ch.exchange)

	require.NoError(t, sink.Close())
	require.True(t, ch.closed)
}

func TestNewAMQPSinkRequiresURL(t *testing.T) {
	_, err := NewAMQPSink(AMQPConfig{})
	require.Error(t, err)
}
