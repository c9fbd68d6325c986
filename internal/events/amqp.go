package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/metrics"
)

// DefaultExchange is the topic exchange events are forwarded to.
const DefaultExchange = "leadflow.events"

// AMQPConfig configures the external event sink.
type AMQPConfig struct {
	URL            string
	Exchange       string
	PublishTimeout time.Duration
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink forwards bus events to a RabbitMQ topic exchange so external
// automation workflows can react to pipeline changes. The routing key is the
// event type.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	timeout  time.Duration
	log      *zap.Logger
}

// NewAMQPSink dials the broker and declares the exchange.
func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp sink: url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp sink: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp sink: open channel: %w", err)
	}

	exchange := exchangeName(cfg.Exchange)
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp sink: declare exchange %s: %w", exchange, err)
	}

	sink := newAMQPSink(ch, exchange, cfg.PublishTimeout)
	sink.conn = conn
	return sink, nil
}

func newAMQPSink(ch amqpChannel, exchange string, timeout time.Duration) *AMQPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AMQPSink{
		ch:       ch,
		exchange: exchangeName(exchange),
		timeout:  timeout,
		log:      logger.WithModule("events.amqp"),
	}
}

// Handle publishes evt. It has the Handler signature so the sink can be
// subscribed to the bus directly. Failures are logged and counted.
func (s *AMQPSink) Handle(ctx context.Context, evt Event) {
	if err := s.publish(ctx, evt); err != nil {
		metrics.EventsPublished.WithLabelValues("amqp", "failure").Inc()
		s.log.Warn("forward event failed", zap.String("event", string(evt.Type)), zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues("amqp", "success").Inc()
}

func (s *AMQPSink) publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.ch.PublishWithContext(ctx, s.exchange, string(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Body:         body,
	})
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	var err error
	if s.ch != nil {
		err = multierr.Append(err, s.ch.Close())
	}
	if s.conn != nil {
		err = multierr.Append(err, s.conn.Close())
	}
	return err
}

func exchangeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultExchange
	}
	return strings.TrimSpace(name)
}
