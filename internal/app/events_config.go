package app

import (
	"strings"

	"github.com/charlesng35/leadflow/internal/events"
)

// SinkConfig converts the AMQP section into the events package representation.
func (c AMQPConfig) SinkConfig() events.AMQPConfig {
	return events.AMQPConfig{
		URL:            strings.TrimSpace(c.URL),
		Exchange:       strings.TrimSpace(c.Exchange),
		PublishTimeout: c.PublishTimeout,
	}
}
