// Package bus provides tenant-scoped event buses over Go channels or NATS.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/clauseguard/internal/domain"
)

// MetaReplyTo carries the topic a request expects its reply on.
const MetaReplyTo = "reply_to"

const defaultRequestTimeout = 30 * time.Second

var (
	ErrTenantRequired = errors.New("tenantID is required")
	ErrClosed         = errors.New("bus is closed")
	ErrNoReplyTopic   = errors.New("message has no reply topic")
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// Reply answers a message received from Request. The reply is published
// on the requester's tenant.
func Reply(ctx context.Context, b domain.EventBus, msg *domain.Message, payload []byte) error {
	topic := msg.Metadata[MetaReplyTo]
	if topic == "" {
		return ErrNoReplyTopic
	}
	return b.Publish(ctx, msg.TenantID, topic, payload)
}

func newMessage(tenantID, topic string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
}

func replyTopic(topic string) string {
	return topic + ".reply." + uuid.New().String()
}

func requestTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return defaultRequestTimeout
}
