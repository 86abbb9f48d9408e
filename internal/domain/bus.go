package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `mapstructure:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `mapstructure:"channel_buffer_size"`

	// NATS settings (Pro tier)
	NATSUrl           string `mapstructure:"nats_url"`
	NATSToken         string `mapstructure:"nats_token"`
	NATSMaxReconnects int    `mapstructure:"nats_max_reconnects"`
	NATSReconnectWait int    `mapstructure:"nats_reconnect_wait"` // seconds
}

// ContractSubmission is the payload of a contract.submitted event.
type ContractSubmission struct {
	AssessmentID string       `json:"assessmentId"`
	Text         string       `json:"text"`
	Company      Company      `json:"company"`
	ContractType ContractType `json:"contractType"`
	Value        *Money       `json:"value,omitempty"`
}

// AssessmentEvent is the payload of assessment.completed and assessment.alert.
type AssessmentEvent struct {
	AssessmentID    string          `json:"assessmentId"`
	ContractType    ContractType    `json:"contractType"`
	OverallScore    float64         `json:"overallScore"`
	RiskLevel       Severity        `json:"riskLevel"`
	ComplianceLevel ComplianceLevel `json:"complianceLevel"`
	ComplianceScore float64         `json:"complianceScore"`
	KeyConcerns     []string        `json:"keyConcerns,omitempty"`

	// Reasons is set on assessment.alert only: the High and Critical
	// violations that raised it.
	Reasons []string `json:"reasons,omitempty"`
}
