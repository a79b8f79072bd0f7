package mq

import (
	"context"
	"time"
)

// MessageQueue is the unified interface over the message broker.
// The abstraction keeps producers and consumers independent of the
// concrete broker implementation.
type MessageQueue interface {
	Producer
	Consumer

	// Ping verifies the broker connection is alive
	Ping(ctx context.Context) error

	// Close closes the broker connection
	Close() error
}

// Producer defines the interface for publishing messages
type Producer interface {
	// Publish publishes a message to the specified topic
	Publish(ctx context.Context, topic string, message *Message) error
}

// Consumer defines the interface for consuming messages
type Consumer interface {
	// Subscribe registers a handler for a topic. The handler returns nil to
	// acknowledge the message; a non-nil error triggers the bounded retry and
	// dead-letter path.
	Subscribe(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error

	// Start starts consuming messages for all registered subscriptions
	Start() error

	// Stop gracefully stops consuming messages
	Stop() error
}

// Message represents a message on the broker.
type Message struct {
	// ID identifies the business fact the message announces. It doubles as
	// the broker partition key so redeliveries of the same fact stay ordered.
	ID string `json:"id"`

	// Body is the message payload
	Body []byte `json:"body"`

	// Headers contains metadata about the message
	Headers map[string]string `json:"headers"`

	// Timestamp is when the message was created
	Timestamp time.Time `json:"timestamp"`

	// Retry bookkeeping, managed by the consumer side
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// HandlerFunc is the function signature for message handlers
type HandlerFunc func(ctx context.Context, message *Message) error

// SubscribeOptions defines options for subscribing to a topic
type SubscribeOptions struct {
	// ConsumerGroup is the consumer group name
	ConsumerGroup string `yaml:"consumerGroup"`

	// Concurrency sets the number of concurrent workers
	// Default: 1
	Concurrency int `yaml:"concurrency"`

	// MaxRetries bounds redelivery attempts for failed messages
	// Default: 3
	MaxRetries int `yaml:"maxRetries"`

	// RetryDelay sets the delay between retries
	// Default: 1 second
	RetryDelay time.Duration `yaml:"retryDelay"`

	// DeadLetterTopic is where messages go after max retries
	DeadLetterTopic string `yaml:"deadLetterTopic"`

	// ProcessTimeout bounds a single handler invocation; expiry counts
	// as a transient handler failure
	ProcessTimeout time.Duration `yaml:"processTimeout"`
}

// SetDefaults sets default values for subscribe options
func (o *SubscribeOptions) SetDefaults() {
	if o.Concurrency == 0 {
		o.Concurrency = 1
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
	if o.ProcessTimeout == 0 {
		o.ProcessTimeout = 30 * time.Second
	}
}

// NewMessage creates a new message with the given body
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// GetHeader retrieves a header value
func (m *Message) GetHeader(key string) (string, bool) {
	if m.Headers == nil {
		return "", false
	}
	val, ok := m.Headers[key]
	return val, ok
}
