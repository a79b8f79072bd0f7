package event

import (
	"context"
	"sync"
	"time"

	"codecampus/internal/common/mq"
	appErr "codecampus/pkg/errors"
	"codecampus/pkg/utils/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultBufferSize      = 256
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxElapsedTime  = 2 * time.Minute
)

// PublisherConfig controls the outbound buffer and retry behavior.
type PublisherConfig struct {
	Topic string `yaml:"topic"`

	// BufferSize bounds the outbound buffer; a full buffer rejects
	// producers immediately instead of queueing them indefinitely.
	BufferSize int `yaml:"bufferSize"`

	// Retry backoff for a single message when the broker is unreachable.
	InitialInterval time.Duration `yaml:"initialInterval"`
	MaxElapsedTime  time.Duration `yaml:"maxElapsedTime"`
}

// Publisher serializes facts into envelopes and publishes them on a topic.
//
// Publish must be called only after the announced fact is durably
// persisted: the event stream trails the source of truth, never leads it.
// Delivery guarantee: each subscribed consumer receives the envelope at
// least once, eventually, once the broker connection is healthy. A message
// that exhausts its backoff is logged and abandoned here; because the fact
// itself is persisted, a reconciliation sweep can re-announce it later
// (extension point, not implemented).
type Publisher struct {
	producer mq.Producer
	cfg      PublisherConfig

	buf    chan *mq.Message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewPublisher creates a publisher and starts its delivery worker.
func NewPublisher(producer mq.Producer, cfg PublisherConfig) (*Publisher, error) {
	if producer == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("producer is required")
	}
	if cfg.Topic == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("topic is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = defaultMaxElapsedTime
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		producer: producer,
		cfg:      cfg,
		buf:      make(chan *mq.Message, cfg.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	p.wg.Add(1)
	go p.deliverLoop()
	return p, nil
}

// Publish enqueues an envelope for delivery. It never blocks: when the
// outbound buffer is full the caller is rejected with PublishBufferFull.
func (p *Publisher) Publish(ctx context.Context, action Action, data interface{}, requestID string) error {
	env, err := NewEnvelope(action, data, requestID)
	if err != nil {
		return err
	}
	body, err := env.Encode()
	if err != nil {
		return err
	}
	msg := mq.NewMessage(body)
	msg.ID = requestID

	select {
	case p.buf <- msg:
		return nil
	default:
		return appErr.New(appErr.PublishBufferFull).
			WithDetail("topic", p.cfg.Topic).
			WithDetail("request_id", requestID)
	}
}

// Close stops the delivery worker after draining the buffer.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.buf)
		p.wg.Wait()
		p.cancel()
	})
}

func (p *Publisher) deliverLoop() {
	defer p.wg.Done()
	for msg := range p.buf {
		p.deliver(msg)
	}
}

func (p *Publisher) deliver(msg *mq.Message) {
	op := func() error {
		ctx, cancel := context.WithTimeout(p.ctx, 10*time.Second)
		defer cancel()
		return p.producer.Publish(ctx, p.cfg.Topic, msg)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialInterval
	bo.MaxElapsedTime = p.cfg.MaxElapsedTime

	if err := backoff.Retry(op, backoff.WithContext(bo, p.ctx)); err != nil {
		// The fact is already persisted; losing the announcement is
		// recoverable by a reconciliation sweep, so this stays non-fatal.
		logger.Warn(p.ctx, "event publish abandoned after retries",
			zap.String("topic", p.cfg.Topic),
			zap.String("request_id", msg.ID),
			zap.Error(err))
	}
}
