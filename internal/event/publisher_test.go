package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codecampus/internal/common/mq"
	"codecampus/internal/event"
	appErr "codecampus/pkg/errors"
)

type capturingProducer struct {
	mu       sync.Mutex
	messages []*mq.Message
	block    chan struct{}
}

func (p *capturingProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return nil
}

func (p *capturingProducer) published() []*mq.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*mq.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

func TestPublisher_DeliversEnvelope(t *testing.T) {
	producer := &capturingProducer{}
	pub, err := event.NewPublisher(producer, event.PublisherConfig{Topic: "events"})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	data := event.SubmissionCreateData{SubmissionID: "s1", UserID: 1, ProblemID: 2, Verdict: "AC"}
	if err := pub.Publish(context.Background(), event.ActionSubmissionCreate, data, "s1"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	pub.Close()

	messages := producer.published()
	if len(messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(messages))
	}
	if messages[0].ID != "s1" {
		t.Errorf("message ID = %q, want s1 (partition key is the request id)", messages[0].ID)
	}
	env, err := event.DecodeEnvelope(messages[0].Body)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	if env.Action != event.ActionSubmissionCreate || env.RequestID != "s1" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestPublisher_RejectsWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	producer := &capturingProducer{block: block}
	pub, err := event.NewPublisher(producer, event.PublisherConfig{
		Topic:      "events",
		BufferSize: 1,
	})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	data := event.AnswerQuestionData{VideoID: "v1", InteractiveID: 1, UserID: 1}

	// First publish is picked up by the blocked worker, second fills the
	// buffer; a third must be rejected immediately.
	var rejected error
	for i := 0; i < 3; i++ {
		if err := pub.Publish(context.Background(), event.ActionAnswerQuestion, data, "r1"); err != nil {
			rejected = err
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if rejected == nil {
		t.Fatal("expected PublishBufferFull rejection")
	}
	if got := appErr.GetCode(rejected); got != appErr.PublishBufferFull {
		t.Errorf("code = %v, want %v", got, appErr.PublishBufferFull)
	}

	close(block)
	pub.Close()
}

func TestPublisher_CloseDrainsBuffer(t *testing.T) {
	producer := &capturingProducer{}
	pub, err := event.NewPublisher(producer, event.PublisherConfig{Topic: "events", BufferSize: 8})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	data := event.AnswerQuestionData{VideoID: "v1", InteractiveID: 1, UserID: 1}
	for i := 0; i < 5; i++ {
		if err := pub.Publish(context.Background(), event.ActionAnswerQuestion, data, "r1"); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	pub.Close()

	if got := len(producer.published()); got != 5 {
		t.Errorf("published %d messages after Close, want 5", got)
	}
}

func TestNewPublisher_Validation(t *testing.T) {
	if _, err := event.NewPublisher(nil, event.PublisherConfig{Topic: "t"}); err == nil {
		t.Error("expected error for nil producer")
	}
	if _, err := event.NewPublisher(&capturingProducer{}, event.PublisherConfig{}); err == nil {
		t.Error("expected error for missing topic")
	}
}
