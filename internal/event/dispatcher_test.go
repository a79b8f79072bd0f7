package event_test

import (
	"context"
	"testing"

	"codecampus/internal/common/mq"
	"codecampus/internal/event"
	appErr "codecampus/pkg/errors"
)

func newMessage(t *testing.T, action event.Action, data interface{}, requestID string) *mq.Message {
	t.Helper()
	env, err := event.NewEnvelope(action, data, requestID)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	body, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	msg := mq.NewMessage(body)
	msg.ID = requestID
	return msg
}

func TestDispatcher_Register(t *testing.T) {
	d := event.NewDispatcher()
	handler := func(ctx context.Context, env *event.Envelope) error { return nil }

	if err := d.Register(event.ActionAnswerQuestion, handler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := d.Register(event.ActionAnswerQuestion, handler); err == nil {
		t.Error("expected error on rebinding an action")
	}
	if err := d.Register("", handler); err == nil {
		t.Error("expected error on empty action")
	}
	if err := d.Register(event.ActionSubmissionCreate, nil); err == nil {
		t.Error("expected error on nil handler")
	}
}

func TestDispatcher_RoutesToHandler(t *testing.T) {
	d := event.NewDispatcher()
	var seen *event.Envelope
	err := d.Register(event.ActionAnswerQuestion, func(ctx context.Context, env *event.Envelope) error {
		seen = env
		return nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	msg := newMessage(t, event.ActionAnswerQuestion, event.AnswerQuestionData{VideoID: "v1", InteractiveID: 1, UserID: 2}, "r1")
	if err := d.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if seen == nil || seen.RequestID != "r1" {
		t.Errorf("handler did not receive envelope, seen = %+v", seen)
	}
}

func TestDispatcher_MalformedEnvelopeAcked(t *testing.T) {
	d := event.NewDispatcher()
	called := false
	_ = d.Register(event.ActionAnswerQuestion, func(ctx context.Context, env *event.Envelope) error {
		called = true
		return nil
	})

	msg := mq.NewMessage([]byte("{not json"))
	if err := d.HandleMessage(context.Background(), msg); err != nil {
		t.Errorf("malformed envelope must be acknowledged, got error %v", err)
	}
	if called {
		t.Error("handler must not run for malformed envelope")
	}
}

func TestDispatcher_UnknownActionAcked(t *testing.T) {
	d := event.NewDispatcher()
	msg := newMessage(t, "FOO", map[string]string{}, "r1")
	if err := d.HandleMessage(context.Background(), msg); err != nil {
		t.Errorf("unknown action must be acknowledged, got error %v", err)
	}
}

func TestDispatcher_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		wantRetry  bool
	}{
		{
			name:       "permanent validation failure acked",
			handlerErr: appErr.ValidationError("userId", "required"),
			wantRetry:  false,
		},
		{
			name:       "permanent missing entity acked",
			handlerErr: appErr.New(appErr.VideoNotFound),
			wantRetry:  false,
		},
		{
			name:       "transient database failure retried",
			handlerErr: appErr.New(appErr.DatabaseError),
			wantRetry:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := event.NewDispatcher()
			_ = d.Register(event.ActionAnswerQuestion, func(ctx context.Context, env *event.Envelope) error {
				return tt.handlerErr
			})
			msg := newMessage(t, event.ActionAnswerQuestion, event.AnswerQuestionData{VideoID: "v1", InteractiveID: 1, UserID: 2}, "r1")

			err := d.HandleMessage(context.Background(), msg)
			if tt.wantRetry && err == nil {
				t.Error("transient failure must propagate for retry")
			}
			if !tt.wantRetry && err != nil {
				t.Errorf("permanent failure must be acknowledged, got %v", err)
			}
		})
	}
}

func TestDispatcher_NilMessage(t *testing.T) {
	d := event.NewDispatcher()
	if err := d.HandleMessage(context.Background(), nil); err != nil {
		t.Errorf("HandleMessage(nil) error = %v", err)
	}
}
