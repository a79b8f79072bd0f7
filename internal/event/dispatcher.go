package event

import (
	"context"
	"fmt"

	"codecampus/internal/common/mq"
	appErr "codecampus/pkg/errors"
	"codecampus/pkg/utils/logger"

	"go.uber.org/zap"
)

// Handler processes one decoded envelope. Returning nil acknowledges the
// message. A permanent error (see pkg/errors) is logged and acknowledged;
// anything else propagates to the broker layer's bounded retry path.
type Handler func(ctx context.Context, env *Envelope) error

// Dispatcher routes envelopes to handlers by action tag. Adding an action
// is a table insertion via Register, not a branch edit.
type Dispatcher struct {
	handlers map[Action]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Action]Handler)}
}

// Register binds an action to a handler. Rebinding an action is a
// programming error.
func (d *Dispatcher) Register(action Action, handler Handler) error {
	if action == "" {
		return fmt.Errorf("action is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	if _, exists := d.handlers[action]; exists {
		return fmt.Errorf("handler for action %q already registered", action)
	}
	d.handlers[action] = handler
	return nil
}

// HandleMessage adapts the dispatcher to the broker's handler signature.
//
// Acknowledge-and-drop cases, in order:
//   - structurally malformed envelope: requeueing can never succeed and
//     would poison the subscription, so it is logged and dropped;
//   - unknown action: newer producers may emit actions this consumer does
//     not understand yet, logged and dropped;
//   - permanent handler failure (validation, missing entity): logged and
//     dropped.
//
// Transient handler failures return the error so the broker layer applies
// its bounded retry and dead-letter policy.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return nil
	}
	env, err := DecodeEnvelope(msg.Body)
	if err != nil {
		logger.Error(ctx, "dropping malformed envelope",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return nil
	}

	handler, ok := d.handlers[env.Action]
	if !ok {
		logger.Warn(ctx, "dropping envelope with unknown action",
			zap.String("action", string(env.Action)),
			zap.String("request_id", env.RequestID))
		return nil
	}

	if err := handler(ctx, env); err != nil {
		if appErr.IsPermanent(err) {
			logger.Error(ctx, "dropping envelope after permanent handler failure",
				zap.String("action", string(env.Action)),
				zap.String("request_id", env.RequestID),
				zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}
