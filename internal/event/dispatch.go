package event

import (
	"context"
	"fmt"
)

// HandlerFunc processes one decoded envelope for its entity type.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// Dispatcher routes envelopes to handlers by entity type. Entity types with
// no registered handler are skipped, not failed: the CDC stream carries more
// entity types than this engine propagates.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

// NewDispatcher returns an empty dispatcher. Register handlers before use;
// the dispatcher is not safe for concurrent registration.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to an entity type, replacing any previous binding.
func (d *Dispatcher) Register(entityType string, h HandlerFunc) {
	d.handlers[entityType] = h
}

// Dispatch parses the raw message and invokes the matching handler. Returns
// the envelope's entity type (empty when unparseable) for observability.
// Parse failures and empty changes are returned as *RejectError so the caller
// can divert the message to the dead-letter topic instead of retrying.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) (string, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return "", &RejectError{Reason: err}
	}
	h, ok := d.handlers[env.EntityType]
	if !ok {
		return env.EntityType, nil
	}
	return env.EntityType, h(ctx, env)
}

// RejectError marks an event as malformed: it must be dead-lettered, not
// retried. Handlers return it (wrapping ErrEmptyChange or decode failures)
// when the payload can never become processable.
type RejectError struct {
	Reason error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("event rejected: %v", e.Reason)
}

func (e *RejectError) Unwrap() error { return e.Reason }
