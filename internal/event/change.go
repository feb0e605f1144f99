// Package event decodes change-data-capture envelopes into typed change
// events and dispatches them to the registered propagation handlers.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a change event by which states are present.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// ErrEmptyChange is returned when both old and new states are absent.
// Such envelopes are invalid input and must not be retried.
var ErrEmptyChange = errors.New("change event has neither old nor new state")

// Change is a decoded change event for one entity instance. The Kind is
// derived once at the envelope boundary; handlers switch on it instead of
// re-checking pointer presence.
//
// Invariants: Created has New only, Deleted has Old only, Updated has both.
type Change[T any] struct {
	Kind Kind
	Old  *T
	New  *T
}

// Current returns the most recent known state: New when present, else Old.
func (c Change[T]) Current() *T {
	if c.New != nil {
		return c.New
	}
	return c.Old
}

// NewChange builds a Change from optional old/new states.
// Returns ErrEmptyChange when both are nil.
func NewChange[T any](oldState, newState *T) (Change[T], error) {
	switch {
	case oldState == nil && newState == nil:
		return Change[T]{}, ErrEmptyChange
	case oldState == nil:
		return Change[T]{Kind: KindCreated, New: newState}, nil
	case newState == nil:
		return Change[T]{Kind: KindDeleted, Old: oldState}, nil
	default:
		return Change[T]{Kind: KindUpdated, Old: oldState, New: newState}, nil
	}
}

// Created builds a creation Change carrying only the new state.
// Used by the backfill driver to synthesize events from persisted rows.
func Created[T any](newState *T) Change[T] {
	return Change[T]{Kind: KindCreated, New: newState}
}

// Envelope is the wire shape of a CDC notification as delivered by the event
// system: an entity type selecting the handler and one old/new state pair.
type Envelope struct {
	EntityType string `json:"entityType"`
	Detail     struct {
		Data struct {
			Old json.RawMessage `json:"old,omitempty"`
			New json.RawMessage `json:"new,omitempty"`
		} `json:"data"`
	} `json:"detail"`
}

// ParseEnvelope decodes raw bytes into an Envelope. The entity type must be
// non-empty; state payloads are decoded later, per entity type.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if env.EntityType == "" {
		return nil, errors.New("envelope: missing entityType")
	}
	return &env, nil
}

// DecodeChange decodes the envelope's old/new payloads into a typed Change.
// JSON null is treated the same as an absent state.
func DecodeChange[T any](env *Envelope) (Change[T], error) {
	var oldState, newState *T
	if len(env.Detail.Data.Old) > 0 && string(env.Detail.Data.Old) != "null" {
		oldState = new(T)
		if err := json.Unmarshal(env.Detail.Data.Old, oldState); err != nil {
			return Change[T]{}, fmt.Errorf("envelope old state: %w", err)
		}
	}
	if len(env.Detail.Data.New) > 0 && string(env.Detail.Data.New) != "null" {
		newState = new(T)
		if err := json.Unmarshal(env.Detail.Data.New, newState); err != nil {
			return Change[T]{}, fmt.Errorf("envelope new state: %w", err)
		}
	}
	return NewChange(oldState, newState)
}
