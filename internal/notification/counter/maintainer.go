// Package counter maintains the per-(user, student) unread notification
// counters from notification record change events.
package counter

import (
	"context"
	"fmt"
	"log"

	"classtrack-sync/backend/internal/event"
	"classtrack-sync/backend/internal/notification/domain"
	userdomain "classtrack-sync/backend/internal/user/domain"
)

// EntityType is the CDC entity type this maintainer consumes.
const EntityType = "notification"

// UserRepo is the minimal user access needed by the counter maintainer.
// Increment and Decrement must be atomic at the storage layer so concurrent
// deliveries for the same (user, student) key cannot race a read-then-write.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	IncrementCounter(ctx context.Context, userID, studentID string) error
	DecrementCounter(ctx context.Context, userID, studentID string) error
}

// Maintainer applies notification record transitions to user counters.
type Maintainer struct {
	users UserRepo
}

// NewMaintainer wires the maintainer's user collaborator.
func NewMaintainer(users UserRepo) *Maintainer {
	return &Maintainer{users: users}
}

// HandleEnvelope decodes the envelope and applies the transition. Registered
// with the dispatcher under EntityType.
func (m *Maintainer) HandleEnvelope(ctx context.Context, env *event.Envelope) error {
	change, err := event.DecodeChange[domain.Record](env)
	if err != nil {
		return &event.RejectError{Reason: err}
	}
	return m.Handle(ctx, change)
}

// Handle applies one record transition, keyed on userId presence:
//
//	old userId | new userId | action
//	absent     | absent     | no-op (invalid, ignore)
//	present    | absent     | decrement, floor at 0, prune at 0 unless awaiting
//	absent     | present    | increment (creates the entry at 1)
//	present    | present    | increment (reinstated record)
//
// A record whose owning user no longer exists is a silent no-op: records can
// outlive their user during migrations.
func (m *Maintainer) Handle(ctx context.Context, change event.Change[domain.Record]) error {
	oldID, newID := ownerIDs(change)
	switch {
	case oldID == "" && newID == "":
		log.Printf("notification counter: event carries no userId, ignored")
		return nil
	case newID == "":
		return m.apply(ctx, oldID, change.Old.StudentID, m.users.DecrementCounter, "decrement")
	default:
		return m.apply(ctx, newID, change.New.StudentID, m.users.IncrementCounter, "increment")
	}
}

func (m *Maintainer) apply(ctx context.Context, userID, studentID string, op func(context.Context, string, string) error, name string) error {
	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("notification counter: %w", err)
	}
	if u == nil {
		log.Printf("notification counter: user %s not found, %s skipped", userID, name)
		return nil
	}
	if err := op(ctx, userID, studentID); err != nil {
		return fmt.Errorf("notification counter: %s for %s/%s: %w", name, userID, studentID, err)
	}
	return nil
}

func ownerIDs(change event.Change[domain.Record]) (oldID, newID string) {
	if change.Old != nil {
		oldID = change.Old.UserID
	}
	if change.New != nil {
		newID = change.New.UserID
	}
	return oldID, newID
}
