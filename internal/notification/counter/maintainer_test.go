package counter

import (
	"context"
	"sync"
	"testing"

	"classtrack-sync/backend/internal/event"
	"classtrack-sync/backend/internal/notification/domain"
	userdomain "classtrack-sync/backend/internal/user/domain"
)

// memUserRepo mimics the storage-layer counter semantics: atomic upsert on
// increment, floor-at-zero plus prune on decrement.
type memUserRepo struct {
	mu       sync.Mutex
	users    map[string]*userdomain.User
	counters map[string]*userdomain.NotificationCounter
}

func newMemUserRepo(userIDs ...string) *memUserRepo {
	r := &memUserRepo{
		users:    make(map[string]*userdomain.User),
		counters: make(map[string]*userdomain.NotificationCounter),
	}
	for _, id := range userIDs {
		r.users[id] = &userdomain.User{ID: id, Email: id + "@x.com"}
	}
	return r
}

func key(userID, studentID string) string { return userID + "/" + studentID }

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUserRepo) IncrementCounter(ctx context.Context, userID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(userID, studentID)
	if c, ok := r.counters[k]; ok {
		c.Count++
		return nil
	}
	r.counters[k] = &userdomain.NotificationCounter{UserID: userID, StudentID: studentID, Count: 1}
	return nil
}

func (r *memUserRepo) DecrementCounter(ctx context.Context, userID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(userID, studentID)
	c, ok := r.counters[k]
	if !ok {
		return nil
	}
	if c.Count > 0 {
		c.Count--
	}
	if c.Count == 0 && !c.AwaitingResponse {
		delete(r.counters, k)
	}
	return nil
}

func (r *memUserRepo) counter(userID, studentID string) *userdomain.NotificationCounter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[key(userID, studentID)]
}

func record(userID, studentID string) *domain.Record {
	return &domain.Record{UserID: userID, StudentID: studentID}
}

func TestHandle_CreationIncrementsFromZero(t *testing.T) {
	repo := newMemUserRepo("u1")
	m := NewMaintainer(repo)

	change, _ := event.NewChange(nil, record("u1", "s1"))
	if err := m.Handle(context.Background(), change); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	c := repo.counter("u1", "s1")
	if c == nil || c.Count != 1 {
		t.Fatalf("counter = %+v, want count 1", c)
	}
	if c.AwaitingResponse {
		t.Error("new entry must start with awaitingResponse=false")
	}
}

func TestHandle_SecondNotificationIncrements(t *testing.T) {
	repo := newMemUserRepo("u1")
	m := NewMaintainer(repo)

	for range 2 {
		change, _ := event.NewChange(nil, record("u1", "s1"))
		if err := m.Handle(context.Background(), change); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if c := repo.counter("u1", "s1"); c == nil || c.Count != 2 {
		t.Fatalf("counter = %+v, want count 2", c)
	}
}

func TestHandle_ReinstatementIncrements(t *testing.T) {
	repo := newMemUserRepo("u1")
	repo.counters[key("u1", "s1")] = &userdomain.NotificationCounter{UserID: "u1", StudentID: "s1", Count: 1}
	m := NewMaintainer(repo)

	change, _ := event.NewChange(record("u1", "s1"), record("u1", "s1"))
	if err := m.Handle(context.Background(), change); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if c := repo.counter("u1", "s1"); c == nil || c.Count != 2 {
		t.Fatalf("counter = %+v, want count 2", c)
	}
}

func TestHandle_DeletionDecrementRemovesEntry(t *testing.T) {
	repo := newMemUserRepo("u1")
	repo.counters[key("u1", "s1")] = &userdomain.NotificationCounter{UserID: "u1", StudentID: "s1", Count: 1}
	m := NewMaintainer(repo)

	change, _ := event.NewChange(record("u1", "s1"), nil)
	if err := m.Handle(context.Background(), change); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if c := repo.counter("u1", "s1"); c != nil {
		t.Fatalf("counter = %+v, want entry removed at zero", c)
	}
}

func TestHandle_AwaitingResponseKeepsZeroEntry(t *testing.T) {
	repo := newMemUserRepo("u1")
	repo.counters[key("u1", "s1")] = &userdomain.NotificationCounter{
		UserID: "u1", StudentID: "s1", Count: 1, AwaitingResponse: true,
	}
	m := NewMaintainer(repo)

	change, _ := event.NewChange(record("u1", "s1"), nil)
	if err := m.Handle(context.Background(), change); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	c := repo.counter("u1", "s1")
	if c == nil {
		t.Fatal("awaiting-response entry must persist at zero")
	}
	if c.Count != 0 {
		t.Errorf("count = %d, want 0", c.Count)
	}
}

func TestHandle_FloorAtZero(t *testing.T) {
	repo := newMemUserRepo("u1")
	repo.counters[key("u1", "s1")] = &userdomain.NotificationCounter{
		UserID: "u1", StudentID: "s1", Count: 0, AwaitingResponse: true,
	}
	m := NewMaintainer(repo)

	// Redelivered deletions must never drive the count negative.
	for range 3 {
		change, _ := event.NewChange(record("u1", "s1"), nil)
		if err := m.Handle(context.Background(), change); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if c := repo.counter("u1", "s1"); c == nil || c.Count != 0 {
		t.Fatalf("counter = %+v, want count 0", c)
	}
}

func TestHandle_MissingUserIsSilentNoOp(t *testing.T) {
	repo := newMemUserRepo() // no users registered
	m := NewMaintainer(repo)

	change, _ := event.NewChange(nil, record("ghost", "s1"))
	if err := m.Handle(context.Background(), change); err != nil {
		t.Fatalf("Handle: %v (missing user must not fail the event)", err)
	}
	if c := repo.counter("ghost", "s1"); c != nil {
		t.Error("no counter should be created for an unknown user")
	}
}

func TestHandle_NoUserIDOnEitherSide(t *testing.T) {
	repo := newMemUserRepo("u1")
	m := NewMaintainer(repo)

	change, _ := event.NewChange(record("", "s1"), record("", "s1"))
	if err := m.Handle(context.Background(), change); err != nil {
		t.Fatalf("Handle: %v, want silent no-op", err)
	}
	if len(repo.counters) != 0 {
		t.Error("no counters should change for an ownerless event")
	}
}
