package http

import (
	"context"
	"fmt"
	"sync"

	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/domain/user"
	"github.com/playsquare/reviewdesk/internal/port/database"
)

var _ database.Store = (*fakeStore)(nil)

// fakeStore is an in-memory database.Store for handler tests. Its guarded
// update honors version and status preconditions so conflict responses can be
// exercised end to end.
type fakeStore struct {
	mu     sync.Mutex
	events map[string]*event.GameEvent
	users  map[string]*user.User
	tokens map[string]user.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: make(map[string]*event.GameEvent),
		users:  make(map[string]*user.User),
		tokens: make(map[string]user.RefreshToken),
	}
}

func cloneEvent(ev *event.GameEvent) *event.GameEvent {
	out := *ev
	out.History = append([]review.Record(nil), ev.History...)
	return &out
}

func (f *fakeStore) CreateEvent(_ context.Context, ev *event.GameEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[ev.ID] = cloneEvent(ev)
	return nil
}

func (f *fakeStore) GetEvent(_ context.Context, id string) (*event.GameEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("get event %s: %w", id, domain.ErrNotFound)
	}
	return cloneEvent(ev), nil
}

func (f *fakeStore) ListEvents(_ context.Context, _ event.Query, viewer *user.User) ([]event.GameEvent, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.GameEvent
	for _, ev := range f.events {
		if event.CanRead(viewer, ev) {
			out = append(out, *cloneEvent(ev))
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return fmt.Errorf("delete event %s: %w", id, domain.ErrNotFound)
	}
	delete(f.events, id)
	return nil
}

func (f *fakeStore) UpdateEventGuarded(_ context.Context, id string, guard event.Guard, change event.Change) (*event.GameEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if guard.ExpectedVersion != nil && ev.Version != *guard.ExpectedVersion {
		return nil, domain.ErrConflict
	}
	for _, g := range guard.Statuses {
		if ev.Statuses.Status(g.Channel) != g.Status {
			return nil, domain.ErrConflict
		}
	}

	if change.Name != nil {
		ev.Name = *change.Name
	}
	if change.Description != nil {
		ev.Description = *change.Description
	}
	if change.StartAt != nil {
		ev.StartAt = *change.StartAt
	}
	if change.EndAt != nil {
		ev.EndAt = *change.EndAt
	}
	if change.Confidential != nil {
		ev.Confidential = *change.Confidential
	}
	if change.Reviewers != nil {
		ev.Reviewers = *change.Reviewers
	}
	for _, sc := range change.Statuses {
		ev.Statuses.SetStatus(sc.Channel, sc.Status)
	}
	for _, rc := range change.ReviewedAt {
		ev.ReviewedAt.SetAt(rc.Channel, rc.At)
	}
	if change.FinalStatus != nil {
		ev.FinalStatus = *change.FinalStatus
	}
	if change.SetApprovedAt {
		ev.ApprovedAt = change.ApprovedAt
	}
	if change.Append != nil {
		ev.History = append(ev.History, *change.Append)
	}
	ev.Version++
	return cloneEvent(ev), nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListUsers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeStore) StoreRefreshToken(_ context.Context, rt user.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[rt.TokenHash] = rt
	return nil
}

func (f *fakeStore) GetRefreshTokenByHash(_ context.Context, hash string) (*user.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.tokens[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rt, nil
}

func (f *fakeStore) RotateRefreshToken(_ context.Context, oldHash string, next user.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[oldHash]; !ok {
		return domain.ErrConflict
	}
	delete(f.tokens, oldHash)
	f.tokens[next.TokenHash] = next
	return nil
}

func (f *fakeStore) DeleteRefreshTokens(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, rt := range f.tokens {
		if rt.UserID == userID {
			delete(f.tokens, hash)
		}
	}
	return nil
}
