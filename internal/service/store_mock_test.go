package service

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

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory implementation of database.Store. Its guarded
// update enforces the same version/status preconditions as the SQL adapter
// so conflict behavior can be exercised in tests.
type mockStore struct {
	mu     sync.Mutex
	events map[string]*event.GameEvent
	users  map[string]*user.User
	tokens map[string]user.RefreshToken

	getEventErr error
	updateErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		events: make(map[string]*event.GameEvent),
		users:  make(map[string]*user.User),
		tokens: make(map[string]user.RefreshToken),
	}
}

func copyEvent(ev *event.GameEvent) *event.GameEvent {
	out := *ev
	out.History = append([]review.Record(nil), ev.History...)
	return &out
}

func (m *mockStore) CreateEvent(_ context.Context, ev *event.GameEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = copyEvent(ev)
	return nil
}

func (m *mockStore) GetEvent(_ context.Context, id string) (*event.GameEvent, error) {
	if m.getEventErr != nil {
		return nil, m.getEventErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("get event %s: %w", id, domain.ErrNotFound)
	}
	return copyEvent(ev), nil
}

func (m *mockStore) ListEvents(_ context.Context, _ event.Query, _ *user.User) ([]event.GameEvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.GameEvent
	for _, ev := range m.events {
		out = append(out, *copyEvent(ev))
	}
	return out, len(out), nil
}

func (m *mockStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("delete event %s: %w", id, domain.ErrNotFound)
	}
	delete(m.events, id)
	return nil
}

func (m *mockStore) UpdateEventGuarded(_ context.Context, id string, guard event.Guard, change event.Change) (*event.GameEvent, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
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
	return copyEvent(ev), nil
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockStore) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockStore) StoreRefreshToken(_ context.Context, rt user.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[rt.TokenHash] = rt
	return nil
}

func (m *mockStore) GetRefreshTokenByHash(_ context.Context, hash string) (*user.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rt, nil
}

func (m *mockStore) RotateRefreshToken(_ context.Context, oldHash string, next user.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[oldHash]; !ok {
		return domain.ErrConflict
	}
	delete(m.tokens, oldHash)
	m.tokens[next.TokenHash] = next
	return nil
}

func (m *mockStore) DeleteRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, rt := range m.tokens {
		if rt.UserID == userID {
			delete(m.tokens, hash)
		}
	}
	return nil
}
