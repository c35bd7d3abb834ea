// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/user"
)

// Store is the port interface for database operations.
type Store interface {
	// Events
	CreateEvent(ctx context.Context, ev *event.GameEvent) error
	GetEvent(ctx context.Context, id string) (*event.GameEvent, error)
	ListEvents(ctx context.Context, q event.Query, viewer *user.User) ([]event.GameEvent, int, error)
	DeleteEvent(ctx context.Context, id string) error

	// UpdateEventGuarded applies change to one event as a single atomic
	// conditional update: every guard predicate (expected version, observed
	// channel statuses) must still match the stored row, the version is
	// incremented by exactly one, updated_at is refreshed, and the audit
	// append (if any) lands in the same statement. It returns the updated
	// row, domain.ErrConflict when the guard does not match, or
	// domain.ErrNotFound when the event was deleted.
	UpdateEventGuarded(ctx context.Context, id string, guard event.Guard, change event.Change) (*event.GameEvent, error)

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	// Refresh tokens
	StoreRefreshToken(ctx context.Context, rt user.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*user.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldHash string, next user.RefreshToken) error
	DeleteRefreshTokens(ctx context.Context, userID string) error
}
