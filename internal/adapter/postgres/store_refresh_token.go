package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/playsquare/reviewdesk/internal/domain/user"
)

func (s *Store) StoreRefreshToken(ctx context.Context, rt user.RefreshToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		rt.TokenHash, rt.UserID, rt.ExpiresAt, rt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, hash string) (*user.RefreshToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`, hash)

	var rt user.RefreshToken
	if err := row.Scan(&rt.TokenHash, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
		return nil, notFoundWrap(err, "get refresh token")
	}
	return &rt, nil
}

// RotateRefreshToken atomically locks the old token by hash, deletes it, and
// inserts the replacement in a single transaction. The SELECT ... FOR UPDATE
// prevents concurrent rotation of the same token (replay protection).
func (s *Store) RotateRefreshToken(ctx context.Context, oldHash string, next user.RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockRefreshToken(ctx, tx, oldHash); err != nil {
		return fmt.Errorf("lock old token: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, oldHash); err != nil {
		return fmt.Errorf("delete old refresh token: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		next.TokenHash, next.UserID, next.ExpiresAt, next.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert new refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotate: %w", err)
	}
	return nil
}

func lockRefreshToken(ctx context.Context, tx pgx.Tx, hash string) error {
	var found string
	err := tx.QueryRow(ctx,
		`SELECT token_hash FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`, hash).Scan(&found)
	if err != nil {
		return notFoundWrap(err, "refresh token")
	}
	return nil
}

func (s *Store) DeleteRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}
