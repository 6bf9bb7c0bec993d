package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row bound to a session.
func (r *TokenRepo) StoreRefresh(ctx context.Context, email, sessionID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (email, session_id, token_hash, expires_at) VALUES (?,?,?,?)",
		email, sessionID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the token row if it exists, is not revoked and
// has not expired.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, session_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.Email, &t.SessionID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		return nil, ErrTokenNotFound
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return nil, ErrTokenNotFound
	}
	return &t, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeSession revokes every token issued for one session.
func (r *TokenRepo) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE session_id=? AND revoked_at IS NULL",
		sessionID)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE email=? AND revoked_at IS NULL",
		email)
	return err
}
