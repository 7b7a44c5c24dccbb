package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// ErrTokenInvalid covers unknown, revoked and expired refresh tokens alike so
// callers cannot probe which one it was.
var ErrTokenInvalid = errors.New("invalid refresh token")

// TokenRepo persists refresh tokens by hash (`refresh_tokens`).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
    _, err := r.DB.ExecContext(ctx,
        "INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
        userID, tokenHash, exp.UTC())
    return err
}

// ValidateRefresh returns the token row if it is neither revoked nor expired
// at now.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (model.RefreshToken, error) {
    var (
        t       model.RefreshToken
        revoked sql.NullTime
    )
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
        tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return t, ErrTokenInvalid
        }
        return t, err
    }
    if revoked.Valid {
        t.RevokedAt = &revoked.Time
        return t, ErrTokenInvalid
    }
    if now.UTC().After(t.ExpiresAt) {
        return t, ErrTokenInvalid
    }
    return t, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
        tokenHash)
    return err
}

// DeleteExpired removes tokens that expired before cutoff and returns how
// many rows went away.
func (r *TokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
