package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunRefreshTokens is the SQL backed RefreshTokenStore
type BunRefreshTokens struct {
	db bun.IDB
}

var _ RefreshTokenStore = (*BunRefreshTokens)(nil)

// NewRefreshTokensRepository returns a RefreshTokenStore over db
func NewRefreshTokensRepository(db bun.IDB) *BunRefreshTokens {
	return &BunRefreshTokens{db: db}
}

// Create stores a new hashed refresh token
func (r *BunRefreshTokens) Create(ctx context.Context, token *RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.NewInsert().Model(token).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store refresh token")
	}
	return nil
}

// GetByHash finds a token by its hash
func (r *BunRefreshTokens) GetByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", hash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to get refresh token")
	}
	return record, nil
}

// Revoke marks a token as revoked and reports whether this call did it.
// Revoking an unknown or already revoked token returns false, not an error.
func (r *BunRefreshTokens) Revoke(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", time.Now().UTC()).
		Where("token_hash = ?", hash).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}
	return affected > 0, nil
}

// RevokeAllForUser revokes every live token of the user
func (r *BunRefreshTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	uid, err := ParseUserID(userID)
	if err != nil {
		return err
	}

	_, err = r.db.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", time.Now().UTC()).
		Where("user_id = ?", uid).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh tokens")
	}
	return nil
}
