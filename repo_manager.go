package auth

import (
	"context"

	"github.com/uptrace/bun"
)

type mngr struct {
	db            *bun.DB
	users         UserStore
	refreshTokens RefreshTokenStore
}

var _ RepositoryManager = (*mngr)(nil)

// NewRepositoryManager wires the bun stores over db
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		refreshTokens: NewRefreshTokensRepository(db),
	}
}

func (m mngr) Users() UserStore {
	return m.users
}

func (m mngr) RefreshTokens() RefreshTokenStore {
	return m.refreshTokens
}

func (m mngr) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.PingContext(ctx)
	}
}
