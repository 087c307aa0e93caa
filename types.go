package auth

import (
	"context"
	"time"
)

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetTokenExpiration() time.Duration
	GetRefreshTokenExpiration() time.Duration
	GetBcryptCost() int
	GetUseHashid() bool
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// TokenService issues and validates access tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// UserStore is the persistence contract for user records.
// Implementations must enforce email uniqueness at write time and
// return ErrDuplicateEmail when it is violated.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, user *User) (*User, error)
	UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*User, int, error)
}

// RefreshTokenStore persists hashed refresh tokens
type RefreshTokenStore interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*RefreshToken, error)
	// Revoke reports whether a live token was revoked by this call
	Revoke(ctx context.Context, hash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
}

// RepositoryManager exposes all stores
type RepositoryManager interface {
	Users() UserStore
	RefreshTokens() RefreshTokenStore
	Ping(ctx context.Context) error
}
