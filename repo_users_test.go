package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-starter"
)

func TestUsersRepositoryCreate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	user := createUser(t, repo, "Ada", "  Ada@Example.com ", "secret1", auth.RoleUser)
	assert.Equal(t, "ada@example.com", user.Email)

	dup := auth.NewUser("Other", "ADA@example.com", "hash")
	_, err := repo.Users().Create(ctx, dup)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeDuplicateEmail))

	byEmail, err := repo.Users().GetByEmail(ctx, "ADA@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.NotEmpty(t, byEmail.PasswordHash)
	assert.True(t, byEmail.IsActive)

	byID, err := repo.Users().GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)
	assert.Equal(t, auth.RoleUser, byID.Role)
}

func TestUsersRepositoryLookupErrors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Users().GetByID(ctx, "not-a-uuid")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidUserID))

	_, err = repo.Users().GetByID(ctx, uuid.NewString())
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))

	_, err = repo.Users().GetByEmail(ctx, "nobody@example.com")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))

	err = repo.Users().Delete(ctx, uuid.NewString())
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))

	name := "Nobody"
	_, err = repo.Users().UpdateProfile(ctx, uuid.NewString(), auth.ProfileChanges{Name: &name})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))
}

func TestUsersRepositoryEmailTaken(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ada := createUser(t, repo, "Ada", "ada@example.com", "secret1", auth.RoleUser)

	taken, err := repo.Users().EmailTaken(ctx, "ADA@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.Users().EmailTaken(ctx, "ada@example.com", ada.ID.String())
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.Users().EmailTaken(ctx, "grace@example.com", "")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUsersRepositoryUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ada := createUser(t, repo, "Ada", "ada@example.com", "secret1", auth.RoleUser)
	createUser(t, repo, "Grace", "grace@example.com", "secret1", auth.RoleUser)

	email := "grace@example.com"
	_, err := repo.Users().UpdateProfile(ctx, ada.ID.String(), auth.ProfileChanges{Email: &email})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeEmailTaken))

	name := " Countess "
	updated, err := repo.Users().UpdateProfile(ctx, ada.ID.String(), auth.ProfileChanges{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Countess", updated.Name)
	assert.Equal(t, "ada@example.com", updated.Email)
	assert.False(t, updated.UpdatedAt.Before(ada.UpdatedAt))
}

func TestUsersRepositoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Now().UTC().Add(-time.Hour)
	emails := []string{"first@example.com", "second@example.com", "third@example.com"}
	for i, email := range emails {
		user := auth.NewUser("User", email, "hash")
		user.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Users().Create(ctx, user)
		require.NoError(t, err)
	}

	records, total, err := repo.Users().List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "third@example.com", records[0].Email)
	assert.Equal(t, "second@example.com", records[1].Email)

	records, total, err = repo.Users().List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 1)
	assert.Equal(t, "first@example.com", records[0].Email)

	require.NoError(t, repo.Users().Delete(ctx, records[0].ID.String()))

	_, total, err = repo.Users().List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRefreshTokensRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := createUser(t, repo, "Ada", "ada@example.com", "secret1", auth.RoleUser)
	store := repo.RefreshTokens()

	_, hash, err := auth.NewRefreshTokenValue()
	require.NoError(t, err)
	_, otherHash, err := auth.NewRefreshTokenValue()
	require.NoError(t, err)

	expires := time.Now().UTC().Add(time.Hour)
	token := &auth.RefreshToken{UserID: user.ID, TokenHash: hash, ExpiresAt: expires}
	require.NoError(t, store.Create(ctx, token))
	assert.NotEqual(t, uuid.Nil, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	require.NoError(t, store.Create(ctx, &auth.RefreshToken{UserID: user.ID, TokenHash: otherHash, ExpiresAt: expires}))

	got, err := store.GetByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.True(t, got.Usable(time.Now()))

	_, err = store.GetByHash(ctx, auth.HashRefreshToken("unknown"))
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidRefreshToken))

	revoked, err := store.Revoke(ctx, hash)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.Revoke(ctx, hash)
	require.NoError(t, err)
	assert.False(t, revoked, "already revoked")

	revoked, err = store.Revoke(ctx, auth.HashRefreshToken("unknown"))
	require.NoError(t, err)
	assert.False(t, revoked)

	got, err = store.GetByHash(ctx, hash)
	require.NoError(t, err)
	assert.False(t, got.Usable(time.Now()))

	require.NoError(t, store.RevokeAllForUser(ctx, user.ID.String()))
	got, err = store.GetByHash(ctx, otherHash)
	require.NoError(t, err)
	assert.NotNil(t, got.RevokedAt)

	assert.Error(t, store.RevokeAllForUser(ctx, "bad-id"))
}

func TestRepositoryManagerPing(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.Ping(ctx), context.Canceled)
}
