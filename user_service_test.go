package auth_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-starter"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, auth.DefaultPage, auth.DefaultLimit},
		{-3, 5, auth.DefaultPage, 5},
		{2, 1000, 2, auth.MaxLimit},
		{3, 25, 3, 25},
		{math.MaxInt, 10, math.MaxInt / 10, 10},
		{math.MaxInt, 0, math.MaxInt / auth.DefaultLimit, auth.DefaultLimit},
		{math.MaxInt, 1, math.MaxInt, 1},
	}

	for _, tt := range tests {
		page, limit := auth.NormalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantLimit, limit)
		assert.GreaterOrEqual(t, (page-1)*limit, 0)
	}
}

func TestUserServiceListHugePage(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := auth.NewUserService(repo)
	createUser(t, repo, "Ada", "ada@example.com", "secret1", auth.RoleUser)

	page, err := svc.List(ctx, math.MaxInt, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Equal(t, math.MaxInt/10, page.Pagination.CurrentPage)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	assert.Equal(t, 1, page.Pagination.TotalUsers)
	assert.False(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPrevPage)
}

func TestUserServiceList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := auth.NewUserService(repo)

	page, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Equal(t, auth.Pagination{CurrentPage: 1}, page.Pagination)

	for i := 0; i < 5; i++ {
		createUser(t, repo, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), "secret1", auth.RoleUser)
	}

	page, err = svc.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, auth.Pagination{
		CurrentPage: 2,
		TotalPages:  3,
		TotalUsers:  5,
		HasNextPage: true,
		HasPrevPage: true,
	}, page.Pagination)

	page, err = svc.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)
	assert.False(t, page.Pagination.HasNextPage)

	page, err = svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Users, 5)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestUserServiceGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := auth.NewUserService(repo)
	user := createUser(t, repo, "Ada", "ada@example.com", "secret1", auth.RoleUser)

	got, err := svc.Get(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.Get(ctx, "bad-id")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidUserID))

	_, err = svc.Get(ctx, "2f1e1b8c-3c44-4a8e-9d1f-5b2c7e0a9d10")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))
}

func TestUserServiceUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &recordingSink{}
	svc := auth.NewUserService(repo).WithActivitySink(sink)
	user := createUser(t, repo, "Ada", "ada@example.com", "secret1", auth.RoleUser)

	updated, err := svc.UpdateProfile(ctx, auth.UpdateProfileMessage{UserID: user.ID.String(), Name: strPtr("Countess")})
	require.NoError(t, err)
	assert.Equal(t, "Countess", updated.Name)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserUpdated}, sink.Types())
}

func TestUserServiceDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &recordingSink{}
	svc := auth.NewUserService(repo).WithActivitySink(sink)
	auther := auth.NewAuthenticator(repo, newTestConfig())

	admin := createUser(t, repo, "Admin", "admin@example.com", "secret1", auth.RoleAdmin)
	victim := createUser(t, repo, "Victim", "victim@example.com", "secret1", auth.RoleUser)

	session, err := auther.Login(ctx, "victim@example.com", "secret1")
	require.NoError(t, err)

	err = svc.Delete(ctx, admin.ID.String(), admin.ID.String())
	assert.True(t, auth.HasTextCode(err, auth.TextCodeSelfDeletion))

	require.NoError(t, svc.Delete(ctx, admin.ID.String(), victim.ID.String()))

	_, err = svc.Get(ctx, victim.ID.String())
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))

	err = svc.Delete(ctx, admin.ID.String(), victim.ID.String())
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserNotFound))

	token, err := repo.RefreshTokens().GetByHash(ctx, auth.HashRefreshToken(session.RefreshToken))
	require.NoError(t, err)
	assert.NotNil(t, token.RevokedAt)

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserDeleted}, sink.Types())
}
