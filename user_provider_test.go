package auth_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-starter"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	activeUser := func() *auth.User {
		u := testUser()
		u.PasswordHash = hash
		return u
	}

	t.Run("Successful verification", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)
		user := activeUser()

		finder.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "test@example.com", identity.Email())
		assert.Equal(t, "admin", identity.Role())

		finder.AssertExpectations(t)
	})

	t.Run("Invalid password", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)

		finder.On("GetByEmail", ctx, "test@example.com").Return(activeUser(), nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")
		assert.Nil(t, identity)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCreds))
	})

	t.Run("User not found", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)

		finder.On("GetByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrUserNotFound).Once()

		identity, err := provider.VerifyIdentity(ctx, "ghost@example.com", "password123")
		assert.Nil(t, identity)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCreds))
	})

	t.Run("Inactive user with correct password", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)
		user := activeUser()
		user.IsActive = false

		finder.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCreds))
	})

	t.Run("Store failure", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)

		finder.On("GetByEmail", ctx, mock.Anything).Return(nil, fmt.Errorf("connection refused")).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		require.Error(t, err)
		assert.False(t, auth.HasTextCode(err, auth.TextCodeInvalidCreds))
		assert.Equal(t, 500, auth.StatusCode(err))
	})

	t.Run("Invalid role", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)
		user := activeUser()
		user.Role = "root"

		finder.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		assert.True(t, auth.HasTextCode(err, "INVALID_ROLE"))
	})

	t.Run("Custom validator", func(t *testing.T) {
		finder := new(MockUserFinder)
		provider := auth.NewUserProvider(finder)
		provider.Validator = func(*auth.User) error { return auth.ErrForbidden }

		finder.On("GetByEmail", ctx, "test@example.com").Return(activeUser(), nil).Once()

		_, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	tests := []struct {
		name     string
		user     *auth.User
		err      error
		textCode string
	}{
		{name: "active user", user: user},
		{name: "missing user", err: auth.ErrUserNotFound, textCode: auth.TextCodeUserInactive},
		{name: "invalid id", err: auth.ErrInvalidUserID, textCode: auth.TextCodeUserInactive},
		{name: "inactive user", user: &auth.User{ID: user.ID, Role: auth.RoleUser}, textCode: auth.TextCodeUserInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := new(MockUserFinder)
			provider := auth.NewUserProvider(finder)

			if tt.user != nil {
				finder.On("GetByID", ctx, user.ID.String()).Return(tt.user, nil).Once()
			} else {
				finder.On("GetByID", ctx, user.ID.String()).Return(nil, tt.err).Once()
			}

			identity, err := provider.FindIdentityByIdentifier(ctx, user.ID.String())
			if tt.textCode == "" {
				require.NoError(t, err)
				assert.Equal(t, user.ID.String(), identity.ID())
				return
			}
			assert.Nil(t, identity)
			assert.True(t, auth.HasTextCode(err, tt.textCode))
		})
	}
}
