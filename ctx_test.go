package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-starter"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.FromContext(ctx)
	assert.False(t, ok)

	_, ok = auth.FromContext(auth.WithContext(ctx, nil))
	assert.False(t, ok)

	user := testUser()
	got, ok := auth.FromContext(auth.WithContext(ctx, user))
	assert.True(t, ok)
	assert.Same(t, user, got)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.GetClaims(ctx)
	assert.False(t, ok)

	claims := &auth.JWTClaims{UID: "42", UserRole: "admin"}
	got, ok := auth.GetClaims(auth.WithClaimsContext(ctx, claims))
	assert.True(t, ok)
	assert.Equal(t, "42", got.UserID())
}
