package client_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/client"
)

func TestReduce(t *testing.T) {
	user := &auth.UserView{ID: "1", Email: "a@b.co"}

	cases := []struct {
		name   string
		state  client.State
		action client.Action
		want   client.State
	}{
		{
			name:   "start clears error",
			state:  client.State{Status: client.StatusError, Error: "boom"},
			action: client.Action{Type: client.ActionStart},
			want:   client.State{Status: client.StatusAuthenticating},
		},
		{
			name:   "success sets user",
			state:  client.State{Status: client.StatusAuthenticating},
			action: client.Action{Type: client.ActionSuccess, User: user},
			want:   client.State{Status: client.StatusAuthenticated, User: user},
		},
		{
			name:   "error drops user",
			state:  client.State{Status: client.StatusAuthenticated, User: user},
			action: client.Action{Type: client.ActionError, Error: "Invalid credentials"},
			want:   client.State{Status: client.StatusError, Error: "Invalid credentials"},
		},
		{
			name:   "logout",
			state:  client.State{Status: client.StatusAuthenticated, User: user},
			action: client.Action{Type: client.ActionLogout},
			want:   client.State{Status: client.StatusAnonymous},
		},
		{
			name:   "clear error from error state",
			state:  client.State{Status: client.StatusError, Error: "boom"},
			action: client.Action{Type: client.ActionClearError},
			want:   client.State{Status: client.StatusAnonymous},
		},
		{
			name:   "clear error keeps authenticated user",
			state:  client.State{Status: client.StatusAuthenticated, User: user},
			action: client.Action{Type: client.ActionClearError},
			want:   client.State{Status: client.StatusAuthenticated, User: user},
		},
		{
			name:   "unknown action",
			state:  client.State{Status: client.StatusAuthenticated, User: user},
			action: client.Action{Type: "NOPE"},
			want:   client.State{Status: client.StatusAuthenticated, User: user},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, client.Reduce(tc.state, tc.action))
		})
	}
}

func authResult() *auth.AuthResult {
	return &auth.AuthResult{
		User:         auth.UserView{ID: "42", Name: "Ada", Email: "ada@example.com", Role: auth.RoleUser, IsActive: true},
		Token:        "access",
		RefreshToken: "refresh",
	}
}

func recordStates(c *client.Context) *[]client.Status {
	var seen []client.Status
	c.Subscribe(func(s client.State) { seen = append(seen, s.Status) })
	return &seen
}

func TestContextLogin(t *testing.T) {
	ctx := context.Background()
	api := new(MockAuthAPI)
	store := client.NewMemoryStore()
	session := client.NewContext(api, store)
	seen := recordStates(session)

	api.On("Login", ctx, "ada@example.com", "secret1").Return(authResult(), nil)

	require.NoError(t, session.Login(ctx, "ada@example.com", "secret1"))

	state := session.State()
	assert.True(t, state.IsAuthenticated())
	assert.Equal(t, "ada@example.com", state.User.Email)
	assert.Equal(t, []client.Status{client.StatusAuthenticating, client.StatusAuthenticated}, *seen)

	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "access", stored.Token)
	assert.Equal(t, "refresh", stored.RefreshToken)

	api.AssertExpectations(t)
}

func TestContextLoginFailure(t *testing.T) {
	ctx := context.Background()
	api := new(MockAuthAPI)
	session := client.NewContext(api, nil)

	apiErr := errors.New("Invalid credentials", errors.CategoryAuth).WithCode(http.StatusUnauthorized)
	api.On("Login", ctx, "ada@example.com", "wrong").Return(nil, apiErr)

	err := session.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.StatusOf(err))

	state := session.State()
	assert.Equal(t, client.StatusError, state.Status)
	assert.Equal(t, "Invalid credentials", state.Error)
	assert.Nil(t, state.User)

	session.ClearError()
	assert.Equal(t, client.State{Status: client.StatusAnonymous}, session.State())
}

func TestContextRegister(t *testing.T) {
	ctx := context.Background()
	api := new(MockAuthAPI)
	session := client.NewContext(api, nil)

	req := client.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"}
	api.On("Register", ctx, req).Return(authResult(), nil)

	require.NoError(t, session.Register(ctx, req))
	assert.True(t, session.State().IsAuthenticated())
	api.AssertExpectations(t)
}

func TestContextHydrate(t *testing.T) {
	store := client.NewMemoryStore()
	session := client.NewContext(new(MockAuthAPI), store)

	require.NoError(t, session.Hydrate())
	assert.Equal(t, client.StatusAnonymous, session.State().Status)

	require.NoError(t, store.Set(client.SessionFromResult(authResult())))
	require.NoError(t, session.Hydrate())
	assert.True(t, session.State().IsAuthenticated())
	assert.Equal(t, "42", session.State().User.ID)
}

func TestContextLogoutClearsOnServerFailure(t *testing.T) {
	ctx := context.Background()
	api := new(MockAuthAPI)
	store := client.NewMemoryStore()
	require.NoError(t, store.Set(client.SessionFromResult(authResult())))

	session := client.NewContext(api, store)
	require.NoError(t, session.Hydrate())

	api.On("Logout", ctx, "refresh").Return(errors.New("Server error during logout", errors.CategoryInternal))

	err := session.Logout(ctx)
	assert.Error(t, err)

	assert.Equal(t, client.StatusAnonymous, session.State().Status)
	stored, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, stored)
	api.AssertExpectations(t)
}

func TestContextRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates tokens", func(t *testing.T) {
		api := new(MockAuthAPI)
		store := client.NewMemoryStore()
		require.NoError(t, store.Set(client.SessionFromResult(authResult())))
		session := client.NewContext(api, store)

		next := authResult()
		next.Token = "access-2"
		next.RefreshToken = "refresh-2"
		api.On("Refresh", ctx, "refresh").Return(next, nil)

		require.NoError(t, session.Refresh(ctx))
		stored, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, "refresh-2", stored.RefreshToken)
		assert.True(t, session.State().IsAuthenticated())
	})

	t.Run("rejected token ends the session", func(t *testing.T) {
		api := new(MockAuthAPI)
		store := client.NewMemoryStore()
		require.NoError(t, store.Set(client.SessionFromResult(authResult())))
		session := client.NewContext(api, store)
		require.NoError(t, session.Hydrate())

		rejected := errors.New("Invalid or expired refresh token", errors.CategoryAuth).WithCode(http.StatusUnauthorized)
		api.On("Refresh", ctx, mock.Anything).Return(nil, rejected)

		assert.Error(t, session.Refresh(ctx))
		assert.Equal(t, client.StatusAnonymous, session.State().Status)
		stored, err := store.Get()
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("no stored token", func(t *testing.T) {
		session := client.NewContext(new(MockAuthAPI), nil)
		err := session.Refresh(ctx)
		require.Error(t, err)
		assert.Equal(t, "No refresh token found", client.ErrorMessage(err))
	})
}

func TestSubscribeUnsubscribe(t *testing.T) {
	session := client.NewContext(new(MockAuthAPI), nil)

	calls := 0
	unsubscribe := session.Subscribe(func(client.State) { calls++ })
	session.Dispatch(client.Action{Type: client.ActionStart})
	unsubscribe()
	session.Dispatch(client.Action{Type: client.ActionLogout})

	assert.Equal(t, 1, calls)
}
