package client_test

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/client"
	"github.com/goliatone/go-auth-starter/config"
	"github.com/goliatone/go-auth-starter/persistence"
	"github.com/goliatone/go-auth-starter/server"
)

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String()
}

func startAPI(t *testing.T) (string, auth.RepositoryManager) {
	t.Helper()

	db, driver, err := persistence.Open(persistence.Options{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = persistence.Migrate(context.Background(), db, driver)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Auth.SigningKey = "client-test-signing-key-0123"
	cfg.Auth.BcryptCost = bcrypt.MinCost

	repo := auth.NewRepositoryManager(db)
	srv := server.New(server.Deps{Config: cfg, Repo: repo, Logger: zap.NewNop()})

	return serve(t, srv.App()) + "/api", repo
}

func TestAPIClientSessionFlow(t *testing.T) {
	ctx := context.Background()
	baseURL, repo := startAPI(t)

	store := client.NewMemoryStore()
	api := client.NewAPIClient(baseURL, store)
	session := client.NewContext(api, store)

	require.NoError(t, session.Register(ctx, client.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret1",
	}))
	assert.True(t, session.State().IsAuthenticated())

	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	name := "Ada L."
	updated, err := api.UpdateProfile(ctx, client.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	got, err := api.GetUser(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	_, err = api.ListUsers(ctx, 1, 10)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, client.StatusOf(err))
	assert.Equal(t, "Not authorized for this resource", client.ErrorMessage(err))

	require.NoError(t, session.Refresh(ctx))
	_, err = api.Me(ctx)
	require.NoError(t, err)

	require.NoError(t, session.Logout(ctx))
	assert.Equal(t, client.StatusAnonymous, session.State().Status)

	_, err = api.Me(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.StatusOf(err))
	assert.Equal(t, "Not authorized, no token provided", client.ErrorMessage(err))

	t.Run("admin operations", func(t *testing.T) {
		_, err := persistence.SeedUsers(ctx, repo.Users(), []persistence.SeedUser{
			{Name: "Root", Email: "root@example.com", Password: "secret1", Role: "admin"},
		})
		require.NoError(t, err)

		require.NoError(t, session.Login(ctx, "root@example.com", "secret1"))

		page, err := api.ListUsers(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Pagination.TotalUsers)

		require.NoError(t, api.DeleteUser(ctx, me.ID))

		_, err = api.GetUser(ctx, me.ID)
		assert.Equal(t, http.StatusNotFound, client.StatusOf(err))
		assert.Equal(t, "User not found", client.ErrorMessage(err))
	})
}

func TestAPIClientLoginFailure(t *testing.T) {
	ctx := context.Background()
	baseURL, _ := startAPI(t)

	api := client.NewAPIClient(baseURL, nil)
	session := client.NewContext(api, api.Store())

	err := session.Login(ctx, "ghost@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, client.StatusError, session.State().Status)
	assert.Equal(t, "Invalid credentials", session.State().Error)
}

func TestAPIClientNonEnvelopeError(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/auth/me", func(c *fiber.Ctx) error {
		return c.Status(http.StatusBadGateway).SendString("upstream down")
	})
	baseURL := serve(t, app)

	_, err := client.NewAPIClient(baseURL, nil).Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, client.StatusOf(err))
	assert.Equal(t, "HTTP error! status: 502", client.ErrorMessage(err))
}

func TestAPIClientCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.NewAPIClient("http://127.0.0.1:1", nil).Me(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
