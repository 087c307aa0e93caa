package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/persistence"
)

func init() {
	auth.SetPasswordHashCost(bcrypt.MinCost)
}

// MockUserFinder implements auth.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserFinder) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenService implements auth.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(identity auth.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (auth.AuthClaims, error) {
	args := m.Called(token)
	if c := args.Get(0); c != nil {
		return c.(auth.AuthClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

type testConfig struct {
	signingKey string
	issuer     string
	audience   []string
	tokenTTL   time.Duration
	refreshTTL time.Duration
	useHashid  bool
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey: "test-signing-key-0123456789",
		issuer:     "go-auth-starter-test",
		tokenTTL:   15 * time.Minute,
		refreshTTL: 24 * time.Hour,
	}
}

func (c testConfig) GetSigningKey() string                    { return c.signingKey }
func (c testConfig) GetIssuer() string                        { return c.issuer }
func (c testConfig) GetAudience() []string                    { return c.audience }
func (c testConfig) GetTokenExpiration() time.Duration        { return c.tokenTTL }
func (c testConfig) GetRefreshTokenExpiration() time.Duration { return c.refreshTTL }
func (c testConfig) GetBcryptCost() int                       { return bcrypt.MinCost }
func (c testConfig) GetUseHashid() bool                       { return c.useHashid }

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// newTestRepo returns a repository manager over a migrated in-memory sqlite
func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()

	db, driver, err := persistence.Open(persistence.Options{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = persistence.Migrate(context.Background(), db, driver)
	require.NoError(t, err)

	return auth.NewRepositoryManager(db)
}

func createUser(t *testing.T, repo auth.RepositoryManager, name, email, password string, role auth.UserRole) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := auth.NewUser(name, email, hash)
	user.Role = role

	created, err := repo.Users().Create(context.Background(), user)
	require.NoError(t, err)
	return created
}
