package repository

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	auth "github.com/goliatone/go-auth-starter"
)

// DefaultDatabase is used when the URI has no database path
const DefaultDatabase = "auth_starter"

type mngr struct {
	client        *mongo.Client
	users         *MongoUsers
	refreshTokens *MongoRefreshTokens
}

// MongoManager is an auth.RepositoryManager backed by MongoDB
type MongoManager interface {
	auth.RepositoryManager
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connect opens a client for uri and returns the manager
func Connect(ctx context.Context, uri string) (MongoManager, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid mongo uri")
	}

	m := NewRepositoryManager(client, DatabaseFromURI(uri))
	if err := m.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.CategoryExternal, "mongo is not reachable")
	}
	return m, nil
}

// NewRepositoryManager wires the mongo stores over the named database
func NewRepositoryManager(client *mongo.Client, database string) MongoManager {
	db := client.Database(database)
	return &mngr{
		client:        client,
		users:         NewMongoUsers(db),
		refreshTokens: NewMongoRefreshTokens(db),
	}
}

// DatabaseFromURI returns the database named in the URI path
func DatabaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return DefaultDatabase
	}
	return name
}

func (m mngr) Users() auth.UserStore {
	return m.users
}

func (m mngr) RefreshTokens() auth.RefreshTokenStore {
	return m.refreshTokens
}

func (m mngr) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m mngr) EnsureIndexes(ctx context.Context) error {
	if err := m.users.EnsureIndexes(ctx); err != nil {
		return err
	}
	return m.refreshTokens.EnsureIndexes(ctx)
}

func (m mngr) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
