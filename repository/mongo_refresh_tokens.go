package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	auth "github.com/goliatone/go-auth-starter"
)

// RefreshTokenDocument is the MongoDB representation of a refresh token.
type RefreshTokenDocument struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"userId"`
	TokenHash string     `bson:"tokenHash"`
	ExpiresAt time.Time  `bson:"expiresAt"`
	CreatedAt time.Time  `bson:"createdAt"`
	RevokedAt *time.Time `bson:"revokedAt,omitempty"`
}

// MongoRefreshTokens implements auth.RefreshTokenStore.
type MongoRefreshTokens struct {
	coll *mongo.Collection
}

var _ auth.RefreshTokenStore = (*MongoRefreshTokens)(nil)

// NewMongoRefreshTokens creates a new store.
func NewMongoRefreshTokens(db *mongo.Database) *MongoRefreshTokens {
	return &MongoRefreshTokens{coll: db.Collection("refresh_tokens")}
}

// EnsureIndexes creates the hash index and a TTL index that drops expired tokens.
func (r *MongoRefreshTokens) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create refresh token indexes")
	}
	return nil
}

// Create implements auth.RefreshTokenStore.
func (r *MongoRefreshTokens) Create(ctx context.Context, token *auth.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	doc := RefreshTokenDocument{
		ID:        token.ID.String(),
		UserID:    token.UserID.String(),
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt.UTC(),
		CreatedAt: token.CreatedAt.UTC(),
		RevokedAt: token.RevokedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store refresh token")
	}
	return nil
}

// GetByHash implements auth.RefreshTokenStore.
func (r *MongoRefreshTokens) GetByHash(ctx context.Context, hash string) (*auth.RefreshToken, error) {
	var doc RefreshTokenDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "tokenHash", Value: hash}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to get refresh token")
	}

	id, _ := uuid.Parse(doc.ID)
	userID, _ := uuid.Parse(doc.UserID)
	return &auth.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: doc.TokenHash,
		ExpiresAt: doc.ExpiresAt,
		RevokedAt: doc.RevokedAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Revoke implements auth.RefreshTokenStore.
func (r *MongoRefreshTokens) Revoke(ctx context.Context, hash string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "tokenHash", Value: hash}, {Key: "revokedAt", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revokedAt", Value: time.Now().UTC()}}}},
	)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}
	return res.ModifiedCount > 0, nil
}

// RevokeAllForUser implements auth.RefreshTokenStore.
func (r *MongoRefreshTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.D{{Key: "userId", Value: userID}, {Key: "revokedAt", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revokedAt", Value: time.Now().UTC()}}}},
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh tokens")
	}
	return nil
}
