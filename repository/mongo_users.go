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

// UserDocument is the MongoDB representation of a user.
type UserDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	IsActive     bool      `bson:"isActive"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// MongoUsers implements auth.UserStore on a MongoDB collection.
type MongoUsers struct {
	coll *mongo.Collection
}

var _ auth.UserStore = (*MongoUsers)(nil)

// NewMongoUsers creates a new store.
func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection("users")}
}

// EnsureIndexes creates the unique email index and the listing index.
func (r *MongoUsers) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create user indexes")
	}
	return nil
}

// GetByID implements auth.UserStore.
func (r *MongoUsers) GetByID(ctx context.Context, id string) (*auth.User, error) {
	uid, err := auth.ParseUserID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: uid.String()}})
}

// GetByEmail implements auth.UserStore.
func (r *MongoUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: auth.NormalizeEmail(email)}})
}

// EmailTaken implements auth.UserStore.
func (r *MongoUsers) EmailTaken(ctx context.Context, email string, excludeID string) (bool, error) {
	filter := bson.D{{Key: "email", Value: auth.NormalizeEmail(email)}}
	if excludeID != "" {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}})
	}

	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check email")
	}
	return n > 0, nil
}

// Create implements auth.UserStore.
func (r *MongoUsers) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	doc := r.fromUser(user)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}
	return r.toUser(doc), nil
}

// UpdateProfile implements auth.UserStore.
func (r *MongoUsers) UpdateProfile(ctx context.Context, id string, changes auth.ProfileChanges) (*auth.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes.Apply(user)

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: user.ID.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: user.Name},
			{Key: "email", Value: user.Email},
			{Key: "updatedAt", Value: user.UpdatedAt},
		}}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.ErrEmailTaken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}
	if res.MatchedCount == 0 {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

// Delete implements auth.UserStore.
func (r *MongoUsers) Delete(ctx context.Context, id string) error {
	uid, err := auth.ParseUserID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: uid.String()}})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}
	if res.DeletedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// List implements auth.UserStore.
func (r *MongoUsers) List(ctx context.Context, offset, limit int) ([]*auth.User, int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to count users")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	var docs []UserDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to decode users")
	}

	users := make([]*auth.User, len(docs))
	for i := range docs {
		users[i] = r.toUser(&docs[i])
	}
	return users, int(total), nil
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.D) (*auth.User, error) {
	var doc UserDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to get user")
	}
	return r.toUser(&doc), nil
}

func (r *MongoUsers) toUser(doc *UserDocument) *auth.User {
	id, _ := uuid.Parse(doc.ID)
	return &auth.User{
		ID:           id,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         auth.UserRole(doc.Role),
		IsActive:     doc.IsActive,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func (r *MongoUsers) fromUser(u *auth.User) *UserDocument {
	return &UserDocument{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        auth.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}
