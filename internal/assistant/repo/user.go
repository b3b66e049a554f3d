package repo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/talksphere/server/internal/assistant/model"
	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

// CollectionUsers holds one document per account.
const CollectionUsers = "users"

type MongoUserRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.Collection(CollectionUsers),
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	now := r.now().UTC()
	u.ID = primitive.NewObjectID()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.History == nil {
		u.History = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errx.New(err, http.StatusConflict, "email already exists")
		}
		logx.Error().Err(err).Str("email", u.Email).Msg("failed to insert user")
		return errx.WrapMongo(err)
	}
	return nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errx.NotFound("user not found")
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	err := r.collection.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errx.New(err, http.StatusNotFound, "user not found")
	}
	if err != nil {
		logx.Error().Err(err).Msg("failed to load user")
		return nil, errx.WrapMongo(err)
	}
	return &u, nil
}

func (r *MongoUserRepository) UpdateAssistant(ctx context.Context, id string, profile model.AssistantProfile) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errx.NotFound("user not found")
	}

	update := bson.M{
		"$set": bson.M{
			"assistantName":  profile.AssistantName,
			"assistantImage": profile.AssistantImage,
			"updatedAt":      r.now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u model.User
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errx.New(err, http.StatusNotFound, "user not found")
	}
	if err != nil {
		logx.Error().Err(err).Str("user_id", id).Msg("failed to update assistant profile")
		return nil, errx.WrapMongo(err)
	}
	return &u, nil
}

func (r *MongoUserRepository) AppendHistory(ctx context.Context, id string, entry string, limit int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errx.NotFound("user not found")
	}

	push := bson.M{"$each": bson.A{entry}}
	if limit > 0 {
		// negative $slice keeps the newest entries
		push["$slice"] = -limit
	}
	update := bson.M{
		"$push": bson.M{"history": push},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	}
	return r.updateOne(ctx, oid, update)
}

func (r *MongoUserRepository) ClearHistory(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errx.NotFound("user not found")
	}
	update := bson.M{
		"$set": bson.M{"history": bson.A{}, "updatedAt": r.now().UTC()},
	}
	return r.updateOne(ctx, oid, update)
}

func (r *MongoUserRepository) updateOne(ctx context.Context, oid primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		logx.Error().Err(err).Str("user_id", oid.Hex()).Msg("failed to update user")
		return errx.WrapMongo(err)
	}
	if res.MatchedCount == 0 {
		return errx.NotFound("user not found")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ model.UserRepository = (*MongoUserRepository)(nil)
