package accounts

import (
	"context"
	"time"

	"coreflow-cms/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	SetRole(ctx context.Context, id, role string, updatedAt time.Time) (User, error)
	SetPassword(ctx context.Context, id, hash string, updatedAt time.Time) error
	// Delete removes the user together with every comment they wrote.
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int64) ([]User, error)
	Count(ctx context.Context) (int64, error)
}

type MongoRepository struct {
	col      *mongo.Collection
	comments *mongo.Collection
}

func NewRepository(col, comments *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col, comments: comments}
}

func (r *MongoRepository) Create(ctx context.Context, user User) error {
	_, err := r.col.InsertOne(ctx, user)
	return mapErr(err)
}

func (r *MongoRepository) Get(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoRepository) SetRole(ctx context.Context, id, role string, updatedAt time.Time) (User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"role": role, "updated_at": updatedAt}}

	var user User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return User{}, mapErr(err)
	}
	return user, nil
}

func (r *MongoRepository) SetPassword(ctx context.Context, id, hash string, updatedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    updatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.comments.DeleteMany(ctx, bson.M{"author_id": id}); err != nil {
		return false, err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) List(ctx context.Context, limit, offset int64) ([]User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *MongoRepository) findOne(ctx context.Context, query bson.M) (User, error) {
	var user User
	if err := r.col.FindOne(ctx, query).Decode(&user); err != nil {
		return User{}, mapErr(err)
	}
	return user, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case store.IsNoRows(err):
		return ErrNotFound
	case store.IsDuplicateKey(err):
		return ErrUsernameTaken
	default:
		return err
	}
}
