package taxonomy

import (
	"context"
	"time"

	"coreflow-cms/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, item Term) error
	Rename(ctx context.Context, id, name string, updatedAt time.Time) (Term, error)
	Delete(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (Term, error)
	GetByName(ctx context.Context, kind Kind, name string) (Term, error)
	GetMany(ctx context.Context, ids []string) ([]Term, error)
	List(ctx context.Context, kind Kind) ([]Term, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, item Term) error {
	_, err := r.col.InsertOne(ctx, item)
	if store.IsDuplicateKey(err) {
		return ErrNameExists
	}
	return err
}

func (r *MongoRepository) Rename(ctx context.Context, id, name string, updatedAt time.Time) (Term, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"name": name, "updated_at": updatedAt}}

	var updated Term
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Term{}, mapErr(err)
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Term, error) {
	var item Term
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return Term{}, mapErr(err)
	}
	return item, nil
}

func (r *MongoRepository) GetByName(ctx context.Context, kind Kind, name string) (Term, error) {
	var item Term
	if err := r.col.FindOne(ctx, bson.M{"kind": kind, "name": name}).Decode(&item); err != nil {
		return Term{}, mapErr(err)
	}
	return item, nil
}

func (r *MongoRepository) GetMany(ctx context.Context, ids []string) ([]Term, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoRepository) List(ctx context.Context, kind Kind) ([]Term, error) {
	return r.find(ctx, bson.M{"kind": kind})
}

func (r *MongoRepository) find(ctx context.Context, query bson.M) ([]Term, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Term, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func mapErr(err error) error {
	switch {
	case store.IsNoRows(err):
		return ErrNotFound
	case store.IsDuplicateKey(err):
		return ErrNameExists
	default:
		return err
	}
}
