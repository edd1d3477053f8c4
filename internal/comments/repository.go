package comments

import (
	"context"
	"time"

	"coreflow-cms/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, item Comment) error
	Get(ctx context.Context, id string) (Comment, error)
	// UpdateContent replaces the content and clears the approval flag in the same write.
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) (Comment, error)
	Delete(ctx context.Context, id string) (bool, error)
	// SetApproved returns the number of comments matched by ids.
	SetApproved(ctx context.Context, ids []string, approved bool, updatedAt time.Time) (int64, error)
	// ListVisible returns approved comments plus, when viewerID is set, the viewer's own
	// pending ones, oldest first.
	ListVisible(ctx context.Context, caseStudyID, viewerID string) ([]Comment, error)
	CountApproved(ctx context.Context, caseStudyIDs []string) (map[string]int64, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Comment, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, item Comment) error {
	_, err := r.col.InsertOne(ctx, item)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Comment, error) {
	var item Comment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if store.IsNoRows(err) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return item, nil
}

func (r *MongoRepository) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) (Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"content":    content,
		"approved":   false,
		"updated_at": updatedAt,
	}}

	var updated Comment
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if store.IsNoRows(err) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
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

func (r *MongoRepository) SetApproved(ctx context.Context, ids []string, approved bool, updatedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"approved": approved, "updated_at": updatedAt}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (r *MongoRepository) ListVisible(ctx context.Context, caseStudyID, viewerID string) ([]Comment, error) {
	query := bson.M{"case_study_id": caseStudyID, "approved": true}
	if viewerID != "" {
		query = bson.M{
			"case_study_id": caseStudyID,
			"$or": bson.A{
				bson.M{"approved": true},
				bson.M{"author_id": viewerID},
			},
		}
	}
	return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r *MongoRepository) CountApproved(ctx context.Context, caseStudyIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(caseStudyIDs))
	if len(caseStudyIDs) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"case_study_id": bson.M{"$in": caseStudyIDs}, "approved": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$case_study_id", "n": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cursor.Err()
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	return r.find(ctx, mongoFilter(filter), opts)
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, mongoFilter(filter))
}

func (r *MongoRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]Comment, error) {
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Comment, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func mongoFilter(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Approved != nil {
		query["approved"] = *filter.Approved
	}
	if filter.CaseStudyID != "" {
		query["case_study_id"] = filter.CaseStudyID
	}
	return query
}
