package casestudies

import (
	"context"
	"regexp"

	"coreflow-cms/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, item CaseStudy) error
	Update(ctx context.Context, item CaseStudy) (CaseStudy, error)
	SetImage(ctx context.Context, id, image string) error
	// Delete removes the case study together with its comments.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteByTerm removes every case study whose field (client_id, location_id or
	// industry_id) equals termID, together with their comments.
	DeleteByTerm(ctx context.Context, field, termID string) (int64, error)
	Get(ctx context.Context, id string) (CaseStudy, error)
	GetBySlug(ctx context.Context, slug string) (CaseStudy, error)
	GetByTitle(ctx context.Context, title string) (CaseStudy, error)
	// List returns case studies matching filter ordered by title.
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]CaseStudy, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type MongoRepository struct {
	col      *mongo.Collection
	comments *mongo.Collection
}

func NewRepository(col, comments *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col, comments: comments}
}

func (r *MongoRepository) Create(ctx context.Context, item CaseStudy) error {
	_, err := r.col.InsertOne(ctx, item)
	return mapErr(err)
}

func (r *MongoRepository) Update(ctx context.Context, item CaseStudy) (CaseStudy, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"slug":        item.Slug,
		"title":       item.Title,
		"client_id":   item.ClientID,
		"location_id": item.LocationID,
		"industry_id": item.IndustryID,
		"description": item.Description,
		"excerpt":     item.Excerpt,
		"image":       item.Image,
		"updated_at":  item.UpdatedAt,
	}}

	var updated CaseStudy
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": item.ID}, update, opts).Decode(&updated); err != nil {
		return CaseStudy{}, mapErr(err)
	}
	return updated, nil
}

func (r *MongoRepository) SetImage(ctx context.Context, id, image string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"image": image}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes comments first so a failure never leaves comments pointing at nothing.
func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.comments.DeleteMany(ctx, bson.M{"case_study_id": id}); err != nil {
		return false, err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) DeleteByTerm(ctx context.Context, field, termID string) (int64, error) {
	var ids []string
	cursor, err := r.col.Find(ctx, bson.M{field: termID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := r.comments.DeleteMany(ctx, bson.M{"case_study_id": bson.M{"$in": ids}}); err != nil {
		return 0, err
	}
	res, err := r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (CaseStudy, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string) (CaseStudy, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoRepository) GetByTitle(ctx context.Context, title string) (CaseStudy, error) {
	return r.findOne(ctx, bson.M{"title": title})
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]CaseStudy, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "title", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]CaseStudy, 0)
	for cursor.Next(ctx) {
		var item CaseStudy
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, mongoFilter(filter))
}

func mongoFilter(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Title != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Title), Options: "i"}
	}
	return query
}

func (r *MongoRepository) findOne(ctx context.Context, query bson.M) (CaseStudy, error) {
	var item CaseStudy
	if err := r.col.FindOne(ctx, query).Decode(&item); err != nil {
		return CaseStudy{}, mapErr(err)
	}
	return item, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case store.IsNoRows(err):
		return ErrNotFound
	case store.IsDuplicateKey(err):
		return ErrSlugExists
	default:
		return err
	}
}
