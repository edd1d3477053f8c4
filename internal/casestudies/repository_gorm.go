package casestudies

import (
	"context"
	"strings"

	"coreflow-cms/internal/comments"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, item CaseStudy) error {
	return mapErr(r.db.WithContext(ctx).Create(&item).Error)
}

func (r *GormRepository) Update(ctx context.Context, item CaseStudy) (CaseStudy, error) {
	res := r.db.WithContext(ctx).Model(&CaseStudy{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"slug":        item.Slug,
		"title":       item.Title,
		"client_id":   item.ClientID,
		"location_id": item.LocationID,
		"industry_id": item.IndustryID,
		"description": item.Description,
		"excerpt":     item.Excerpt,
		"image":       item.Image,
		"updated_at":  item.UpdatedAt,
	})
	if res.Error != nil {
		return CaseStudy{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return CaseStudy{}, ErrNotFound
	}
	return r.Get(ctx, item.ID)
}

func (r *GormRepository) SetImage(ctx context.Context, id, image string) error {
	res := r.db.WithContext(ctx).Model(&CaseStudy{}).Where("id = ?", id).Update("image", image)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_study_id = ?", id).Delete(&comments.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&CaseStudy{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (r *GormRepository) DeleteByTerm(ctx context.Context, field, termID string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&CaseStudy{}).Where(field+" = ?", termID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("case_study_id IN ?", ids).Delete(&comments.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&CaseStudy{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

func (r *GormRepository) Get(ctx context.Context, id string) (CaseStudy, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (CaseStudy, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *GormRepository) GetByTitle(ctx context.Context, title string) (CaseStudy, error) {
	return r.first(ctx, "title = ?", title)
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]CaseStudy, error) {
	items := make([]CaseStudy, 0)
	err := r.filtered(ctx, filter).
		Order("title ASC").
		Limit(int(limit)).
		Offset(int(offset)).
		Find(&items).Error
	return items, err
}

func (r *GormRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Model(&CaseStudy{}).Count(&n).Error
	return n, err
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting on any supported dialect.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *GormRepository) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if filter.Title != "" {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(strings.ToLower(filter.Title))+"%")
	}
	return q
}

func (r *GormRepository) first(ctx context.Context, cond string, arg interface{}) (CaseStudy, error) {
	var item CaseStudy
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&item).Error; err != nil {
		return CaseStudy{}, mapErr(err)
	}
	return item, nil
}
