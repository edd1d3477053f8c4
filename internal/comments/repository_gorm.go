package comments

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, item Comment) error {
	return r.db.WithContext(ctx).Create(&item).Error
}

func (r *GormRepository) Get(ctx context.Context, id string) (Comment, error) {
	var item Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return item, nil
}

func (r *GormRepository) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) (Comment, error) {
	res := r.db.WithContext(ctx).Model(&Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":    content,
		"approved":   false,
		"updated_at": updatedAt,
	})
	if res.Error != nil {
		return Comment{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Comment{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *GormRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Comment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepository) SetApproved(ctx context.Context, ids []string, approved bool, updatedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var matched int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// RowsAffected only counts changed rows on some drivers; report matches instead.
		if err := tx.Model(&Comment{}).Where("id IN ?", ids).Count(&matched).Error; err != nil {
			return err
		}
		return tx.Model(&Comment{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"approved":   approved,
			"updated_at": updatedAt,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

func (r *GormRepository) ListVisible(ctx context.Context, caseStudyID, viewerID string) ([]Comment, error) {
	q := r.db.WithContext(ctx).Where("case_study_id = ?", caseStudyID)
	if viewerID != "" {
		q = q.Where("(approved = ? OR author_id = ?)", true, viewerID)
	} else {
		q = q.Where("approved = ?", true)
	}
	items := make([]Comment, 0)
	err := q.Order("created_at ASC").Order("id ASC").Find(&items).Error
	return items, err
}

func (r *GormRepository) CountApproved(ctx context.Context, caseStudyIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(caseStudyIDs))
	if len(caseStudyIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		CaseStudyID string
		N           int64
	}
	err := r.db.WithContext(ctx).Model(&Comment{}).
		Select("case_study_id, COUNT(*) AS n").
		Where("case_study_id IN ? AND approved = ?", caseStudyIDs, true).
		Group("case_study_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CaseStudyID] = row.N
	}
	return out, nil
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Comment, error) {
	items := make([]Comment, 0)
	err := r.filtered(ctx, filter).
		Order("created_at DESC").
		Limit(int(limit)).
		Offset(int(offset)).
		Find(&items).Error
	return items, err
}

func (r *GormRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Model(&Comment{}).Count(&n).Error
	return n, err
}

func (r *GormRepository) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if filter.Approved != nil {
		q = q.Where("approved = ?", *filter.Approved)
	}
	if filter.CaseStudyID != "" {
		q = q.Where("case_study_id = ?", filter.CaseStudyID)
	}
	return q
}
