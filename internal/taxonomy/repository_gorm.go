package taxonomy

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, item Term) error {
	return mapErr(r.db.WithContext(ctx).Create(&item).Error)
}

func (r *GormRepository) Rename(ctx context.Context, id, name string, updatedAt time.Time) (Term, error) {
	res := r.db.WithContext(ctx).Model(&Term{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": updatedAt})
	if res.Error != nil {
		return Term{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return Term{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *GormRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Term{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepository) Get(ctx context.Context, id string) (Term, error) {
	var item Term
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return Term{}, mapErr(err)
	}
	return item, nil
}

func (r *GormRepository) GetByName(ctx context.Context, kind Kind, name string) (Term, error) {
	var item Term
	if err := r.db.WithContext(ctx).Where("kind = ? AND name = ?", kind, name).First(&item).Error; err != nil {
		return Term{}, mapErr(err)
	}
	return item, nil
}

func (r *GormRepository) GetMany(ctx context.Context, ids []string) ([]Term, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	items := make([]Term, 0, len(ids))
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *GormRepository) List(ctx context.Context, kind Kind) ([]Term, error) {
	items := make([]Term, 0)
	err := r.db.WithContext(ctx).Where("kind = ?", kind).Order("name ASC").Find(&items).Error
	return items, err
}
