package accounts

import (
	"context"
	"time"

	"coreflow-cms/internal/comments"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, user User) error {
	return mapErr(r.db.WithContext(ctx).Create(&user).Error)
}

func (r *GormRepository) Get(ctx context.Context, id string) (User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *GormRepository) SetRole(ctx context.Context, id, role string, updatedAt time.Time) (User, error) {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"role":       role,
		"updated_at": updatedAt,
	})
	if res.Error != nil {
		return User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return User{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *GormRepository) SetPassword(ctx context.Context, id, hash string, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash": hash,
		"updated_at":    updatedAt,
	})
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
		if err := tx.Where("author_id = ?", id).Delete(&comments.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&User{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (r *GormRepository) List(ctx context.Context, limit, offset int64) ([]User, error) {
	users := make([]User, 0)
	err := r.db.WithContext(ctx).
		Order("username ASC").
		Limit(int(limit)).
		Offset(int(offset)).
		Find(&users).Error
	return users, err
}

func (r *GormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&User{}).Count(&n).Error
	return n, err
}

func (r *GormRepository) first(ctx context.Context, cond string, arg interface{}) (User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		return User{}, mapErr(err)
	}
	return user, nil
}
