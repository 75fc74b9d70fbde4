package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/alan-neves/fechaduras/internal/model"
)

// ExternalUserRepository is the data-access interface for external users.
type ExternalUserRepository interface {
	Create(ctx context.Context, user *model.ExternalUser) error
	GetByID(ctx context.Context, id uint) (*model.ExternalUser, error)
	ListByLock(ctx context.Context, lockID uint) ([]model.ExternalUser, error)
	Delete(ctx context.Context, id uint) error
}

type externalUserRepo struct {
	db *gorm.DB
}

// NewExternalUserRepo creates an ExternalUserRepository backed by GORM.
func NewExternalUserRepo(db *gorm.DB) ExternalUserRepository {
	return &externalUserRepo{db: db}
}

func (r *externalUserRepo) Create(ctx context.Context, user *model.ExternalUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *externalUserRepo) GetByID(ctx context.Context, id uint) (*model.ExternalUser, error) {
	var user model.ExternalUser
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *externalUserRepo) ListByLock(ctx context.Context, lockID uint) ([]model.ExternalUser, error) {
	var users []model.ExternalUser
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("lock_id = ?", lockID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *externalUserRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.ExternalUser{}, id).Error
}
