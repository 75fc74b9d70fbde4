package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alan-neves/fechaduras/internal/model"
)

// UserRepository is the data-access interface for institutional users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByCodpes(ctx context.Context, codpes int) (*model.User, error)
	Upsert(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, codpes int, hash string) error
	List(ctx context.Context) ([]model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a UserRepository backed by GORM.
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByCodpes(ctx context.Context, codpes int) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("codpes = ?", codpes).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or refreshes its name when the codpes already
// exists. Password and role are never touched here.
func (r *userRepo) Upsert(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "codpes"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(user).Error
}

func (r *userRepo) UpdatePassword(ctx context.Context, codpes int, hash string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("codpes = ?", codpes).
		Update("password", hash).Error
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}
