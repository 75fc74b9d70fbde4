package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/alan-neves/fechaduras/internal/model"
)

// LockRepository is the data-access interface for lock aggregates.
// GetByID preloads the four roster sources (units, programs, manual users,
// external users) so services always see the full aggregate.
type LockRepository interface {
	Create(ctx context.Context, lock *model.Lock) error
	GetByID(ctx context.Context, id uint) (*model.Lock, error)
	List(ctx context.Context) ([]model.Lock, error)
	ListByAdmin(ctx context.Context, codpes int) ([]model.Lock, error)
	Update(ctx context.Context, lock *model.Lock) error
	Delete(ctx context.Context, id uint) error

	ReplaceUnits(ctx context.Context, lockID uint, codes []string) error
	ReplacePrograms(ctx context.Context, lockID uint, codes []string) error
	AttachUser(ctx context.Context, lockID uint, codpes int) error
	DetachUser(ctx context.Context, lockID uint, codpes int) error
	AttachAdmin(ctx context.Context, lockID uint, codpes int) error
	DetachAdmin(ctx context.Context, lockID uint, codpes int) error
	IsAdmin(ctx context.Context, lockID uint, codpes int) (bool, error)
}

type lockRepo struct {
	db *gorm.DB
}

// NewLockRepo creates a LockRepository backed by GORM.
func NewLockRepo(db *gorm.DB) LockRepository {
	return &lockRepo{db: db}
}

func (r *lockRepo) Create(ctx context.Context, lock *model.Lock) error {
	return r.db.WithContext(ctx).Create(lock).Error
}

func (r *lockRepo) GetByID(ctx context.Context, id uint) (*model.Lock, error) {
	var lock model.Lock
	err := r.db.WithContext(ctx).
		Preload("Units").
		Preload("Programs").
		Preload("Users").
		Preload("ExternalUsers").
		Preload("Admins").
		First(&lock, id).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *lockRepo) List(ctx context.Context) ([]model.Lock, error) {
	var locks []model.Lock
	err := r.db.WithContext(ctx).Order("location ASC").Find(&locks).Error
	return locks, err
}

func (r *lockRepo) ListByAdmin(ctx context.Context, codpes int) ([]model.Lock, error) {
	var locks []model.Lock
	err := r.db.WithContext(ctx).
		Joins("JOIN lock_admins ON lock_admins.lock_id = locks.id").
		Where("lock_admins.codpes = ?", codpes).
		Order("locks.location ASC").
		Find(&locks).Error
	return locks, err
}

func (r *lockRepo) Update(ctx context.Context, lock *model.Lock) error {
	return r.db.WithContext(ctx).
		Omit("Units", "Programs", "Users", "ExternalUsers", "Admins").
		Save(lock).Error
}

func (r *lockRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Lock{}, id).Error
}

// ReplaceUnits swaps the full unit-code set of one lock in a transaction.
func (r *lockRepo) ReplaceUnits(ctx context.Context, lockID uint, codes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lock_id = ?", lockID).Delete(&model.LockUnit{}).Error; err != nil {
			return err
		}
		for _, code := range codes {
			if err := tx.Create(&model.LockUnit{LockID: lockID, Codset: code}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplacePrograms swaps the full program-code set of one lock in a transaction.
func (r *lockRepo) ReplacePrograms(ctx context.Context, lockID uint, codes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lock_id = ?", lockID).Delete(&model.LockProgram{}).Error; err != nil {
			return err
		}
		for _, code := range codes {
			if err := tx.Create(&model.LockProgram{LockID: lockID, Codare: code}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *lockRepo) AttachUser(ctx context.Context, lockID uint, codpes int) error {
	return r.db.WithContext(ctx).
		Exec("INSERT INTO lock_users (lock_id, codpes) VALUES (?, ?) ON CONFLICT DO NOTHING",
			lockID, codpes).Error
}

func (r *lockRepo) DetachUser(ctx context.Context, lockID uint, codpes int) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM lock_users WHERE lock_id = ? AND codpes = ?", lockID, codpes).Error
}

func (r *lockRepo) AttachAdmin(ctx context.Context, lockID uint, codpes int) error {
	return r.db.WithContext(ctx).
		Exec("INSERT INTO lock_admins (lock_id, codpes) VALUES (?, ?) ON CONFLICT DO NOTHING",
			lockID, codpes).Error
}

func (r *lockRepo) DetachAdmin(ctx context.Context, lockID uint, codpes int) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM lock_admins WHERE lock_id = ? AND codpes = ?", lockID, codpes).Error
}

func (r *lockRepo) IsAdmin(ctx context.Context, lockID uint, codpes int) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("lock_admins").
		Where("lock_id = ? AND codpes = ?", lockID, codpes).
		Count(&n).Error
	return n > 0, err
}
