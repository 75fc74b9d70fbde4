package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alan-neves/fechaduras/internal/model"
)

// AccessLogRepository is the data-access interface for pulled access logs.
type AccessLogRepository interface {
	// UpsertBatch inserts pulled rows, silently skipping device log ids
	// already stored for the lock. Repeated pulls stay idempotent.
	UpsertBatch(ctx context.Context, logs []model.AccessLog) error
	ListByLock(ctx context.Context, lockID uint, page, pageSize int) ([]model.AccessLog, int64, error)
	MaxDeviceLogID(ctx context.Context, lockID uint) (int64, error)
}

type accessLogRepo struct {
	db *gorm.DB
}

// NewAccessLogRepo creates an AccessLogRepository backed by GORM.
func NewAccessLogRepo(db *gorm.DB) AccessLogRepository {
	return &accessLogRepo{db: db}
}

func (r *accessLogRepo) UpsertBatch(ctx context.Context, logs []model.AccessLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lock_id"}, {Name: "device_log_id"}},
			DoNothing: true,
		}).
		Create(&logs).Error
}

func (r *accessLogRepo) ListByLock(ctx context.Context, lockID uint, page, pageSize int) ([]model.AccessLog, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&model.AccessLog{}).Where("lock_id = ?", lockID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.AccessLog
	err := base.
		Order("logged_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

func (r *accessLogRepo) MaxDeviceLogID(ctx context.Context, lockID uint) (int64, error) {
	var max *int64
	err := r.db.WithContext(ctx).
		Model(&model.AccessLog{}).
		Where("lock_id = ?", lockID).
		Select("MAX(device_log_id)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
