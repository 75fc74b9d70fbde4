package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/repository"
)

// ── external-user business errors ──

var ErrExternalUserNotFound = errors.New("external user not found")

// ExternalUserService manages the guests registered directly on a lock.
type ExternalUserService interface {
	Create(ctx context.Context, lockID uint, req *dto.CreateExternalUserRequest, caller Caller) (*dto.ExternalUserResponse, error)
	ListByLock(ctx context.Context, lockID uint, caller Caller) ([]dto.ExternalUserResponse, error)
	Delete(ctx context.Context, lockID, id uint, caller Caller) error
}

type externalUserService struct {
	repo   *repository.Repository
	offset int64
	logger *zap.Logger
}

// NewExternalUserService creates an ExternalUserService instance.
func NewExternalUserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ExternalUserService {
	return &externalUserService{
		repo:   repo,
		offset: cfg.Device.ExternalIDOffset,
		logger: logger,
	}
}

func (s *externalUserService) Create(ctx context.Context, lockID uint, req *dto.CreateExternalUserRequest, caller Caller) (*dto.ExternalUserResponse, error) {
	if _, err := authorizeLock(ctx, s.repo, lockID, caller); err != nil {
		return nil, err
	}

	user := &model.ExternalUser{
		LockID:      lockID,
		Name:        req.Name,
		Affiliation: req.Affiliation,
		Notes:       req.Notes,
		CreatedBy:   &caller.Codpes,
	}

	if err := s.repo.ExternalUser.Create(ctx, user); err != nil {
		s.logger.Error("creating external user failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	return s.toResponse(user), nil
}

func (s *externalUserService) ListByLock(ctx context.Context, lockID uint, caller Caller) ([]dto.ExternalUserResponse, error) {
	if _, err := authorizeLock(ctx, s.repo, lockID, caller); err != nil {
		return nil, err
	}

	users, err := s.repo.ExternalUser.ListByLock(ctx, lockID)
	if err != nil {
		s.logger.Error("listing external users failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ExternalUserResponse, 0, len(users))
	for i := range users {
		result = append(result, *s.toResponse(&users[i]))
	}
	return result, nil
}

// Delete removes an external user record. The device-side enrollment is not
// touched: synchronization never deletes device users, so doorside cleanup
// stays a manual device operation.
func (s *externalUserService) Delete(ctx context.Context, lockID, id uint, caller Caller) error {
	if _, err := authorizeLock(ctx, s.repo, lockID, caller); err != nil {
		return err
	}

	user, err := s.repo.ExternalUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExternalUserNotFound
		}
		return err
	}
	if user.LockID != lockID {
		return ErrExternalUserNotFound
	}

	return s.repo.ExternalUser.Delete(ctx, id)
}

func (s *externalUserService) toResponse(user *model.ExternalUser) *dto.ExternalUserResponse {
	return &dto.ExternalUserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Affiliation: user.Affiliation,
		Notes:       user.Notes,
		DeviceKey:   user.DeviceKey(s.offset),
		CreatedBy:   user.CreatedBy,
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
