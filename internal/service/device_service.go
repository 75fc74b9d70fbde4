package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/repository"
)

// DeviceService exposes direct device operations: listing the live onboard
// roster and enrolling a keypad password or face photo for one device user.
type DeviceService interface {
	ListUsers(ctx context.Context, lockID uint, caller Caller) ([]dto.DeviceUserResponse, error)
	SetPassword(ctx context.Context, lockID uint, userID int64, password string, caller Caller) error
	SetPhoto(ctx context.Context, lockID uint, userID int64, jpeg []byte, caller Caller) error
}

type deviceService struct {
	repo    *repository.Repository
	devices DeviceClientFactory
	logger  *zap.Logger
}

// NewDeviceService creates a DeviceService instance.
func NewDeviceService(repo *repository.Repository, devices DeviceClientFactory, logger *zap.Logger) DeviceService {
	return &deviceService{repo: repo, devices: devices, logger: logger}
}

func (s *deviceService) ListUsers(ctx context.Context, lockID uint, caller Caller) ([]dto.DeviceUserResponse, error) {
	lock, err := authorizeLock(ctx, s.repo, lockID, caller)
	if err != nil {
		return nil, err
	}

	users, err := s.devices.ForLock(lock).ListUsers(ctx)
	if err != nil {
		s.logger.Error("listing device users failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.DeviceUserResponse, 0, len(users))
	for _, u := range users {
		result = append(result, dto.DeviceUserResponse{
			ID:           u.ID,
			Registration: u.Registration,
			Name:         u.Name,
			HasPhoto:     u.HasPhoto,
			HasPassword:  u.HasPassword,
		})
	}
	return result, nil
}

func (s *deviceService) SetPassword(ctx context.Context, lockID uint, userID int64, password string, caller Caller) error {
	lock, err := authorizeLock(ctx, s.repo, lockID, caller)
	if err != nil {
		return err
	}
	if err := s.devices.ForLock(lock).SetPassword(ctx, userID, password); err != nil {
		s.logger.Error("setting device password failed",
			zap.Uint("lock_id", lockID), zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *deviceService) SetPhoto(ctx context.Context, lockID uint, userID int64, jpeg []byte, caller Caller) error {
	lock, err := authorizeLock(ctx, s.repo, lockID, caller)
	if err != nil {
		return err
	}
	if err := s.devices.ForLock(lock).SetPhoto(ctx, userID, jpeg); err != nil {
		s.logger.Error("setting device photo failed",
			zap.Uint("lock_id", lockID), zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}
