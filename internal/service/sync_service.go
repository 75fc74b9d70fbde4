package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/repository"
)

// SyncService converges a lock's onboard user list with its authoritative
// roster. It never deletes device users and keeps no state between runs:
// a repeated run against unchanged inputs creates nothing.
type SyncService interface {
	// BuildRoster computes the authoritative roster without touching the device.
	BuildRoster(ctx context.Context, lock *model.Lock) ([]model.RosterEntry, error)
	// Synchronize loads the device roster, diffs it against the authoritative
	// one, enrolls the missing entries and refreshes everyone's display data,
	// triggering photo backfill for device users without a photo.
	Synchronize(ctx context.Context, lockID uint, caller Caller) (*dto.SyncResultResponse, error)
}

type syncService struct {
	repo      *repository.Repository
	directory DirectoryClient
	devices   DeviceClientFactory
	offset    int64
	logger    *zap.Logger
}

// NewSyncService creates a SyncService instance.
func NewSyncService(
	cfg *config.Config,
	repo *repository.Repository,
	directory DirectoryClient,
	devices DeviceClientFactory,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		repo:      repo,
		directory: directory,
		devices:   devices,
		offset:    cfg.Device.ExternalIDOffset,
		logger:    logger,
	}
}

func (s *syncService) Synchronize(ctx context.Context, lockID uint, caller Caller) (*dto.SyncResultResponse, error) {
	lock, err := authorizeLock(ctx, s.repo, lockID, caller)
	if err != nil {
		return nil, err
	}

	device := s.devices.ForLock(lock)

	// 1. current device roster
	deviceUsers, err := device.ListUsers(ctx)
	if err != nil {
		s.logger.Error("listing device users failed",
			zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	// 2. authoritative roster; a directory failure aborts before any mutation
	roster, err := s.BuildRoster(ctx, lock)
	if err != nil {
		s.logger.Error("building roster failed",
			zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	// 3. missing = union of the diffs against device id and registration.
	// Device users may be keyed by either field depending on how they were
	// originally enrolled, so an entry counts as present only when both
	// match; CreateUsers tolerates the resulting false positives.
	byID := make(map[int]bool, len(deviceUsers))
	byRegistration := make(map[int]bool, len(deviceUsers))
	for _, u := range deviceUsers {
		byID[int(u.ID)] = true
		if n, err := strconv.Atoi(u.Registration); err == nil {
			byRegistration[n] = true
		}
	}

	var missing []model.RosterEntry
	for _, e := range roster {
		if !byID[e.Key] || !byRegistration[e.Key] {
			missing = append(missing, e)
		}
	}

	// 4. enroll missing entries, one batched call
	if len(missing) > 0 {
		if err := device.CreateUsers(ctx, missing); err != nil {
			s.logger.Error("creating device users failed",
				zap.Uint("lock_id", lockID),
				zap.Int("count", len(missing)),
				zap.Error(err))
			return nil, err
		}
	}

	// 5. device users without a photo, keyed by registration with the
	// device id as fallback
	var needingPhoto []string
	for _, u := range deviceUsers {
		if u.HasPhoto {
			continue
		}
		id := u.Registration
		if id == "" {
			id = strconv.FormatInt(u.ID, 10)
		}
		needingPhoto = append(needingPhoto, id)
	}

	// 6. refresh display data of the whole roster, backfilling photos only
	// where they are missing
	if err := device.UpdateUsers(ctx, roster, needingPhoto); err != nil {
		s.logger.Error("updating device users failed",
			zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("fechadura synchronized",
		zap.Uint("lock_id", lockID),
		zap.Int("roster", len(roster)),
		zap.Int("device_users", len(deviceUsers)),
		zap.Int("created", len(missing)),
		zap.Int("photo_backfill", len(needingPhoto)),
	)

	return &dto.SyncResultResponse{
		RosterSize:    len(roster),
		DeviceUsers:   len(deviceUsers),
		Created:       len(missing),
		PhotoBackfill: len(needingPhoto),
	}, nil
}
