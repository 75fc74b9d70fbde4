package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/controlid"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/replicado"
	"github.com/alan-neves/fechaduras/internal/repository"
	"github.com/alan-neves/fechaduras/pkg/jwt"
)

// ── errors shared across services ──

var (
	ErrLockNotFound = errors.New("fechadura not found")
	ErrForbidden    = errors.New("caller does not administer this fechadura")
)

// Caller identifies the authenticated user a handler acts for.
type Caller struct {
	Codpes int
	Role   string
}

// DirectoryClient is the read-only view of the institutional directory the
// services depend on. Satisfied by *replicado.Client.
type DirectoryClient interface {
	FindPersonnelByUnits(ctx context.Context, codes []string) ([]replicado.Person, error)
	FindStudentsByPrograms(ctx context.Context, codes []string) ([]replicado.Person, error)
	ListActivePrograms(ctx context.Context) ([]replicado.Program, error)
	ValidatePersons(ctx context.Context, codpes []int) ([]replicado.Person, error)
}

// DeviceClient is the onboard API of a single lock. Satisfied by
// *controlid.Client.
type DeviceClient interface {
	ListUsers(ctx context.Context) ([]controlid.User, error)
	CreateUsers(ctx context.Context, entries []model.RosterEntry) error
	UpdateUsers(ctx context.Context, entries []model.RosterEntry, needingPhoto []string) error
	SetPassword(ctx context.Context, userID int64, password string) error
	SetPhoto(ctx context.Context, userID int64, jpeg []byte) error
	LoadAccessLogs(ctx context.Context, afterID int64) ([]controlid.AccessLog, error)
}

// DeviceClientFactory builds a DeviceClient for one lock's address and
// credentials.
type DeviceClientFactory interface {
	ForLock(lock *model.Lock) DeviceClient
}

// DeviceClientFactoryFunc adapts a function to DeviceClientFactory.
type DeviceClientFactoryFunc func(lock *model.Lock) DeviceClient

// ForLock calls f.
func (f DeviceClientFactoryFunc) ForLock(lock *model.Lock) DeviceClient { return f(lock) }

// Service aggregates every business service.
type Service struct {
	Auth         AuthService
	Lock         LockService
	ExternalUser ExternalUserService
	Sync         SyncService
	Device       DeviceService
	AccessLog    AccessLogService
}

// NewService creates the Service aggregate.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	directory DirectoryClient,
	devices DeviceClientFactory,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, logger),
		Lock:         NewLockService(repo, directory, logger),
		ExternalUser: NewExternalUserService(cfg, repo, logger),
		Sync:         NewSyncService(cfg, repo, directory, devices, logger),
		Device:       NewDeviceService(repo, devices, logger),
		AccessLog:    NewAccessLogService(repo, devices, logger),
	}
}

// authorizeLock loads a lock and checks the caller may operate on it:
// global admins always may, everyone else must be in its admin list.
func authorizeLock(ctx context.Context, repo *repository.Repository, lockID uint, caller Caller) (*model.Lock, error) {
	lock, err := repo.Lock.GetByID(ctx, lockID)
	if err != nil {
		return nil, ErrLockNotFound
	}
	if caller.Role == model.RoleAdmin {
		return lock, nil
	}
	ok, err := repo.Lock.IsAdmin(ctx, lockID, caller.Codpes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return lock, nil
}
