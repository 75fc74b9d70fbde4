package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/replicado"
	"github.com/alan-neves/fechaduras/internal/repository"
)

// LockService manages registered locks, their unit and program associations
// and their manual user list. Create/Update/Delete are restricted to global
// admins; association changes need per-lock admin rights.
type LockService interface {
	Create(ctx context.Context, req *dto.CreateLockRequest, caller Caller) (*dto.LockResponse, error)
	GetByID(ctx context.Context, id uint, caller Caller) (*dto.LockResponse, error)
	List(ctx context.Context, caller Caller) ([]dto.LockResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateLockRequest, caller Caller) (*dto.LockResponse, error)
	Delete(ctx context.Context, id uint, caller Caller) error

	SetUnits(ctx context.Context, id uint, codes []string, caller Caller) error
	SetPrograms(ctx context.Context, id uint, codes []string, caller Caller) error
	AttachUsers(ctx context.Context, id uint, codpes []int, caller Caller) (*dto.AttachUsersResponse, error)
	DetachUser(ctx context.Context, id uint, codpes int, caller Caller) error
	ListPrograms(ctx context.Context) ([]dto.ProgramResponse, error)
}

type lockService struct {
	repo      *repository.Repository
	directory DirectoryClient
	logger    *zap.Logger
}

// NewLockService creates a LockService instance.
func NewLockService(repo *repository.Repository, directory DirectoryClient, logger *zap.Logger) LockService {
	return &lockService{repo: repo, directory: directory, logger: logger}
}

// ────────────────────── CRUD ──────────────────────

func (s *lockService) Create(ctx context.Context, req *dto.CreateLockRequest, caller Caller) (*dto.LockResponse, error) {
	if caller.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}

	port := req.Port
	if port == 0 {
		port = 80
	}
	lock := &model.Lock{
		Location:    req.Location,
		IP:          req.IP,
		Port:        port,
		APIUser:     req.APIUser,
		APIPassword: req.APIPassword,
	}

	if err := s.repo.Lock.Create(ctx, lock); err != nil {
		s.logger.Error("creating fechadura failed", zap.Error(err))
		return nil, err
	}

	return s.toLockResponse(lock), nil
}

func (s *lockService) GetByID(ctx context.Context, id uint, caller Caller) (*dto.LockResponse, error) {
	lock, err := authorizeLock(ctx, s.repo, id, caller)
	if err != nil {
		return nil, err
	}
	return s.toLockResponse(lock), nil
}

// List returns every lock for global admins and only administered locks for
// everyone else.
func (s *lockService) List(ctx context.Context, caller Caller) ([]dto.LockResponse, error) {
	var (
		locks []model.Lock
		err   error
	)
	if caller.Role == model.RoleAdmin {
		locks, err = s.repo.Lock.List(ctx)
	} else {
		locks, err = s.repo.Lock.ListByAdmin(ctx, caller.Codpes)
	}
	if err != nil {
		s.logger.Error("listing fechaduras failed", zap.Error(err))
		return nil, err
	}

	result := make([]dto.LockResponse, 0, len(locks))
	for i := range locks {
		result = append(result, *s.toLockResponse(&locks[i]))
	}
	return result, nil
}

func (s *lockService) Update(ctx context.Context, id uint, req *dto.UpdateLockRequest, caller Caller) (*dto.LockResponse, error) {
	if caller.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}

	lock, err := s.repo.Lock.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLockNotFound
		}
		return nil, err
	}

	if req.Location != nil {
		lock.Location = *req.Location
	}
	if req.IP != nil {
		lock.IP = *req.IP
	}
	if req.Port != nil {
		lock.Port = *req.Port
	}
	if req.APIUser != nil {
		lock.APIUser = *req.APIUser
	}
	// the API password only changes when one is given
	if req.APIPassword != nil && *req.APIPassword != "" {
		lock.APIPassword = *req.APIPassword
	}

	if err := s.repo.Lock.Update(ctx, lock); err != nil {
		s.logger.Error("updating fechadura failed", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return s.toLockResponse(lock), nil
}

func (s *lockService) Delete(ctx context.Context, id uint, caller Caller) error {
	if caller.Role != model.RoleAdmin {
		return ErrForbidden
	}
	if _, err := s.repo.Lock.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLockNotFound
		}
		return err
	}
	return s.repo.Lock.Delete(ctx, id)
}

// ────────────────────── associations ──────────────────────

func (s *lockService) SetUnits(ctx context.Context, id uint, codes []string, caller Caller) error {
	if _, err := authorizeLock(ctx, s.repo, id, caller); err != nil {
		return err
	}
	if err := s.repo.Lock.ReplaceUnits(ctx, id, codes); err != nil {
		s.logger.Error("replacing units failed", zap.Uint("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *lockService) SetPrograms(ctx context.Context, id uint, codes []string, caller Caller) error {
	if _, err := authorizeLock(ctx, s.repo, id, caller); err != nil {
		return err
	}
	if err := s.repo.Lock.ReplacePrograms(ctx, id, codes); err != nil {
		s.logger.Error("replacing programs failed", zap.Uint("id", id), zap.Error(err))
		return err
	}
	return nil
}

// AttachUsers validates the given registration numbers against the directory,
// stores the known people and attaches them to the lock. Unknown numbers come
// back in the response instead of failing the whole request.
func (s *lockService) AttachUsers(ctx context.Context, id uint, codpes []int, caller Caller) (*dto.AttachUsersResponse, error) {
	if _, err := authorizeLock(ctx, s.repo, id, caller); err != nil {
		return nil, err
	}

	people, err := s.directory.ValidatePersons(ctx, codpes)
	if err != nil {
		s.logger.Error("directory validation failed", zap.Error(err))
		return nil, err
	}

	known := make(map[int]replicado.Person, len(people))
	for _, p := range people {
		known[p.Codpes] = p
	}

	resp := &dto.AttachUsersResponse{}
	for _, n := range codpes {
		p, ok := known[n]
		if !ok {
			resp.Unknown = append(resp.Unknown, n)
			continue
		}
		if err := s.repo.User.Upsert(ctx, &model.User{Codpes: p.Codpes, Name: p.Name, Role: model.RoleUser}); err != nil {
			return nil, err
		}
		if err := s.repo.Lock.AttachUser(ctx, id, p.Codpes); err != nil {
			return nil, err
		}
		resp.Attached = append(resp.Attached, n)
	}
	return resp, nil
}

func (s *lockService) DetachUser(ctx context.Context, id uint, codpes int, caller Caller) error {
	if _, err := authorizeLock(ctx, s.repo, id, caller); err != nil {
		return err
	}
	return s.repo.Lock.DetachUser(ctx, id, codpes)
}

// ListPrograms exposes the directory's active graduate programs for the
// association form.
func (s *lockService) ListPrograms(ctx context.Context) ([]dto.ProgramResponse, error) {
	programs, err := s.directory.ListActivePrograms(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProgramResponse, 0, len(programs))
	for _, p := range programs {
		result = append(result, dto.ProgramResponse{Codare: p.Codare, Name: p.Name})
	}
	return result, nil
}

// ── helpers ──

func (s *lockService) toLockResponse(lock *model.Lock) *dto.LockResponse {
	return &dto.LockResponse{
		ID:        lock.ID,
		Location:  lock.Location,
		IP:        lock.IP,
		Port:      lock.Port,
		Units:     lock.UnitCodes(),
		Programs:  lock.ProgramCodes(),
		CreatedAt: lock.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: lock.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
