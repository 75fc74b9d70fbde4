package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/repository"
	"github.com/alan-neves/fechaduras/pkg/jwt"
)

// ── auth business errors ──

var (
	ErrInvalidCredentials = errors.New("invalid codpes or password")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles login and token lifecycle.
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, codpes int) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, codpes int, req *dto.ChangePasswordRequest) error
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	logger *zap.Logger
}

// NewAuthService creates an AuthService instance.
func NewAuthService(repo *repository.Repository, jwtMgr *jwt.Manager, logger *zap.Logger) AuthService {
	return &authService{repo: repo, jwtMgr: jwtMgr, logger: logger}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.repo.User.GetByCodpes(ctx, req.Codpes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("loading user failed", zap.Int("codpes", req.Codpes), zap.Error(err))
		return nil, err
	}

	if user.Password == "" {
		// manual roster entries have no credentials at all
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user.Codpes, user.Role)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims.TokenType != "refresh" {
		return nil, ErrInvalidCredentials
	}

	// role may have changed since the refresh token was issued
	user, err := s.repo.User.GetByCodpes(ctx, claims.Codpes)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user.Codpes, user.Role)
}

func (s *authService) GetCurrentUser(ctx context.Context, codpes int) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByCodpes(ctx, codpes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &dto.UserResponse{
		Codpes: user.Codpes,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, codpes int, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByCodpes(ctx, codpes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.User.UpdatePassword(ctx, codpes, string(hash)); err != nil {
		s.logger.Error("updating password failed", zap.Int("codpes", codpes), zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) issueTokens(codpes int, role string) (*dto.TokenResponse, error) {
	access, err := s.jwtMgr.GenerateAccessToken(codpes, role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwtMgr.GenerateRefreshToken(codpes, role)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtMgr.AccessTokenTTL().Seconds()),
	}, nil
}
