package handler

import (
	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/redis"
)

// Handler aggregates every HTTP handler.
type Handler struct {
	Auth         *AuthHandler
	Lock         *LockHandler
	ExternalUser *ExternalUserHandler
	Sync         *SyncHandler
	Device       *DeviceHandler
	AccessLog    *AccessLogHandler
}

// NewHandler creates the Handler aggregate.
func NewHandler(cfg *config.Config, svc *service.Service, rdb *redis.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, rdb),
		Lock:         NewLockHandler(svc.Lock),
		ExternalUser: NewExternalUserHandler(svc.ExternalUser),
		Sync:         NewSyncHandler(cfg, svc.Sync, rdb, logger),
		Device:       NewDeviceHandler(svc.Device),
		AccessLog:    NewAccessLogHandler(svc.AccessLog),
	}
}
