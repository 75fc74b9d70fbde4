package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/redis"
	"github.com/alan-neves/fechaduras/pkg/response"
)

// SyncHandler triggers roster synchronization runs.
type SyncHandler struct {
	cfg     *config.Config
	syncSvc service.SyncService
	rdb     *redis.Client
	logger  *zap.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(cfg *config.Config, syncSvc service.SyncService, rdb *redis.Client, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{cfg: cfg, syncSvc: syncSvc, rdb: rdb, logger: logger}
}

// Synchronize runs one synchronization for the lock. Concurrent runs against
// the same lock are serialized with a best-effort Redis lock: a second request
// while one is in flight gets a 409 instead of racing the device.
// POST /api/v1/fechaduras/:id/sincronizar
func (h *SyncHandler) Synchronize(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	if h.rdb != nil {
		acquired, err := h.rdb.AcquireSyncLock(c.Request.Context(), lockID, h.cfg.Device.SyncLockTTL)
		if err != nil {
			// Redis down degrades to unserialized runs rather than blocking syncs.
			h.logger.Warn("sync lock unavailable, proceeding without it",
				zap.Uint("lock_id", lockID), zap.Error(err))
		} else if !acquired {
			response.Error(c, http.StatusConflict, 16001, "a synchronization for this fechadura is already running")
			return
		} else {
			defer func() {
				_ = h.rdb.ReleaseSyncLock(c.Request.Context(), lockID)
			}()
		}
	}

	result, err := h.syncSvc.Synchronize(c.Request.Context(), lockID, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, result)
}
