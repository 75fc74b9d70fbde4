package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/response"
)

// DeviceHandler exposes direct operations on a lock's onboard API.
type DeviceHandler struct {
	deviceSvc service.DeviceService
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(deviceSvc service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceSvc: deviceSvc}
}

// ListUsers returns the live user list from the device.
// GET /api/v1/fechaduras/:id/dispositivo/usuarios
func (h *DeviceHandler) ListUsers(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	users, err := h.deviceSvc.ListUsers(c.Request.Context(), lockID, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, gin.H{"list": users})
}

// SetPassword sets the keypad password of one device user.
// PUT /api/v1/fechaduras/:id/dispositivo/usuarios/:user_id/senha
func (h *DeviceHandler) SetPassword(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}
	userID, ok := deviceUserIDParam(c)
	if !ok {
		return
	}

	var req dto.SetDevicePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	if err := h.deviceSvc.SetPassword(c.Request.Context(), lockID, userID, req.Password, caller); err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetPhoto uploads a face photo for one device user. The body is the raw
// JPEG, the same format the device expects.
// PUT /api/v1/fechaduras/:id/dispositivo/usuarios/:user_id/foto
func (h *DeviceHandler) SetPhoto(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}
	userID, ok := deviceUserIDParam(c)
	if !ok {
		return
	}

	jpeg, err := io.ReadAll(c.Request.Body)
	if err != nil || len(jpeg) == 0 {
		response.BadRequest(c, 10001, "missing photo body")
		return
	}

	if err := h.deviceSvc.SetPhoto(c.Request.Context(), lockID, userID, jpeg, caller); err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, nil)
}

func deviceUserIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "invalid device user id")
		return 0, false
	}
	return id, true
}
