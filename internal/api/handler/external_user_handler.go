package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/response"
)

// ExternalUserHandler manages the guests registered directly on a lock.
type ExternalUserHandler struct {
	extSvc service.ExternalUserService
}

// NewExternalUserHandler creates an ExternalUserHandler.
func NewExternalUserHandler(extSvc service.ExternalUserService) *ExternalUserHandler {
	return &ExternalUserHandler{extSvc: extSvc}
}

// Create registers an external guest on the lock.
// POST /api/v1/fechaduras/:id/externos
func (h *ExternalUserHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	var req dto.CreateExternalUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	user, err := h.extSvc.Create(c.Request.Context(), lockID, &req, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Created(c, user)
}

// List returns the lock's external guests.
// GET /api/v1/fechaduras/:id/externos
func (h *ExternalUserHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	users, err := h.extSvc.ListByLock(c.Request.Context(), lockID, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, gin.H{"list": users})
}

// Delete removes an external guest record. The device enrollment stays until
// cleaned up on the device itself.
// DELETE /api/v1/fechaduras/:id/externos/:external_id
func (h *ExternalUserHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}
	extID, err := strconv.ParseUint(c.Param("external_id"), 10, 32)
	if err != nil || extID == 0 {
		response.BadRequest(c, 10001, "invalid external user id")
		return
	}

	if err := h.extSvc.Delete(c.Request.Context(), lockID, uint(extID), caller); err != nil {
		if errors.Is(err, service.ErrExternalUserNotFound) {
			response.NotFound(c, 15001, "external user not found")
			return
		}
		respondDomainError(c, err)
		return
	}

	response.OK(c, nil)
}
