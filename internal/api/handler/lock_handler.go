package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/response"
)

// LockHandler handles lock CRUD and roster-source associations.
type LockHandler struct {
	lockSvc service.LockService
}

// NewLockHandler creates a LockHandler.
func NewLockHandler(lockSvc service.LockService) *LockHandler {
	return &LockHandler{lockSvc: lockSvc}
}

// ListLocks returns the locks visible to the caller.
// GET /api/v1/fechaduras
func (h *LockHandler) ListLocks(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	locks, err := h.lockSvc.List(c.Request.Context(), caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, gin.H{"list": locks})
}

// GetLock returns one lock with its associations.
// GET /api/v1/fechaduras/:id
func (h *LockHandler) GetLock(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := LockIDParam(c)
	if !ok {
		return
	}

	lock, err := h.lockSvc.GetByID(c.Request.Context(), id, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, lock)
}

// CreateLock registers a new lock device.
// POST /api/v1/fechaduras
func (h *LockHandler) CreateLock(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	lock, err := h.lockSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Created(c, lock)
}

// UpdateLock edits a lock's address or credentials.
// PUT /api/v1/fechaduras/:id
func (h *LockHandler) UpdateLock(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := LockIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	lock, err := h.lockSvc.Update(c.Request.Context(), id, &req, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, lock)
}

// DeleteLock removes a lock and its associations.
// DELETE /api/v1/fechaduras/:id
func (h *LockHandler) DeleteLock(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := LockIDParam(c)
	if !ok {
		return
	}

	if err := h.lockSvc.Delete(c.Request.Context(), id, caller); err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetUnits replaces the lock's organizational-unit code set.
// PUT /api/v1/fechaduras/:id/setores
func (h *LockHandler) SetUnits(c *gin.Context) {
	h.setCodes(c, h.lockSvc.SetUnits)
}

// SetPrograms replaces the lock's graduate-program code set.
// PUT /api/v1/fechaduras/:id/areas
func (h *LockHandler) SetPrograms(c *gin.Context) {
	h.setCodes(c, h.lockSvc.SetPrograms)
}

func (h *LockHandler) setCodes(c *gin.Context, apply func(ctx context.Context, id uint, codes []string, caller service.Caller) error) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := LockIDParam(c)
	if !ok {
		return
	}

	var req dto.SetCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	if err := apply(c.Request.Context(), id, req.Codes, caller); err != nil {
		respondDomainError(c, err)
		return
	}
	response.OK(c, nil)
}

// AttachUsers attaches manual users after validating them in the directory.
// POST /api/v1/fechaduras/:id/usuarios
func (h *LockHandler) AttachUsers(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := LockIDParam(c)
	if !ok {
		return
	}

	var req dto.AttachUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	result, err := h.lockSvc.AttachUsers(c.Request.Context(), id, req.Codpes, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, result)
}

// DetachUser removes one manual user from the lock.
// DELETE /api/v1/fechaduras/:id/usuarios/:codpes
func (h *LockHandler) DetachUser(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := LockIDParam(c)
	if !ok {
		return
	}
	codpes, err := strconv.Atoi(c.Param("codpes"))
	if err != nil || codpes <= 0 {
		response.BadRequest(c, 10001, "invalid codpes")
		return
	}

	if err := h.lockSvc.DetachUser(c.Request.Context(), id, codpes, caller); err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListPrograms lists the directory's active graduate programs.
// GET /api/v1/replicado/programas
func (h *LockHandler) ListPrograms(c *gin.Context) {
	programs, err := h.lockSvc.ListPrograms(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	response.OK(c, gin.H{"list": programs})
}
