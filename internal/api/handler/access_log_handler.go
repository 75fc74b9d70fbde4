package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/response"
)

// AccessLogHandler serves a lock's stored access events.
type AccessLogHandler struct {
	logSvc service.AccessLogService
}

// NewAccessLogHandler creates an AccessLogHandler.
func NewAccessLogHandler(logSvc service.AccessLogService) *AccessLogHandler {
	return &AccessLogHandler{logSvc: logSvc}
}

// Pull fetches new access events from the device into storage.
// POST /api/v1/fechaduras/:id/acessos/importar
func (h *AccessLogHandler) Pull(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	result, err := h.logSvc.Pull(c.Request.Context(), lockID, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OK(c, result)
}

// List pages through the stored access events.
// GET /api/v1/fechaduras/:id/acessos
func (h *AccessLogHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	var req dto.AccessLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	logs, total, err := h.logSvc.List(c.Request.Context(), lockID, &req, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.OKPage(c, logs, total, req.Page, req.PageSize)
}

// Export downloads all stored access events of the lock as a spreadsheet.
// GET /api/v1/fechaduras/:id/acessos/exportar
func (h *AccessLogHandler) Export(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	lockID, ok := LockIDParam(c)
	if !ok {
		return
	}

	buf, filename, err := h.logSvc.Export(c.Request.Context(), lockID, caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
