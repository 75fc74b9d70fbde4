package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alan-neves/fechaduras/internal/controlid"
	"github.com/alan-neves/fechaduras/internal/replicado"
	"github.com/alan-neves/fechaduras/internal/service"
	"github.com/alan-neves/fechaduras/pkg/response"
)

// MustGetCaller extracts the authenticated caller injected by JWTAuth.
// On failure a 401 is written and ok is false; the handler must return.
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	codpes, exists := c.Get("codpes")
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return service.Caller{}, false
	}
	role, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return service.Caller{}, false
	}

	n, okCodpes := codpes.(int)
	r, okRole := role.(string)
	if !okCodpes || !okRole || n == 0 {
		response.Unauthorized(c, 10002, "not authenticated")
		return service.Caller{}, false
	}
	return service.Caller{Codpes: n, Role: r}, true
}

// LockIDParam parses the :id path parameter.
func LockIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "invalid fechadura id")
		return 0, false
	}
	return uint(id), true
}

// respondDomainError maps the shared domain errors onto HTTP replies.
// Directory and device failures get distinct messages since they imply
// different remediation.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLockNotFound):
		response.NotFound(c, 14001, "fechadura not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "you do not administer this fechadura")
	case errors.Is(err, replicado.ErrUnavailable):
		response.BadGateway(c, 20001, "could not reach the directory service")
	case errors.Is(err, controlid.ErrUnreachable):
		response.BadGateway(c, 20002, "could not reach the lock device")
	case errors.Is(err, controlid.ErrRejected):
		response.BadGateway(c, 20003, "the lock device rejected the request")
	default:
		response.InternalError(c)
	}
}
