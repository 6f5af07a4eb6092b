package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/services"
	"github.com/huangang/annoreview/pkg/logger"
	"github.com/huangang/annoreview/pkg/response"
)

// respondError translates a service error into the response envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
		return
	case errors.Is(err, services.ErrUserDisabled):
		response.Forbidden(c, err.Error())
		return
	case errors.Is(err, services.ErrInvalidAuthType):
		response.BadRequest(c, err.Error())
		return
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("unclassified error")
		response.Error(c, err)
		return
	}

	switch appErr.Kind {
	case apperr.KindNotFound:
		response.NotFound(c, appErr.Message)
	case apperr.KindValidation:
		response.BadRequest(c, appErr.Error())
	case apperr.KindConflict:
		response.Conflict(c, appErr.Message)
	case apperr.KindEncoding:
		response.Error(c, response.NewUnsupportedMediaType(appErr.Message))
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("persistence failure")
		response.ServerError(c, "internal server error")
	}
}

func uintParam(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+label+" id")
		return 0, false
	}
	return uint(id), true
}

func projectIDParam(c *gin.Context) (uint, bool) {
	return uintParam(c, "id", "project")
}
