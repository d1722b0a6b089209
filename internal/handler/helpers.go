package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/middleware"
	"github.com/strata-kb/strata/internal/pkg/errcode"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	id, _ := value.(string)
	return id
}

func getOrgID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextOrgIDKey)
	id, _ := value.(string)
	return id
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	default:
		logutil.GetLogger(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func parsePage(c *gin.Context) (limit uint, offset uint) {
	limit = 50
	if v, ok := parseUintQuery(c, "limit"); ok && v > 0 && v <= 200 {
		limit = v
	}
	if v, ok := parseUintQuery(c, "offset"); ok {
		offset = v
	}
	return limit, offset
}

func parseUintQuery(c *gin.Context, key string) (uint, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}
