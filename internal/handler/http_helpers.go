package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/barebonescms/internal/render"
	"github.com/barebonescms/internal/service"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseOptionalID 解析可选的 ID，空串与 0 视为未指定。
func parseOptionalID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	value := uint(id)
	return &value, nil
}

// statusFor 把服务层错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSlugConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrRegionNotFound),
		errors.Is(err, service.ErrBlockNotFound),
		errors.Is(err, service.ErrLinkNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidSlug),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTitleTooLong),
		errors.Is(err, service.ErrInvalidParent),
		errors.Is(err, service.ErrTemplateFileMissing),
		errors.Is(err, service.ErrRegionNameMissing),
		errors.Is(err, service.ErrInvalidBlockName),
		errors.Is(err, service.ErrUnknownBlockType),
		errors.Is(err, service.ErrBlockInvalid),
		errors.Is(err, service.ErrBlockIDAssigned),
		errors.Is(err, service.ErrRegionMismatch),
		errors.Is(err, render.ErrTemplatePath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError 对 4xx 直接返回错误信息，5xx 记录原因后返回 fallback。
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
		logger := a.log(c)
		logger.Error().Err(err).Msg(fallback)
		respondError(c, status, fallback)
		return
	}
	respondError(c, status, err.Error())
}
