package handler

import (
	"errors"
	"net/http"

	"github.com/barebonescms/internal/metrics"
	"github.com/barebonescms/internal/service"
	"github.com/gin-gonic/gin"
)

// ServePage 是兜底路由：把请求路径解析为已发布页面并渲染。
// 不存在与存在歧义的路径都返回 404，歧义额外记录告警与指标。
func (a *API) ServePage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	path := c.Request.URL.Path
	page, err := a.pages.ResolvePath(path)
	if err != nil {
		logger := a.log(c)
		switch {
		case errors.Is(err, service.ErrPathAmbiguous):
			a.recorder.ObserveResolution(metrics.ResultAmbiguous)
			logger.Warn().Str("path", path).Msg("multiple published pages match path")
			c.String(http.StatusNotFound, "404 page not found")
		case errors.Is(err, service.ErrPageNotFound):
			a.recorder.ObserveResolution(metrics.ResultNotFound)
			c.String(http.StatusNotFound, "404 page not found")
		default:
			c.Error(err)
			logger.Error().Err(err).Str("path", path).Msg("resolve page failed")
			c.String(http.StatusInternalServerError, "页面加载失败")
		}
		return
	}
	a.recorder.ObserveResolution(metrics.ResultFound)

	out, err := a.assembler.Render(page)
	if err != nil {
		c.Error(err)
		logger := a.log(c)
		logger.Error().Err(err).Uint("page_id", page.ID).Msg("render page failed")
		c.String(http.StatusInternalServerError, "页面渲染失败")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", out)
}
