package handler

import (
	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/logging"
	"github.com/barebonescms/internal/metrics"
	"github.com/barebonescms/internal/render"
	"github.com/barebonescms/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Options 汇总 API 除数据库之外的依赖。
type Options struct {
	TemplateDir string
	UploadDir   string
	UploadURL   string
	Logger      zerolog.Logger
	Recorder    *metrics.Recorder
	Registry    *block.Registry
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	pages     *service.PageService
	templates *service.TemplateService
	regions   *service.RegionService
	blocks    *service.ContentBlockService
	assembler *render.Assembler
	logger    zerolog.Logger
	recorder  *metrics.Recorder

	templateDir string
	uploadDir   string
	uploadURL   string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	regions := service.NewRegionService(gdb)
	blocks := service.NewContentBlockService(gdb, opts.Registry)
	renderer := render.New(opts.TemplateDir, opts.Recorder)

	return &API{
		db:          gdb,
		pages:       service.NewPageService(gdb),
		templates:   service.NewTemplateService(gdb),
		regions:     regions,
		blocks:      blocks,
		assembler:   render.NewAssembler(renderer, regions, blocks),
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		templateDir: opts.TemplateDir,
		uploadDir:   opts.UploadDir,
		uploadURL:   opts.UploadURL,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

func (a *API) log(c *gin.Context) zerolog.Logger {
	return logging.FromContext(c, a.logger)
}

// renderHTML 渲染后台页面，并附加当前登录用户名。
func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["username"]; !exists {
		payload["username"] = currentUsername(c)
	}
	if _, exists := payload["title"]; !exists {
		payload["title"] = "Barebones CMS"
	}

	c.HTML(status, template, payload)
}
