package router

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/handler"
	"github.com/barebonescms/internal/logging"
	"github.com/barebonescms/internal/metrics"
	"github.com/barebonescms/web"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const sessionName = "barebonescms_session"

// Options 描述路由依赖的运行参数。
type Options struct {
	SessionSecret string
	TemplateDir   string
	UploadDir     string
	UploadURL     string
	Logger        zerolog.Logger
	// Registry 为空时使用独立的 Prometheus registry。
	Registry *prom.Registry
}

// SetupRouter 配置 Gin 引擎和路由；gdb 为空时使用 db.DB。
func SetupRouter(gdb *gorm.DB, opts Options) *gin.Engine {
	if gdb == nil {
		gdb = db.DB
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(opts.Logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	// 后台模板随二进制一起嵌入
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(web.Templates, "templates/*.html")))

	recorder := metrics.NewRecorder(opts.Registry)
	api := handler.NewAPI(gdb, handler.Options{
		TemplateDir: opts.TemplateDir,
		UploadDir:   opts.UploadDir,
		UploadURL:   opts.UploadURL,
		Logger:      opts.Logger,
		Recorder:    recorder,
		Registry:    block.Default(),
	})

	uploadURL := "/" + strings.Trim(strings.TrimSpace(opts.UploadURL), "/")
	if uploadURL != "/" && strings.TrimSpace(opts.UploadDir) != "" {
		r.Static(uploadURL, opts.UploadDir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(recorder.Handler()))

	// 后台管理路由
	dashboard := r.Group("/dashboard")
	{
		dashboard.GET("/login", api.ShowLoginPage)
		dashboard.POST("/login", api.Login)
		dashboard.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := dashboard.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("", func(c *gin.Context) {
				c.Redirect(http.StatusFound, "/dashboard/cms/pages")
			})

			cms := auth.Group("/cms")
			{
				cms.GET("/pages", api.ShowPageIndex)
				cms.GET("/pages/create", api.ShowPageCreate)
				cms.GET("/pages/edit/:id", api.ShowPageEdit)
				cms.GET("/page-template/create", api.ShowTemplateCreate)
				cms.GET("/template-region/create", api.ShowRegionCreate)
				cms.GET("/content-block/create/:page/:region/:type", api.ShowContentBlockCreate)
			}

			// API路由
			apiGroup := auth.Group("/api")
			{
				apiGroup.GET("/pages", api.ListPages)
				apiGroup.GET("/page-tree", api.PageTree)
				apiGroup.GET("/pages/:id", api.GetPage)
				apiGroup.POST("/pages", api.CreatePage)
				apiGroup.PUT("/pages/:id", api.UpdatePage)
				apiGroup.DELETE("/pages/:id", api.DeletePage)
				apiGroup.POST("/pages/:id/publish", api.PublishPage)
				apiGroup.GET("/pages/:id/blocks", api.PageBlocksInfo)
				apiGroup.POST("/pages/:id/blocks/:type", api.CreateContentBlock)

				apiGroup.GET("/templates", api.ListTemplates)
				apiGroup.POST("/templates", api.CreateTemplate)
				apiGroup.PUT("/templates/:id", api.UpdateTemplate)
				apiGroup.GET("/templates/:id/regions", api.ListRegions)
				apiGroup.POST("/regions", api.CreateRegion)

				apiGroup.GET("/block-types", api.ListBlockTypes)
				apiGroup.PUT("/blocks/:type/:id/link", api.RelinkContentBlock)
				apiGroup.DELETE("/links/:id", api.UnlinkContentBlock)

				apiGroup.POST("/upload/partial", api.UploadPartial)
				apiGroup.POST("/upload/image", api.UploadImage)
			}
		}
	}

	// 其余路径交给页面树解析
	r.NoRoute(api.ServePage)

	return r
}
