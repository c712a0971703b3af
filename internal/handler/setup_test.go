package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubHTMLRender struct {
	lastName string
	lastData interface{}
}

type stubHTMLInstance struct {
	owner *stubHTMLRender
	name  string
	data  interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	r.lastName = name
	r.lastData = data
	return &stubHTMLInstance{owner: r, name: name, data: data}
}

func (r *stubHTMLInstance) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	_, err := w.Write([]byte(r.name))
	return err
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

type testEnv struct {
	api         *API
	db          *gorm.DB
	registry    *prom.Registry
	templateDir string
	uploadDir   string
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := db.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}, block.Default().Models()...)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := gdb.Create(&db.User{Username: "tester", Password: string(hashed)}).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	env := &testEnv{
		db:          gdb,
		registry:    prom.NewRegistry(),
		templateDir: t.TempDir(),
		uploadDir:   t.TempDir(),
	}
	env.api = NewAPI(gdb, Options{
		TemplateDir: env.templateDir,
		UploadDir:   env.uploadDir,
		UploadURL:   "/static/uploads",
		Logger:      zerolog.Nop(),
		Recorder:    metrics.NewRecorder(env.registry),
	})
	return env
}

// engine 构造带会话与桩 HTML 渲染器的路由，供需要完整中间件链的测试使用。
func (e *testEnv) engine() (*gin.Engine, *stubHTMLRender) {
	r := gin.New()
	htmlRender := &stubHTMLRender{}
	r.HTMLRender = htmlRender
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	return r, htmlRender
}

func (e *testEnv) writeTemplate(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(e.templateDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create template dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
}

func (e *testEnv) seedTemplate(t *testing.T, file string, blockNames ...string) (db.PageTemplate, []db.Region) {
	t.Helper()
	tpl := db.PageTemplate{Name: file, TemplateFile: file}
	if err := e.db.Create(&tpl).Error; err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	regions := make([]db.Region, 0, len(blockNames))
	for _, name := range blockNames {
		region := db.Region{Name: name, BlockName: name, TemplateID: tpl.ID}
		if err := e.db.Create(&region).Error; err != nil {
			t.Fatalf("failed to seed region: %v", err)
		}
		regions = append(regions, region)
	}
	return tpl, regions
}

func (e *testEnv) seedPage(t *testing.T, slug string, parent *db.Page, templateID uint) db.Page {
	t.Helper()
	page := db.Page{Title: strings.ToUpper(slug), Slug: slug, TemplateID: templateID, IsPublished: true}
	if parent != nil {
		page.ParentID = &parent.ID
	}
	if err := e.db.Create(&page).Error; err != nil {
		t.Fatalf("failed to seed page %s: %v", slug, err)
	}
	return page
}

// counterValue 读取计数器某个标签值下的当前数值。
func (e *testEnv) counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := e.registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
