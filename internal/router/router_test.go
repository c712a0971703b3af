package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T, uploadDir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
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

	return SetupRouter(gdb, Options{
		SessionSecret: "test-secret",
		TemplateDir:   t.TempDir(),
		UploadDir:     uploadDir,
		UploadURL:     "/static/uploads",
		Logger:        zerolog.Nop(),
		Registry:      prom.NewRegistry(),
	})
}

func TestSetupRouterServesUploads(t *testing.T) {
	uploadDir := t.TempDir()
	fileName := "example.txt"
	fileContent := []byte("hello uploads")
	if err := os.WriteFile(filepath.Join(uploadDir, fileName), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r := setupTestRouter(t, uploadDir)

	req := httptest.NewRequest(http.MethodGet, "/static/uploads/"+fileName, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(fileContent) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestSetupRouterPublicRoutes(t *testing.T) {
	r := setupTestRouter(t, t.TempDir())

	tests := []struct {
		name     string
		path     string
		status   int
		location string
		contains string
	}{
		{name: "ping", path: "/ping", status: http.StatusOK, contains: "pong"},
		{name: "login page", path: "/dashboard/login", status: http.StatusOK, contains: `name="username"`},
		{name: "dashboard redirect", path: "/dashboard/cms/pages", status: http.StatusFound, location: "/dashboard/login"},
		{name: "api unauthorized", path: "/dashboard/api/pages", status: http.StatusUnauthorized},
		{name: "unknown page", path: "/about/", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			if tt.location != "" && rr.Header().Get("Location") != tt.location {
				t.Fatalf("expected redirect to %q, got %q", tt.location, rr.Header().Get("Location"))
			}
			if tt.contains != "" && !strings.Contains(rr.Body.String(), tt.contains) {
				t.Fatalf("expected body to contain %q, got %q", tt.contains, rr.Body.String())
			}
		})
	}
}

func TestSetupRouterExposesMetrics(t *testing.T) {
	r := setupTestRouter(t, t.TempDir())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing/", nil))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `cms_page_resolutions_total{result="not_found"} 1`) {
		t.Fatalf("expected resolution metric, got %q", rr.Body.String())
	}
}
