package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceTestDB 只做 AutoMigrate，不创建已发布 slug 的唯一索引，
// 以便测试能够构造出数据完整性被破坏的场景。
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	models := append(db.Models(), block.Default().Models()...)
	if err := gdb.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func seedTemplate(t *testing.T, gdb *gorm.DB, file string, blockNames ...string) (db.PageTemplate, []db.Region) {
	t.Helper()
	tpl := db.PageTemplate{Name: file, TemplateFile: file}
	if err := gdb.Create(&tpl).Error; err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}

	regions := make([]db.Region, 0, len(blockNames))
	for _, name := range blockNames {
		region := db.Region{Name: name, BlockName: name, TemplateID: tpl.ID}
		if err := gdb.Create(&region).Error; err != nil {
			t.Fatalf("failed to seed region: %v", err)
		}
		regions = append(regions, region)
	}
	return tpl, regions
}

func seedPage(t *testing.T, gdb *gorm.DB, slug string, parent *db.Page, templateID uint, published bool) db.Page {
	t.Helper()
	page := db.Page{Title: strings.ToUpper(slug), Slug: slug, TemplateID: templateID, IsPublished: published}
	if parent != nil {
		page.ParentID = &parent.ID
	}
	if err := gdb.Create(&page).Error; err != nil {
		t.Fatalf("failed to seed page %s: %v", slug, err)
	}
	return page
}
