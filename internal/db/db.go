package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// publishedSlugIndex 保证同一父节点下已发布页面的 slug 唯一。
// 根页面的 parent_id 为 NULL，使用 IFNULL 归一为 0，避免 NULL 互不相等导致索引失效。
const publishedSlugIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_published_slug
ON pages (IFNULL(parent_id, 0), slug)
WHERE is_published = 1`

// Models 返回核心模型；内容块模型由注册表提供，迁移时一并传入。
func Models() []any {
	return []any{
		&User{},
		&PageTemplate{},
		&Region{},
		&Page{},
		&ContentBlockLink{},
	}
}

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 barebonescms.db。
func Init(databasePath string, blockModels ...any) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "barebonescms.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := Open(sqlite.Open(path), &gorm.Config{}, blockModels...)
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 打开连接并迁移模式，测试中可传入内存数据库。
func Open(dialector gorm.Dialector, cfg *gorm.Config, blockModels ...any) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	cfg.TranslateError = true

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb, blockModels...); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 为核心模型建表，并创建已发布 slug 的唯一索引。
func Migrate(gdb *gorm.DB, blockModels ...any) error {
	if err := gdb.AutoMigrate(append(Models(), blockModels...)...); err != nil {
		return err
	}
	return gdb.Exec(publishedSlugIndex).Error
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
