package db

import (
	"path"
	"strings"
	"time"
)

// PageTemplate 描述一个页面布局文件，并声明若干 Region。
type PageTemplate struct {
	ID           uint     `gorm:"primaryKey"`
	Name         string   `gorm:"size:255"`
	TemplateFile string   `gorm:"size:200;not null"`
	Regions      []Region `gorm:"foreignKey:TemplateID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName falls back to the file name when no explicit name was given.
func (t PageTemplate) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return path.Base(t.TemplateFile)
}

// Region 是模板中的一个命名插槽，BlockName 为渲染时注入模板上下文的键名。
type Region struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:255;not null"`
	BlockName  string `gorm:"size:255;not null"`
	TemplateID uint   `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
