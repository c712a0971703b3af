package db

import (
	"strings"
	"time"
)

// Page 是内容树中的一个节点，位置由 ParentID 决定，访问路径由祖先链上的 slug 拼接而成。
// 页面只做软删除（IsDeleted），从不物理删除。
type Page struct {
	ID          uint         `gorm:"primaryKey"`
	ParentID    *uint        `gorm:"index"`
	Parent      *Page        `gorm:"constraint:OnDelete:RESTRICT"`
	Children    []Page       `gorm:"foreignKey:ParentID"`
	Title       string       `gorm:"size:255;not null"`
	Body        string       `gorm:"type:text"`
	Slug        string       `gorm:"size:100;not null;index"`
	TemplateID  uint         `gorm:"not null;index"`
	Template    PageTemplate `gorm:"constraint:OnDelete:RESTRICT"`
	IsDeleted   bool         `gorm:"not null;default:false"`
	IsPublished bool         `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsRoot reports whether the page sits at the top of the tree.
func (p Page) IsRoot() bool {
	return p.ParentID == nil
}

// maxLabelDepth bounds the ancestor chain Label follows.
const maxLabelDepth = 256

// Label 返回后台展示用的名称，逐级展开祖先，形如 "about > team > alice"。
// 只展开已加载的 Parent 链。
func (p Page) Label() string {
	parts := []string{p.Slug}
	for parent, depth := p.Parent, 0; parent != nil && depth < maxLabelDepth; parent, depth = parent.Parent, depth+1 {
		parts = append(parts, parent.Slug)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
