package db

import (
	"html/template"
	"time"

	"github.com/barebonescms/internal/markup"
)

// ContentBlock is implemented by every linkable block variant.
type ContentBlock interface {
	BlockID() uint
	BlockName() string
	BlockPartial() string
	BlockOrder() *int
}

// ContentBlockLink 以 (ContentType, ObjectID) 多态地把一个内容块挂到页面和区域上。
// RegionID 为空时表示仅属于页面本身的内容块。
type ContentBlockLink struct {
	ID          uint    `gorm:"primaryKey"`
	PageID      uint    `gorm:"not null;index"`
	Page        Page    `gorm:"constraint:OnDelete:CASCADE"`
	RegionID    *uint   `gorm:"index"`
	Region      *Region `gorm:"constraint:OnDelete:SET NULL"`
	ObjectID    uint    `gorm:"not null;index"`
	ContentType string  `gorm:"size:64;not null;index"`
	CreatedAt   time.Time
}

// BaseContentBlock 汇总所有内容块共享的字段，由具体类型嵌入。
type BaseContentBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id" form:"-"`
	Name      string    `gorm:"size:255;not null" json:"name" form:"name" binding:"required"`
	Partial   string    `gorm:"size:200;not null" json:"partial" form:"partial" binding:"required"`
	Order     *int      `json:"order" form:"order"`
	CreatedAt time.Time `json:"createdAt" form:"-"`
	UpdatedAt time.Time `json:"updatedAt" form:"-"`
}

func (b BaseContentBlock) BlockID() uint        { return b.ID }
func (b BaseContentBlock) BlockName() string    { return b.Name }
func (b BaseContentBlock) BlockPartial() string { return b.Partial }
func (b BaseContentBlock) BlockOrder() *int     { return b.Order }

// SimpleContentBlock holds a single short line of text.
type SimpleContentBlock struct {
	BaseContentBlock
	Content string `gorm:"size:255" json:"content" form:"content"`
}

// MarkdownContentBlock 保存 markdown 文本，渲染时转换为清洗后的 HTML。
type MarkdownContentBlock struct {
	BaseContentBlock
	Markdown string `gorm:"type:text" json:"markdown" form:"markdown"`
}

// HTML renders the block's markdown.
func (b MarkdownContentBlock) HTML() template.HTML {
	return markup.Markdown(b.Markdown)
}

// ImageContentBlock 引用一张已上传的图片，尺寸在上传时记录。
type ImageContentBlock struct {
	BaseContentBlock
	ImageURL string `gorm:"size:500;not null" json:"imageUrl" form:"image_url" binding:"required"`
	Alt      string `gorm:"size:255" json:"alt" form:"alt"`
	Width    int    `json:"width" form:"width"`
	Height   int    `json:"height" form:"height"`
}
