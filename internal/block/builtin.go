package block

import "github.com/barebonescms/internal/db"

// Type tags of the built-in variants. They are stored in content_block_links.content_type,
// so renaming one orphans existing links.
const (
	TypeSimple   = "simple"
	TypeMarkdown = "markdown"
	TypeImage    = "image"
)

// defaultRegistry lists the linkable variants. A new variant needs a model in package db and an entry here.
var defaultRegistry = NewRegistry(
	Entry{
		Label: "Simple Content Block",
		Type:  TypeSimple,
		New:   func() db.ContentBlock { return &db.SimpleContentBlock{} },
		Fields: []Field{
			{Name: "content", Label: "Content", Kind: KindText},
		},
	},
	Entry{
		Label: "Markdown Content Block",
		Type:  TypeMarkdown,
		New:   func() db.ContentBlock { return &db.MarkdownContentBlock{} },
		Fields: []Field{
			{Name: "markdown", Label: "Markdown", Kind: KindTextarea},
		},
	},
	Entry{
		Label: "Image Content Block",
		Type:  TypeImage,
		New:   func() db.ContentBlock { return &db.ImageContentBlock{} },
		Fields: []Field{
			{Name: "image_url", Label: "Image URL", Kind: KindURL},
			{Name: "alt", Label: "Alt text", Kind: KindText},
			{Name: "width", Label: "Width", Kind: KindNumber},
			{Name: "height", Label: "Height", Kind: KindNumber},
		},
	},
)

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
