// Package render evaluates page templates and content block partials stored
// under a template root directory. Templates are parsed on every call.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/markup"
	"github.com/barebonescms/internal/metrics"
)

// ErrTemplatePath 表示模板路径为空或试图跳出模板根目录。
var ErrTemplatePath = errors.New("template path must stay inside the template root")

const (
	kindBlock = "block"
	kindPage  = "page"
)

// RegionBlocks 是一个区域及其已排好序的内容块。
type RegionBlocks struct {
	Region db.Region
	Blocks []db.ContentBlock
}

// RegionView 是页面模板中 regions 列表的元素。
type RegionView struct {
	Name          string
	BlockName     string
	ContentBlocks []template.HTML
}

// Renderer 负责把内容块片段和页面模板渲染为 HTML。
type Renderer struct {
	root     string
	recorder *metrics.Recorder
}

// New creates a Renderer rooted at root; recorder may be nil.
func New(root string, recorder *metrics.Recorder) *Renderer {
	return &Renderer{root: root, recorder: recorder}
}

// Root returns the template root directory.
func (r *Renderer) Root() string {
	return r.root
}

// RenderBlock 单独渲染一个内容块的 partial，上下文为 content_block 与 page。
func (r *Renderer) RenderBlock(block db.ContentBlock, page *db.Page) (template.HTML, error) {
	start := time.Now()
	defer func() { r.recorder.ObserveRender(kindBlock, time.Since(start)) }()

	out, err := r.execute(block.BlockPartial(), map[string]any{
		"content_block": block,
		"page":          page,
	})
	if err != nil {
		return "", fmt.Errorf("render block %q: %w", block.BlockName(), err)
	}
	return template.HTML(out), nil
}

// RenderPage 依次渲染每个区域的内容块，并以区域的 BlockName 为键注入页面模板。
// page.Template 必须已加载。任一内容块渲染失败都会中止整个页面。
func (r *Renderer) RenderPage(page *db.Page, regions []RegionBlocks, pageBlocks []db.ContentBlock) ([]byte, error) {
	start := time.Now()
	defer func() { r.recorder.ObserveRender(kindPage, time.Since(start)) }()

	data := map[string]any{
		"page": page,
		"body": markup.Markdown(page.Body),
	}

	views := make([]RegionView, 0, len(regions))
	for _, rb := range regions {
		fragments, err := r.renderAll(rb.Blocks, page)
		if err != nil {
			return nil, err
		}
		views = append(views, RegionView{
			Name:          rb.Region.Name,
			BlockName:     rb.Region.BlockName,
			ContentBlocks: fragments,
		})
		data[rb.Region.BlockName] = map[string]any{"content_blocks": fragments}
	}
	data["regions"] = views

	fragments, err := r.renderAll(pageBlocks, page)
	if err != nil {
		return nil, err
	}
	data["page_blocks"] = fragments

	out, err := r.execute(page.Template.TemplateFile, data)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page.ID, err)
	}
	return out, nil
}

func (r *Renderer) renderAll(blocks []db.ContentBlock, page *db.Page) ([]template.HTML, error) {
	fragments := make([]template.HTML, 0, len(blocks))
	for _, b := range blocks {
		html, err := r.RenderBlock(b, page)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, html)
	}
	return fragments, nil
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	path, err := r.resolve(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(funcMap()).ParseFiles(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resolve 把相对路径解析到模板根目录下，拒绝绝对路径与 ..。
func (r *Renderer) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrTemplatePath, name)
	}

	root, err := filepath.Abs(r.root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrTemplatePath, name)
	}
	return full, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"markdown": markup.Markdown,
	}
}
