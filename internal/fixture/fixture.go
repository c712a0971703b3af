// Package fixture imports a whole site (templates, regions, page tree and
// content blocks) from a YAML document.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/service"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

var (
	ErrUnknownTemplate = errors.New("fixture: page refers to an unknown template")
	ErrUnknownRegion   = errors.New("fixture: block refers to an unknown region")
)

// Site 是 YAML 文件的顶层结构。
type Site struct {
	Templates []Template `yaml:"templates"`
	Pages     []Page     `yaml:"pages"`
}

type Template struct {
	Name    string   `yaml:"name"`
	File    string   `yaml:"file"`
	Regions []Region `yaml:"regions"`
}

type Region struct {
	Name      string `yaml:"name"`
	BlockName string `yaml:"block_name"`
}

// Page 描述一个页面及其子页面；Template 按模板文件名匹配。
type Page struct {
	Title     string  `yaml:"title"`
	Slug      string  `yaml:"slug"`
	Body      string  `yaml:"body"`
	Template  string  `yaml:"template"`
	Published bool    `yaml:"published"`
	Blocks    []Block `yaml:"blocks"`
	Children  []Page  `yaml:"children"`
}

// Block 的 Fields 按内容块类型的 JSON 字段名解码。Region 为空表示仅挂在页面上。
type Block struct {
	Type   string         `yaml:"type"`
	Region string         `yaml:"region"`
	Fields map[string]any `yaml:"fields"`
}

// Summary counts what an import created.
type Summary struct {
	Templates int
	Regions   int
	Pages     int
	Blocks    int
}

// Decode 解析 YAML，未知字段视为错误。
func Decode(r io.Reader) (*Site, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var site Site
	if err := dec.Decode(&site); err != nil {
		if errors.Is(err, io.EOF) {
			return &site, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &site, nil
}

// LoadFile reads and decodes a fixture file.
func LoadFile(path string) (*Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Import 在单个事务中写入整棵站点，任何一步失败都会整体回滚。
func Import(gdb *gorm.DB, registry *block.Registry, site *Site) (Summary, error) {
	var summary Summary
	err := gdb.Transaction(func(tx *gorm.DB) error {
		imp := &importer{
			templates: service.NewTemplateService(tx),
			regions:   service.NewRegionService(tx),
			pages:     service.NewPageService(tx),
			blocks:    service.NewContentBlockService(tx, registry),
			registry:  registry,
			byFile:    make(map[string]*db.PageTemplate),
			summary:   &summary,
		}
		if err := imp.loadExisting(); err != nil {
			return err
		}
		for _, tpl := range site.Templates {
			if err := imp.importTemplate(tpl); err != nil {
				return err
			}
		}
		for _, page := range site.Pages {
			if err := imp.importPage(page, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

type importer struct {
	templates *service.TemplateService
	regions   *service.RegionService
	pages     *service.PageService
	blocks    *service.ContentBlockService
	registry  *block.Registry
	byFile    map[string]*db.PageTemplate
	summary   *Summary
}

func (imp *importer) loadExisting() error {
	existing, err := imp.templates.List()
	if err != nil {
		return err
	}
	for i := range existing {
		imp.byFile[existing[i].TemplateFile] = &existing[i]
	}
	return nil
}

// importTemplate 复用同一文件的已有模板，只补齐缺少的区域。
func (imp *importer) importTemplate(in Template) error {
	file := strings.TrimSpace(in.File)
	tpl, ok := imp.byFile[file]
	if !ok {
		created, err := imp.templates.Create(service.TemplateInput{Name: in.Name, TemplateFile: file})
		if err != nil {
			return fmt.Errorf("template %q: %w", in.File, err)
		}
		tpl = created
		imp.byFile[tpl.TemplateFile] = tpl
		imp.summary.Templates++
	}

	for _, region := range in.Regions {
		if findRegion(tpl, region.BlockName) != nil {
			continue
		}
		name := region.Name
		if strings.TrimSpace(name) == "" {
			name = region.BlockName
		}
		created, err := imp.regions.Create(name, region.BlockName, tpl.ID)
		if err != nil {
			return fmt.Errorf("template %q region %q: %w", in.File, region.BlockName, err)
		}
		tpl.Regions = append(tpl.Regions, *created)
		imp.summary.Regions++
	}
	return nil
}

func (imp *importer) importPage(in Page, parent *db.Page) error {
	tpl, ok := imp.byFile[strings.TrimSpace(in.Template)]
	if !ok {
		return fmt.Errorf("page %q: %w: %q", in.Slug, ErrUnknownTemplate, in.Template)
	}

	input := service.PageInput{
		Title:       in.Title,
		Slug:        in.Slug,
		Body:        in.Body,
		TemplateID:  tpl.ID,
		IsPublished: in.Published,
	}
	if parent != nil {
		input.ParentID = &parent.ID
	}
	page, err := imp.pages.CreateNewPage(input)
	if err != nil {
		return fmt.Errorf("page %q: %w", in.Slug, err)
	}
	imp.summary.Pages++

	for i, b := range in.Blocks {
		if err := imp.importBlock(b, page, tpl); err != nil {
			return fmt.Errorf("page %q block %d: %w", in.Slug, i, err)
		}
	}
	for _, child := range in.Children {
		if err := imp.importPage(child, page); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) importBlock(in Block, page *db.Page, tpl *db.PageTemplate) error {
	entry, ok := imp.registry.Lookup(in.Type)
	if !ok {
		return fmt.Errorf("%w: %q", service.ErrUnknownBlockType, in.Type)
	}

	var regionID *uint
	if name := strings.TrimSpace(in.Region); name != "" {
		region := findRegion(tpl, name)
		if region == nil {
			return fmt.Errorf("%w: %q", ErrUnknownRegion, name)
		}
		regionID = &region.ID
	}

	instance := entry.New()
	raw, err := json.Marshal(in.Fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, instance); err != nil {
		return fmt.Errorf("decode %s block fields: %w", in.Type, err)
	}

	if _, err := imp.blocks.CreateAndLink(in.Type, instance, page.ID, regionID); err != nil {
		return err
	}
	imp.summary.Blocks++
	return nil
}

func findRegion(tpl *db.PageTemplate, blockName string) *db.Region {
	for i := range tpl.Regions {
		if tpl.Regions[i].BlockName == blockName {
			return &tpl.Regions[i]
		}
	}
	return nil
}
