package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/metrics"
	"github.com/barebonescms/internal/service"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func writeTemplate(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func simpleBlock(id uint, name, partial, content string, order *int) *db.SimpleContentBlock {
	return &db.SimpleContentBlock{
		BaseContentBlock: db.BaseContentBlock{ID: id, Name: name, Partial: partial, Order: order},
		Content:          content,
	}
}

func TestRenderBlockUsesBlockAndPage(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "partials/simple.html", `<p data-page="{{ .page.Slug }}">{{ .content_block.Content }}</p>`)

	r := New(root, nil)
	page := &db.Page{Slug: "about"}
	html, err := r.RenderBlock(simpleBlock(1, "intro", "partials/simple.html", "<hello>", nil), page)
	require.NoError(t, err)
	assert.Equal(t, `<p data-page="about">&lt;hello&gt;</p>`, string(html))
}

func TestRenderPageInjectsRegionFragments(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "partials/simple.html", `<li>{{ .content_block.Content }}</li>`)
	writeTemplate(t, root, "partials/md.html", `<div>{{ .content_block.HTML }}</div>`)
	writeTemplate(t, root, "base.html", strings.Join([]string{
		`<h1>{{ .page.Title }}</h1>`,
		`{{ .body }}`,
		`<ul>{{ range .main.content_blocks }}{{ . }}{{ end }}</ul>`,
		`{{ range .regions }}[{{ .BlockName }}:{{ len .ContentBlocks }}]{{ end }}`,
		`{{ range .page_blocks }}{{ . }}{{ end }}`,
	}, "\n"))

	reg := prom.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	r := New(root, recorder)
	page := &db.Page{
		ID:       7,
		Title:    "About",
		Body:     "**bold**",
		Template: db.PageTemplate{TemplateFile: "base.html"},
	}
	md := &db.MarkdownContentBlock{
		BaseContentBlock: db.BaseContentBlock{ID: 3, Name: "md", Partial: "partials/md.html"},
		Markdown:         "_hi_",
	}

	out, err := r.RenderPage(page, []RegionBlocks{
		{
			Region: db.Region{Name: "Main", BlockName: "main"},
			Blocks: []db.ContentBlock{
				simpleBlock(1, "a", "partials/simple.html", "first", nil),
				simpleBlock(2, "b", "partials/simple.html", "second", nil),
			},
		},
		{Region: db.Region{Name: "Footer", BlockName: "footer"}},
	}, []db.ContentBlock{md})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1>About</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<ul><li>first</li><li>second</li></ul>")
	assert.Contains(t, html, "[main:2][footer:0]")
	assert.Contains(t, html, "<em>hi</em>")

	assert.Equal(t, map[string]uint64{"block": 3, "page": 1}, renderCounts(t, reg))
}

func renderCounts(t *testing.T, reg *prom.Registry) map[string]uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]uint64{}
	for _, family := range families {
		if family.GetName() != "cms_render_duration_seconds" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "kind" {
					counts[label.GetValue()] = m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return counts
}

func TestRenderPagePropagatesBlockFailure(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "base.html", `{{ range .main.content_blocks }}{{ . }}{{ end }}`)

	r := New(root, nil)
	page := &db.Page{Template: db.PageTemplate{TemplateFile: "base.html"}}
	_, err := r.RenderPage(page, []RegionBlocks{{
		Region: db.Region{BlockName: "main"},
		Blocks: []db.ContentBlock{simpleBlock(1, "broken", "partials/missing.html", "", nil)},
	}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `render block "broken"`)
}

func TestRendererRejectsEscapingPaths(t *testing.T) {
	r := New(t.TempDir(), nil)
	for _, name := range []string{"", "../secret.html", "a/../../secret.html", "/etc/passwd"} {
		_, err := r.RenderBlock(simpleBlock(1, "x", name, "", nil), &db.Page{})
		assert.ErrorIs(t, err, ErrTemplatePath, name)
	}
}

func openAssemblyDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := db.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}, block.Default().Models()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestAssemblerRendersResolvedPage(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "partials/simple.html", `<li>{{ .content_block.Content }}</li>`)
	writeTemplate(t, root, "base.html", `<ul>{{ range .main.content_blocks }}{{ . }}{{ end }}</ul>`)

	gdb := openAssemblyDB(t)
	templates := service.NewTemplateService(gdb)
	regions := service.NewRegionService(gdb)
	pages := service.NewPageService(gdb)
	blocks := service.NewContentBlockService(gdb, nil)

	tpl, err := templates.Create(service.TemplateInput{Name: "Base", TemplateFile: "base.html"})
	require.NoError(t, err)
	mainRegion, err := regions.Create("Main", "main", tpl.ID)
	require.NoError(t, err)
	page, err := pages.CreateNewPage(service.PageInput{Title: "Home", Slug: "home", TemplateID: tpl.ID, IsPublished: true})
	require.NoError(t, err)

	second := 2
	first := 1
	_, err = blocks.CreateAndLink(block.TypeSimple, simpleBlock(0, "late", "partials/simple.html", "late", &second), page.ID, &mainRegion.ID)
	require.NoError(t, err)
	_, err = blocks.CreateAndLink(block.TypeSimple, simpleBlock(0, "early", "partials/simple.html", "early", &first), page.ID, &mainRegion.ID)
	require.NoError(t, err)

	resolved, err := pages.ResolvePath("/home/")
	require.NoError(t, err)

	out, err := NewAssembler(New(root, nil), regions, blocks).Render(resolved)
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>early</li><li>late</li></ul>", string(out))
}
