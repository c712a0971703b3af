package markup

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Markdown 将 markdown 转换为经过清洗的 HTML。转换失败时退回转义后的纯文本。
func Markdown(src string) template.HTML {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(trimmed), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(trimmed))
	}

	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
