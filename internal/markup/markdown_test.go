package markup

import (
	"strings"
	"testing"
)

func TestMarkdownRendersHeadings(t *testing.T) {
	out := string(Markdown("# Team\n\nWe build **things**."))

	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Team</h1>") {
		t.Fatalf("expected heading in output, got %q", out)
	}
	if !strings.Contains(out, "<strong>things</strong>") {
		t.Fatalf("expected bold text, got %q", out)
	}
}

func TestMarkdownStripsScripts(t *testing.T) {
	out := string(Markdown("hello <script>alert(1)</script>"))

	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script tag to be sanitized, got %q", out)
	}
}

func TestMarkdownEmpty(t *testing.T) {
	if out := Markdown(" \n\t"); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
