package snippet

import (
	"strings"
	"testing"
)

func TestSanitizeStripsScripts(t *testing.T) {
	out := Sanitize(`<p onclick="steal()">keep me<script>alert(1)</script></p>`)
	if strings.Contains(out, "script") || strings.Contains(out, "onclick") {
		t.Fatalf("hostile markup survived: %q", out)
	}
	if !strings.Contains(out, "keep me") {
		t.Fatalf("content lost: %q", out)
	}
}

func TestMarkdownConversion(t *testing.T) {
	md, err := Markdown(`<p>The <strong>quick</strong> brown <a href="https://example.com">fox</a></p>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "**quick**") {
		t.Fatalf("bold lost: %q", md)
	}
	if !strings.Contains(md, "[fox](https://example.com)") {
		t.Fatalf("link lost: %q", md)
	}
}

func TestConverterHandlesTables(t *testing.T) {
	c := NewConverter()
	md, err := c.Markdown(`<table><tr><th>a</th><th>b</th></tr><tr><td>1</td><td>2</td></tr></table>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "|") {
		t.Fatalf("table structure lost: %q", md)
	}
}

func TestTextCollapsesWhitespace(t *testing.T) {
	got := Text("<div>  hello\n\t <span>world</span><style>p{}</style></div>")
	if got != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}
