// Package snippet turns a raw selection fragment from a host page into
// content fit for the blog: sanitized HTML, markdown (the blog renders
// markdown), or plain text. Host pages are arbitrary third-party
// documents, so everything that arrives here is treated as hostile
// markup.
package snippet

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var policy = bluemonday.UGCPolicy()

// Sanitize strips scripts, event handlers, and other non-UGC markup from
// a selection fragment.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}

// Converter renders sanitized selection HTML as markdown. Safe for
// concurrent use.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a Converter with commonmark and table support.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Markdown sanitizes the fragment and converts it to markdown.
func (c *Converter) Markdown(fragment string) (string, error) {
	md, err := c.conv.ConvertString(Sanitize(fragment))
	if err != nil {
		return "", fmt.Errorf("snippet: convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Markdown is a package-level convenience using the default converter
// configuration.
func Markdown(fragment string) (string, error) {
	md, err := htmltomarkdown.ConvertString(Sanitize(fragment))
	if err != nil {
		return "", fmt.Errorf("snippet: convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Text extracts the visible text of a fragment, whitespace-collapsed.
// Used as the fallback when markdown conversion has nothing to work with.
func Text(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	var parts []string
	collectText(doc, &parts)
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}
	if n.Type == html.TextNode {
		if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
			*parts = append(*parts, t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
