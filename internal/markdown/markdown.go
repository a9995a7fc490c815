// Package markdown renders markdown bodies to HTML with class-based syntax
// highlighting, and loads the highlighting themes the stylesheet is built from.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts markdown to HTML. It is safe for concurrent use.
// Raw HTML in the source is omitted from the output.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a renderer whose fenced code blocks are highlighted
// with CSS classes matching theme.
func NewRenderer(theme *Theme) *Renderer {
	hl := highlighting.NewHighlighting(
		highlighting.WithCustomStyle(theme.Light),
		highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
	)
	return &Renderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM, hl)),
	}
}

// Render converts src to HTML.
func (r *Renderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return buf.String(), nil
}
