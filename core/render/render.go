// Package render turns a finished import into its output formats: Cooklang
// markup, JSON, a Markdown recipe card, or a PDF recipe card.
package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/recipepipe/core"
)

// Output formats.
const (
	FormatCook     = "cook"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// Formats lists the supported output formats.
var Formats = []string{FormatCook, FormatJSON, FormatMarkdown, FormatPDF}

// ForFormat returns the renderer for format. "md" is accepted for Markdown.
func ForFormat(format string) (core.Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCook, "":
		return NewCookRenderer(), nil
	case FormatJSON:
		return NewJSONRenderer(), nil
	case FormatMarkdown, "md":
		return NewMarkdownRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// CookRenderer writes the converted Cooklang markup. In extract-only mode
// it writes the extracted components in the wire format instead.
type CookRenderer struct{}

// NewCookRenderer creates a CookRenderer.
func NewCookRenderer() *CookRenderer {
	return &CookRenderer{}
}

// Render returns the import's markup.
func (r *CookRenderer) Render(imp *core.Import) ([]byte, error) {
	if imp.Output != "" {
		return []byte(imp.Output), nil
	}
	if imp.Components == nil {
		return nil, fmt.Errorf("import %s has no content", imp.ID)
	}
	return []byte(imp.Components.String() + "\n"), nil
}

// Extension returns the file extension for Cooklang output.
func (r *CookRenderer) Extension() string {
	return ".cook"
}
