package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/recipepipe/core"
)

// MarkdownRenderer writes a readable recipe card.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render builds the card: title, source, metadata, ingredients, cookware
// and steps. Empty sections are left out.
func (r *MarkdownRenderer) Render(imp *core.Import) ([]byte, error) {
	c := newCard(imp)
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	if c.Source != "" {
		fmt.Fprintf(&b, "_Source: %s_\n\n", c.Source)
	}
	if len(c.Metadata) > 0 {
		for _, kv := range c.Metadata {
			fmt.Fprintf(&b, "- **%s:** %s\n", label(kv[0]), kv[1])
		}
		b.WriteString("\n")
	}
	writeList(&b, "Ingredients", c.Ingredients)
	writeList(&b, "Cookware", c.Cookware)

	if len(c.Steps) > 0 {
		b.WriteString("## Steps\n\n")
		for i, step := range c.Steps {
			if c.Numbered {
				fmt.Fprintf(&b, "%d. %s\n", i+1, step)
			} else {
				fmt.Fprintf(&b, "%s\n\n", step)
			}
		}
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

// label turns a metadata key such as prep_time into "Prep time".
func label(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
