package render

import (
	"strings"

	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
)

// card is the readable layout shared by the Markdown and PDF renderers.
type card struct {
	Title       string
	Source      string
	Metadata    [][2]string
	Ingredients []string
	Cookware    []string
	Steps       []string
	// Numbered is false for unconverted instructions, which are kept as
	// paragraphs.
	Numbered bool
}

func newCard(imp *core.Import) card {
	comps := imp.Components
	if comps == nil {
		comps = &recipe.Components{}
	}
	md := comps.Metadata.Clone()
	c := card{Title: comps.Name}

	if imp.Output != "" {
		if parsed, err := recipe.ParseComponents(imp.Output); err == nil {
			md = parsed.Metadata
			if parsed.Name != "" {
				c.Title = parsed.Name
			}
			cl := ParseCooklang(parsed.Text)
			for _, it := range cl.Ingredients {
				c.Ingredients = append(c.Ingredients, it.String())
			}
			for _, it := range cl.Cookware {
				c.Cookware = append(c.Cookware, it.Name)
			}
			c.Steps = cl.Steps
			c.Numbered = true
		}
	}
	if !c.Numbered {
		ingredients, instructions, ok := strings.Cut(comps.Text, "\n\n")
		if !ok {
			ingredients, instructions = "", ingredients
		}
		for _, line := range strings.Split(ingredients, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				c.Ingredients = append(c.Ingredients, line)
			}
		}
		for _, para := range blankLineRe.Split(instructions, -1) {
			if para = strings.TrimSpace(para); para != "" {
				c.Steps = append(c.Steps, para)
			}
		}
	}

	if c.Title == "" {
		c.Title = "Untitled recipe"
	}
	if src, ok := md.Get(recipe.KeySource); ok {
		c.Source = src
	} else if imp.Source != "" {
		c.Source = imp.Source
	}
	for _, key := range md.SortedKeys() {
		switch key {
		case recipe.KeySource, recipe.KeyTitle:
			continue
		}
		v, _ := md.Get(key)
		c.Metadata = append(c.Metadata, [2]string{key, v})
	}
	return c
}
