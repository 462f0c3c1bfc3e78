// Package recipe defines the recipe data that flows between pipeline stages
// and the plain-text wire format used to hand it to conversion providers.
package recipe

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when a recipe body has no ingredients or
// instructions text.
var ErrEmptyText = errors.New("recipe text is empty")

// Recipe is the structured form produced by the non-AI extractors.
type Recipe struct {
	Name         string
	Description  string
	Images       []string
	Ingredients  []string
	Instructions string
	Metadata     Metadata
}

// Complete reports whether the recipe carries a name, at least one
// ingredient and instructions.
func (r *Recipe) Complete() bool {
	return strings.TrimSpace(r.Name) != "" &&
		len(r.Ingredients) > 0 &&
		strings.TrimSpace(r.Instructions) != ""
}

// Text renders ingredients one per line, a blank line, then instructions.
func (r *Recipe) Text() string {
	return JoinText(r.Ingredients, r.Instructions)
}

// Components flattens the recipe into the form consumed by conversion.
func (r *Recipe) Components() *Components {
	md := r.Metadata.Clone()
	md.SetDefault(KeyDescription, r.Description)
	if len(r.Images) > 0 {
		md.SetDefault(KeyImage, r.Images[0])
	}
	return &Components{
		Name:     strings.TrimSpace(r.Name),
		Metadata: md,
		Text:     r.Text(),
	}
}

// Components is the normalized recipe every pipeline produces before
// conversion. It is built once and not modified afterwards.
type Components struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata"`
	Text     string   `json:"text"`
}

// Preamble returns the metadata block, including the recipe name as title.
func (c *Components) Preamble() string {
	md := c.Metadata.Clone()
	md.SetDefault(KeyTitle, c.Name)
	return Frontmatter(md)
}

// String renders the components in the wire format.
func (c *Components) String() string {
	return c.Preamble() + c.Text
}

// Assemble prepends the metadata block to a converted body.
func (c *Components) Assemble(body string) string {
	return c.Preamble() + strings.TrimSpace(body) + "\n"
}

// JoinText builds the ingredients and instructions body. Blank ingredient
// lines are dropped.
func JoinText(ingredients []string, instructions string) string {
	lines := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		ing = strings.TrimSpace(ing)
		if ing != "" {
			lines = append(lines, ing)
		}
	}
	ingText := strings.Join(lines, "\n")
	instructions = strings.TrimSpace(instructions)
	switch {
	case ingText == "":
		return instructions
	case instructions == "":
		return ingText
	}
	return ingText + "\n\n" + instructions
}
