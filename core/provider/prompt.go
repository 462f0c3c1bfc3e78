package provider

import (
	_ "embed"
	"strings"
)

//go:embed prompt.txt
var promptTemplate string

const recipePlaceholder = "{{RECIPE}}"

// Prompt returns the Cooklang conversion prompt with text injected.
func Prompt(text string) string {
	return strings.Replace(promptTemplate, recipePlaceholder, strings.TrimSpace(text), 1)
}
