// Package output names and writes rendered recipes. File names come from
// the recipe title, then the source URL, then the import ID.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/recipepipe/core"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write stores data as <name><ext> and returns the path. An existing file
// is not overwritten; a numeric suffix is added instead.
func (w *Writer) Write(name string, data []byte, ext string) (string, error) {
	path := filepath.Join(w.OutputDir, name+ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(w.OutputDir, fmt.Sprintf("%s_%d%s", name, i, ext))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// FileName derives a flat file name for imp.
// Example: "Mashed Potatoes" → mashed_potatoes
func FileName(imp *core.Import) string {
	if imp.Components != nil {
		if name := sanitize(imp.Components.Name); name != "" {
			return name
		}
	}
	if imp.Kind == "url" {
		if name := filenameFromURL(imp.Source); name != "" {
			return name
		}
	}
	if name := sanitize(imp.ID); name != "" {
		return name
	}
	return "recipe"
}

// filenameFromURL converts a URL into a flat filename.
// Example: https://example.com/recipes/soup → example_com_recipes_soup
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitize(rawURL)
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Trim(strings.Join(parts, "_"), "_")
}

// sanitize lowercases s and replaces runs of non-alphanumeric characters
// with a single underscore.
func sanitize(s string) string {
	var b strings.Builder
	underscore := false
	for _, ch := range strings.ToLower(s) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
			underscore = false
		} else if !underscore {
			b.WriteRune('_')
			underscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
