// Package core defines the pipeline interfaces for recipepipe.
// Each stage of the import pipeline is a small, swappable interface.
package core

import (
	"context"

	"github.com/gaurav-prasanna/recipepipe/core/recipe"
)

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// Page is the fetched markup handed to structured extractors.
type Page struct {
	URL  string
	HTML string
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// PageRenderer fetches a page through a script-capable renderer and returns
// its visible text. Available reports whether a renderer is configured.
type PageRenderer interface {
	Available() bool
	FetchText(ctx context.Context, url string) (string, error)
}

// Extractor is a structured, non-AI recipe extraction strategy.
// It returns a complete recipe or an error; never a partial result.
type Extractor interface {
	Name() string
	Extract(page *Page) (*recipe.Recipe, error)
}

// TextExtractor turns unstructured text into recipe components with the
// help of a language model.
type TextExtractor interface {
	// Available reports, without network access, whether the extractor
	// has the credentials it needs.
	Available() bool
	Extract(ctx context.Context, text, source string) (*recipe.Components, error)
}

// ContentExtractor pulls the readable main content from raw HTML.
type ContentExtractor interface {
	Extract(html, pageURL string) (string, error)
}

// Normalizer converts cleaned HTML into plain Markdown text.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// OCREngine recognizes text in a single encoded image (PNG, JPEG, ...).
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Provider converts ingredients and instructions text into Cooklang markup.
type Provider interface {
	Name() string
	Convert(ctx context.Context, text string) (string, error)
}

// Renderer converts a finished import into a final output format.
type Renderer interface {
	Render(imp *Import) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".cook", ".pdf").
	Extension() string
}

// Import is the outcome of one pipeline run.
type Import struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Source     string             `json:"source"`
	Components *recipe.Components `json:"components"`
	// Output is the converted markup; empty in extract-only mode.
	Output    string `json:"output,omitempty"`
	Extractor string `json:"extractor,omitempty"`
	Provider  string `json:"provider,omitempty"`
}
