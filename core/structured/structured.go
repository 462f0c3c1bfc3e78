// Package structured implements the non-AI recipe extractors: embedded
// JSON-LD, schema.org microdata, and CSS class-name heuristics. Each
// extractor is a pure function of the page markup.
package structured

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/chain"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/core/retry"
	"github.com/gaurav-prasanna/recipepipe/logger"
)

// ErrNoMatch is returned when an extractor finds no complete recipe.
var ErrNoMatch = errors.New("no recipe found")

// Registry maps extractor names to implementations.
type Registry struct {
	extractors map[string]core.Extractor
}

// NewRegistry returns a registry holding the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]core.Extractor)}
	r.Register(NewJSONLD())
	r.Register(NewMicrodata())
	r.Register(NewHTMLClass())
	return r
}

// Register adds or replaces an extractor under its name.
func (r *Registry) Register(e core.Extractor) {
	r.extractors[e.Name()] = e
}

// Get returns the extractor registered under name.
func (r *Registry) Get(name string) (core.Extractor, bool) {
	e, ok := r.extractors[name]
	return e, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain runs extractors in a fixed order.
type Chain struct {
	extractors []core.Extractor
	log        logger.Logger
}

// NewChain resolves names against the registry. Unknown names are an error.
func (r *Registry) NewChain(names []string, log logger.Logger) (*Chain, error) {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Chain{log: log}
	for _, name := range names {
		e, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown extractor %q", name)
		}
		c.extractors = append(c.extractors, e)
	}
	return c, nil
}

// Names returns the extractor names in run order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.extractors))
	for _, e := range c.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Extract tries each extractor once, in order, and returns the first
// complete recipe and the name of the extractor that produced it.
// Individual failures are absorbed; only exhaustion is reported.
func (c *Chain) Extract(ctx context.Context, page *core.Page) (*recipe.Recipe, string, error) {
	steps := make([]chain.Step[*recipe.Recipe], 0, len(c.extractors))
	for _, e := range c.extractors {
		steps = append(steps, chain.Step[*recipe.Recipe]{
			Name: e.Name(),
			Run: func(context.Context) (*recipe.Recipe, error) {
				r, err := e.Extract(page)
				if err != nil {
					return nil, err
				}
				if !r.Complete() {
					return nil, fmt.Errorf("%s: incomplete recipe: %w", e.Name(), ErrNoMatch)
				}
				return r, nil
			},
		})
	}
	return chain.Run(ctx, chain.Runner{Label: "extractors", Policy: retry.Once(), Log: c.log}, steps)
}

// parse builds a goquery document from page markup.
func parse(page *core.Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
