// Package extract isolates the readable main content of a recipe page for
// the free-text fallback. It:
//  1. Finds the best content container (<main>, <article>, or <body>)
//  2. Removes noise elements (nav, footer, scripts, comments, etc.)
//  3. Falls back to readability when the container holds almost no text
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentChars is the visible text length below which the container
// result is considered negligible.
const minContentChars = 200

// noiseSelectors are HTML elements removed before extraction.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	".comments", "#comments", ".share", ".social", ".newsletter",
}

// HTMLExtractor strips noise from HTML and returns the main content fragment.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract takes raw HTML and returns a cleaned HTML fragment containing
// only the main content.
func (e *HTMLExtractor) Extract(html, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	var result string
	if content != nil {
		result, err = goquery.OuterHtml(content)
		if err != nil {
			return "", fmt.Errorf("serializing content: %w", err)
		}
		if len(strings.TrimSpace(content.Text())) >= minContentChars {
			return result, nil
		}
	}

	if article, ok := readable(html, pageURL); ok {
		return article, nil
	}
	if result == "" {
		return "", fmt.Errorf("no content container found in HTML")
	}
	return result, nil
}

// readable runs readability on the full document.
func readable(html, pageURL string) (string, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		parsed = &url.URL{Scheme: "https", Host: "localhost"}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(article.Content)
	if content == "" || strings.TrimSpace(article.TextContent) == "" {
		return "", false
	}
	return content, true
}
