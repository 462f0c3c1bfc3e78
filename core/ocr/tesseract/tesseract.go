//go:build tesseract && cgo

// Package tesseract is a local OCR engine backed by libtesseract. It needs
// cgo and the tesseract libraries, so it only builds with the tesseract tag.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/recipepipe/core/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text with a fresh gosseract client per image.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates an Engine for the given tesseract language codes.
func New(languages ...string) *Engine {
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

// Name returns the engine name.
func (e *Engine) Name() string { return "tesseract" }

// Recognize returns the plain text found in image.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ocr.ErrNoText
	}
	return text, nil
}
