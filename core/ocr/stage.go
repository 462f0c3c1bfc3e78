// Package ocr turns recipe photos into text and, when a free-text
// extractor is available, into structured recipe components.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/logger"
)

// ErrNoImages is returned when Run is called without images.
var ErrNoImages = errors.New("no images given")

// ErrUnreadableImage is returned when an image cannot be loaded.
var ErrUnreadableImage = errors.New("unreadable image")

// Stage recognizes images one by one and structures the combined text.
type Stage struct {
	engine core.OCREngine
	text   core.TextExtractor
	log    logger.Logger
}

// NewStage creates a Stage. text may be nil.
func NewStage(engine core.OCREngine, text core.TextExtractor, log logger.Logger) *Stage {
	if log == nil {
		log = logger.NewNop()
	}
	return &Stage{engine: engine, text: text, log: log}
}

// Result is the outcome of a Stage run.
type Result struct {
	Components *recipe.Components
	// Structured is true when the free-text extractor produced Components.
	Structured bool
	// RawText is the combined OCR text.
	RawText string
}

// Recognize OCRs every image in order. It returns the texts joined by a
// blank line and the image labels joined by ", ".
func (s *Stage) Recognize(ctx context.Context, images []recipe.ImageSource) (text, source string, err error) {
	if len(images) == 0 {
		return "", "", ErrNoImages
	}
	texts := make([]string, 0, len(images))
	labels := make([]string, 0, len(images))
	for i, img := range images {
		data, err := img.Bytes()
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrUnreadableImage, err)
		}

		start := time.Now()
		out, err := s.engine.Recognize(ctx, data)
		if err != nil {
			return "", "", fmt.Errorf("ocr %s (%s): %w", img.Label(), s.engine.Name(), err)
		}
		s.log.Debug("Image recognized",
			logger.String("engine", s.engine.Name()),
			logger.String("image", img.Label()),
			logger.Int("index", i),
			logger.Int("chars", len(out)),
			logger.Duration("duration", time.Since(start)),
		)
		texts = append(texts, strings.TrimSpace(out))
		labels = append(labels, img.Label())
	}
	return strings.Join(texts, "\n\n"), strings.Join(labels, ", "), nil
}

// Run recognizes the images and structures the result. Without an
// available text extractor, or when structuring fails, the raw text is
// returned with only a source entry in the metadata.
func (s *Stage) Run(ctx context.Context, images []recipe.ImageSource) (*Result, error) {
	text, source, err := s.Recognize(ctx, images)
	if err != nil {
		return nil, err
	}

	if s.text != nil && s.text.Available() {
		comps, err := s.text.Extract(ctx, text, source)
		if err == nil {
			return &Result{Components: comps, Structured: true, RawText: text}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn("Structuring OCR text failed, using raw text",
			logger.String("source", source),
			logger.Error(err),
		)
	}

	var md recipe.Metadata
	md.Set(recipe.KeySource, source)
	return &Result{
		Components: &recipe.Components{Metadata: md, Text: text},
		RawText:    text,
	}, nil
}
