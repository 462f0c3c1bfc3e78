// Package pipeline routes URL, text and image input through extraction
// and, unless extract-only mode is requested, conversion.
//
//	URL:   fetch → structured extractors → [render → free text] → convert
//	Text:  [free text | wire format parse] → convert
//	Image: OCR each → join → [free text | raw] → convert
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/fetch"
	"github.com/gaurav-prasanna/recipepipe/core/ocr"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/logger"
	"github.com/google/uuid"
)

// Input kinds.
const (
	KindURL   = "url"
	KindText  = "text"
	KindImage = "image"
)

// TextSource labels text given directly by the caller.
const TextSource = "direct-input"

// Extractor names reported for non-structured extraction.
const (
	ExtractorFreeText = "freetext"
	ExtractorWire     = "wire"
	ExtractorOCR      = "ocr"
)

// StructuredExtractor runs the structured extractor chain.
type StructuredExtractor interface {
	Extract(ctx context.Context, page *core.Page) (*recipe.Recipe, string, error)
}

// Converter turns components into final markup with the metadata block
// attached and reports which provider produced it.
type Converter interface {
	ConvertComponents(ctx context.Context, comps *recipe.Components) (string, string, error)
}

// ConverterFactory resolves the converter for one run. override is the
// requested provider, or empty for the configured default.
type ConverterFactory func(override string, timeout time.Duration) (Converter, error)

// Deps are the collaborators of an Importer. Renderer, Text and OCR may be
// nil; the corresponding fallback is then unavailable.
type Deps struct {
	Fetcher    core.Fetcher
	Renderer   core.PageRenderer
	Structured StructuredExtractor
	Content    core.ContentExtractor
	Normalizer core.Normalizer
	Text       core.TextExtractor
	OCR        core.OCREngine
	Converters ConverterFactory
}

// Options tune a single run.
type Options struct {
	// ExtractOnly stops after extraction; no provider is called.
	ExtractOnly bool
	// Extract runs text input through the free-text extractor. When false
	// the text is parsed as wire format. Ignored for URL and image input.
	Extract bool
	// Provider overrides the default conversion provider.
	Provider string
	// Timeout bounds every network step. Zero uses the configured timeout.
	Timeout time.Duration
}

// Importer runs the pipelines. It holds no per-run state and is safe for
// concurrent use when its Deps are.
type Importer struct {
	cfg  *config.Config
	deps Deps
	log  logger.Logger
}

// New creates an Importer.
func New(cfg *config.Config, deps Deps, log logger.Logger) (*Importer, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if deps.Fetcher == nil || deps.Structured == nil || deps.Converters == nil {
		return nil, errors.New("pipeline: fetcher, structured extractors and converters are required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Importer{cfg: cfg, deps: deps, log: log}, nil
}

func (im *Importer) timeout(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return im.cfg.TimeoutDuration()
}

// step bounds one network call by the run timeout.
func (im *Importer) step(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, im.timeout(opts))
}

func (im *Importer) textAvailable() bool {
	return im.deps.Text != nil && im.deps.Text.Available()
}

func (im *Importer) rendererAvailable() bool {
	return im.deps.Renderer != nil && im.deps.Renderer.Available()
}

func newImport(kind, source string) *core.Import {
	return &core.Import{ID: uuid.NewString(), Kind: kind, Source: source}
}

// ImportURL imports the recipe published at rawURL.
func (im *Importer) ImportURL(ctx context.Context, rawURL string, opts Options) (*core.Import, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := fetch.ValidateURL(rawURL); err != nil {
		return nil, core.NewStageError(core.StageInput, core.ErrInvalidInput, err)
	}
	imp := newImport(KindURL, rawURL)
	log := im.log.With(logger.String("import_id", imp.ID), logger.String("kind", KindURL), logger.String("url", rawURL))

	comps, extractor, err := im.extractURL(ctx, rawURL, opts, log)
	if err != nil {
		return nil, err
	}
	imp.Components, imp.Extractor = comps, extractor
	return im.finish(ctx, imp, opts, log)
}

func (im *Importer) extractURL(ctx context.Context, rawURL string, opts Options, log logger.Logger) (*recipe.Components, string, error) {
	fctx, cancel := im.step(ctx, opts)
	start := time.Now()
	res, fetchErr := im.deps.Fetcher.Fetch(fctx, rawURL)
	cancel()

	if fetchErr != nil {
		if ctx.Err() != nil {
			return nil, "", core.NewStageError(core.StageFetch, core.ErrFetchFailure, ctx.Err())
		}
		log.Warn("Primary fetch failed", logger.Error(fetchErr), logger.Duration("duration", time.Since(start)))
		if !im.rendererAvailable() || !im.textAvailable() {
			return nil, "", core.NewStageError(core.StageFetch, core.ErrFetchFailure, fetchErr)
		}
		text, err := im.render(ctx, rawURL, opts, log)
		if err != nil {
			return nil, "", core.NewStageError(core.StageFetch, core.ErrFetchFailure, errors.Join(fetchErr, err))
		}
		return im.freeText(ctx, text, rawURL, opts, log)
	}
	log.Debug("Page fetched",
		logger.Int("status", res.StatusCode),
		logger.Int("bytes", len(res.HTML)),
		logger.Duration("duration", time.Since(start)),
	)

	page := &core.Page{URL: rawURL, HTML: res.HTML}
	r, name, err := im.deps.Structured.Extract(ctx, page)
	if err == nil {
		log.Info("Structured extraction succeeded", logger.String("extractor", name))
		return r.Components(), name, nil
	}
	if ctx.Err() != nil {
		return nil, "", core.NewStageError(core.StageExtraction, core.ErrExtractionFailure, ctx.Err())
	}
	log.Debug("Structured extractors exhausted", logger.Error(err))

	switch {
	case !im.textAvailable():
		return nil, "", core.NewStageError(core.StageExtraction, core.ErrNoExtractorMatched, err)
	case im.rendererAvailable():
		text, rerr := im.render(ctx, rawURL, opts, log)
		if rerr != nil {
			return nil, "", core.NewStageError(core.StageFetch, core.ErrFetchFailure, rerr)
		}
		return im.freeText(ctx, text, rawURL, opts, log)
	case im.cfg.Fetch.TextFallback && im.deps.Content != nil && im.deps.Normalizer != nil:
		text, terr := im.pageText(page)
		if terr != nil {
			return nil, "", core.NewStageError(core.StageExtraction, core.ErrNoExtractorMatched, errors.Join(err, terr))
		}
		return im.freeText(ctx, text, rawURL, opts, log)
	default:
		return nil, "", core.NewStageError(core.StageExtraction, core.ErrNoExtractorMatched, err)
	}
}

func (im *Importer) render(ctx context.Context, rawURL string, opts Options, log logger.Logger) (string, error) {
	rctx, cancel := im.step(ctx, opts)
	defer cancel()
	start := time.Now()
	text, err := im.deps.Renderer.FetchText(rctx, rawURL)
	if err != nil {
		log.Warn("Rendered fetch failed", logger.Error(err))
		return "", err
	}
	log.Debug("Page rendered", logger.Int("chars", len(text)), logger.Duration("duration", time.Since(start)))
	return text, nil
}

// pageText isolates the main content of page as Markdown text.
func (im *Importer) pageText(page *core.Page) (string, error) {
	content, err := im.deps.Content.Extract(page.HTML, page.URL)
	if err != nil {
		return "", fmt.Errorf("extracting main content: %w", err)
	}
	text, err := im.deps.Normalizer.Normalize(content)
	if err != nil {
		return "", fmt.Errorf("normalizing content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("page has no readable text")
	}
	return text, nil
}

func (im *Importer) freeText(ctx context.Context, text, source string, opts Options, log logger.Logger) (*recipe.Components, string, error) {
	tctx, cancel := im.step(ctx, opts)
	defer cancel()
	start := time.Now()
	comps, err := im.deps.Text.Extract(tctx, text, source)
	if err != nil {
		return nil, "", core.NewStageError(core.StageExtraction, core.ErrExtractionFailure, err)
	}
	log.Info("Free-text extraction succeeded", logger.Duration("duration", time.Since(start)))
	return comps, ExtractorFreeText, nil
}

// ImportText imports a recipe given as text.
func (im *Importer) ImportText(ctx context.Context, text string, opts Options) (*core.Import, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewStageError(core.StageInput, core.ErrInvalidInput, recipe.ErrEmptyText)
	}
	imp := newImport(KindText, TextSource)
	log := im.log.With(logger.String("import_id", imp.ID), logger.String("kind", KindText))

	if opts.Extract {
		if !im.textAvailable() {
			return nil, core.NewStageError(core.StageExtraction, core.ErrExtractionFailure,
				errors.New("free-text extractor is not configured"))
		}
		comps, name, err := im.freeText(ctx, text, TextSource, opts, log)
		if err != nil {
			return nil, err
		}
		imp.Components, imp.Extractor = comps, name
	} else {
		comps, err := recipe.ParseComponents(text)
		if err != nil {
			return nil, core.NewStageError(core.StageInput, core.ErrInvalidInput, err)
		}
		imp.Components, imp.Extractor = comps, ExtractorWire
	}
	return im.finish(ctx, imp, opts, log)
}

// ImportImages imports a recipe photographed across one or more images.
// Images are recognized in order.
func (im *Importer) ImportImages(ctx context.Context, images []recipe.ImageSource, opts Options) (*core.Import, error) {
	if len(images) == 0 {
		return nil, core.NewStageError(core.StageInput, core.ErrInvalidInput, ocr.ErrNoImages)
	}
	if im.deps.OCR == nil {
		return nil, core.NewStageError(core.StageExtraction, core.ErrExtractionFailure, errors.New("no OCR engine configured"))
	}

	labels := make([]string, len(images))
	for i, img := range images {
		labels[i] = img.Label()
	}
	imp := newImport(KindImage, strings.Join(labels, ", "))
	log := im.log.With(logger.String("import_id", imp.ID), logger.String("kind", KindImage), logger.Int("images", len(images)))

	var text core.TextExtractor
	if im.textAvailable() {
		text = timedText{TextExtractor: im.deps.Text, timeout: im.timeout(opts)}
	}
	stage := ocr.NewStage(timedOCR{OCREngine: im.deps.OCR, timeout: im.timeout(opts)}, text, log)

	res, err := stage.Run(ctx, images)
	if err != nil {
		if errors.Is(err, ocr.ErrUnreadableImage) {
			return nil, core.NewStageError(core.StageInput, core.ErrInvalidInput, err)
		}
		return nil, core.NewStageError(core.StageExtraction, core.ErrExtractionFailure, err)
	}
	imp.Components = res.Components
	imp.Extractor = ExtractorOCR
	if res.Structured {
		imp.Extractor = ExtractorFreeText
	}
	return im.finish(ctx, imp, opts, log)
}

// finish converts the components unless the run is extract-only.
func (im *Importer) finish(ctx context.Context, imp *core.Import, opts Options, log logger.Logger) (*core.Import, error) {
	if opts.ExtractOnly {
		log.Info("Extract-only run finished", logger.String("extractor", imp.Extractor))
		return imp, nil
	}

	conv, err := im.deps.Converters(opts.Provider, im.timeout(opts))
	if err != nil {
		return nil, core.NewStageError(core.StageConversion, core.ErrNoProvidersAvailable, err)
	}

	start := time.Now()
	out, name, err := conv.ConvertComponents(ctx, imp.Components)
	if err != nil {
		return nil, core.NewStageError(core.StageConversion, core.ErrConversionFailure, err)
	}
	imp.Output, imp.Provider = out, name
	log.Info("Conversion finished",
		logger.String("extractor", imp.Extractor),
		logger.String("provider", name),
		logger.Duration("duration", time.Since(start)),
	)
	return imp, nil
}

// timedOCR bounds each recognition by timeout.
type timedOCR struct {
	core.OCREngine
	timeout time.Duration
}

func (t timedOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.OCREngine.Recognize(ctx, image)
}

// timedText bounds each free-text call by timeout.
type timedText struct {
	core.TextExtractor
	timeout time.Duration
}

func (t timedText) Extract(ctx context.Context, text, source string) (*recipe.Components, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.TextExtractor.Extract(ctx, text, source)
}
