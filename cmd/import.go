package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/chain"
	"github.com/gaurav-prasanna/recipepipe/core/extract"
	"github.com/gaurav-prasanna/recipepipe/core/fetch"
	"github.com/gaurav-prasanna/recipepipe/core/freetext"
	"github.com/gaurav-prasanna/recipepipe/core/normalize"
	"github.com/gaurav-prasanna/recipepipe/core/ocr"
	"github.com/gaurav-prasanna/recipepipe/core/output"
	"github.com/gaurav-prasanna/recipepipe/core/pipeline"
	"github.com/gaurav-prasanna/recipepipe/core/provider"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/core/render"
	"github.com/gaurav-prasanna/recipepipe/core/structured"
	"github.com/gaurav-prasanna/recipepipe/history"
	"github.com/gaurav-prasanna/recipepipe/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagText        string
	flagImages      []string
	flagExtractOnly bool
	flagNoExtract   bool
	flagProvider    string
	flagTimeout     int
	flagFormat      string
	flagOutputDir   string
	flagOCREngine   string
)

// importCmd routes one input through extraction and conversion, then
// renders and writes the result:
// input → extract → [convert] → render → write.
var importCmd = &cobra.Command{
	Use:   "import [url]",
	Short: "Import a recipe from a URL, text or images",
	Long: `Import extracts a recipe from exactly one input source and converts it to
Cooklang. With --extract-only the extracted recipe is written as-is and no
conversion provider is called.

Examples:
  recipepipe import https://example.com/best-lasagna
  recipepipe import https://example.com/best-lasagna --extract-only
  recipepipe import --text "$(cat recipe.txt)" --provider anthropic
  recipepipe import --text - --no-extract < recipe.txt
  recipepipe import --image page1.jpg --image page2.jpg --format pdf --output-dir ./out`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	// Input flags (mutually exclusive with the URL argument).
	importCmd.Flags().StringVar(&flagText, "text", "", "Recipe text (\"-\" reads stdin)")
	importCmd.Flags().StringArrayVar(&flagImages, "image", nil, "Image path, data: URI or base64: payload (repeatable, in page order)")

	// Pipeline flags.
	importCmd.Flags().BoolVar(&flagExtractOnly, "extract-only", false, "Stop after extraction")
	importCmd.Flags().BoolVar(&flagNoExtract, "no-extract", false, "Parse --text as the recipe wire format instead of extracting with a model")
	importCmd.Flags().StringVar(&flagProvider, "provider", "", "Conversion provider for this run ("+strings.Join(config.ProviderNames, ", ")+")")
	importCmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Network timeout in seconds (default from config)")
	importCmd.Flags().StringVar(&flagOCREngine, "ocr-engine", "", "OCR engine: vision or tesseract (default from config)")

	// Output flags.
	importCmd.Flags().StringVar(&flagFormat, "format", "", "Output format: "+strings.Join(render.Formats, ", ")+" (default from config)")
	importCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Write to this directory instead of stdout")
}

// input is the single source selected on the command line.
type input struct {
	kind   string
	url    string
	text   string
	images []recipe.ImageSource
}

func runImport(cmd *cobra.Command, args []string) error {
	in, err := selectInput(args, cmd.InOrStdin())
	if err != nil {
		return core.NewStageError(core.StageInput, core.ErrInvalidInput, err)
	}
	if err := checkFlags(); err != nil {
		return err
	}

	renderer, err := render.ForFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	importer, err := newImporter(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opts := pipeline.Options{
		ExtractOnly: flagExtractOnly,
		Extract:     !flagNoExtract,
		Provider:    flagProvider,
		Timeout:     cfg.TimeoutDuration(),
	}

	start := time.Now()
	imp, runErr := runPipeline(ctx, importer, in, opts)
	recordHistory(ctx, in, imp, runErr, time.Since(start))
	if runErr != nil {
		return runErr
	}

	data, err := renderer.Render(imp)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return writeResult(cmd.OutOrStdout(), imp, data, renderer.Extension())
}

// selectInput enforces exactly one of: URL argument, --text, --image.
func selectInput(args []string, stdin io.Reader) (input, error) {
	count := 0
	if len(args) == 1 {
		count++
	}
	if flagText != "" {
		count++
	}
	if len(flagImages) > 0 {
		count++
	}
	if count == 0 {
		return input{}, errors.New("no input: give a URL, --text or --image")
	}
	if count > 1 {
		return input{}, errors.New("a URL, --text and --image are mutually exclusive")
	}

	switch {
	case len(args) == 1:
		return input{kind: pipeline.KindURL, url: args[0]}, nil
	case flagText != "":
		text := flagText
		if text == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return input{}, fmt.Errorf("reading stdin: %w", err)
			}
			text = string(data)
		}
		return input{kind: pipeline.KindText, text: text}, nil
	default:
		images := make([]recipe.ImageSource, 0, len(flagImages))
		for _, v := range flagImages {
			images = append(images, imageSource(v))
		}
		return input{kind: pipeline.KindImage, images: images}, nil
	}
}

func imageSource(v string) recipe.ImageSource {
	switch {
	case strings.HasPrefix(v, "data:"):
		return recipe.ImageBase64(v)
	case strings.HasPrefix(v, "base64:"):
		return recipe.ImageBase64(strings.TrimPrefix(v, "base64:"))
	default:
		return recipe.ImagePath(v)
	}
}

// checkFlags rejects flag combinations no pipeline accepts. Flags that
// override settings are applied by config.Load.
func checkFlags() error {
	if flagNoExtract && flagText == "" {
		return core.NewStageError(core.StageInput, core.ErrInvalidInput, errors.New("--no-extract only applies to --text"))
	}
	return nil
}

// newImporter wires the pipeline collaborators from configuration.
func newImporter(cfg *config.Config, log logger.Logger) (*pipeline.Importer, error) {
	timeout := cfg.TimeoutDuration()

	extractors, err := structured.NewRegistry().NewChain(
		chain.Effective(cfg.Extractors.Order, cfg.Extractors.Enabled), log)
	if err != nil {
		return nil, fmt.Errorf("building extractor chain: %w", err)
	}

	text := freetext.New(freetext.Options{
		APIKey:   cfg.FreeText.APIKey,
		Model:    cfg.FreeText.Model,
		BaseURL:  cfg.FreeText.BaseURL,
		MaxWords: cfg.FreeText.MaxWords,
		Timeout:  timeout,
	}, log)

	return pipeline.New(cfg, pipeline.Deps{
		Fetcher:    fetch.New(cfg.Fetch.UserAgent, timeout),
		Renderer:   fetch.NewRenderFetcher(cfg.Fetch.RenderURL, timeout),
		Structured: extractors,
		Content:    extract.New(),
		Normalizer: normalize.New(),
		Text:       text,
		OCR:        ocrEngine(cfg, timeout),
		Converters: func(override string, timeout time.Duration) (pipeline.Converter, error) {
			conv, err := provider.FromConfig(cfg, override, timeout, log)
			if err != nil {
				return nil, err
			}
			log.Debug("Provider chain resolved", logger.Strings("providers", conv.Names()))
			return conv, nil
		},
	}, log)
}

// ocrEngine returns nil when the selected engine cannot run.
func ocrEngine(cfg *config.Config, timeout time.Duration) core.OCREngine {
	switch cfg.OCR.Engine {
	case config.OCRTesseract:
		return tesseractEngine(cfg.OCR.Tesseract.Languages)
	default:
		if cfg.OCR.Vision.APIKey == "" {
			return nil
		}
		return ocr.NewVision(cfg.OCR.Vision.APIKey, cfg.OCR.Vision.Endpoint, timeout)
	}
}

func runPipeline(ctx context.Context, im *pipeline.Importer, in input, opts pipeline.Options) (*core.Import, error) {
	switch in.kind {
	case pipeline.KindURL:
		return im.ImportURL(ctx, in.url, opts)
	case pipeline.KindText:
		return im.ImportText(ctx, in.text, opts)
	default:
		return im.ImportImages(ctx, in.images, opts)
	}
}

// writeResult prints to w, or writes a file when an output directory is set.
func writeResult(w io.Writer, imp *core.Import, data []byte, ext string) error {
	if cfg.Output.Dir == "" {
		_, err := w.Write(data)
		return err
	}
	writer, err := output.New(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	path, err := writer.Write(output.FileName(imp), data, ext)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Written: %s\n", path)
	return nil
}

// recordHistory logs the run when history is enabled. Failures to record
// are logged and otherwise ignored.
func recordHistory(ctx context.Context, in input, imp *core.Import, runErr error, elapsed time.Duration) {
	if cfg.History.Path == "" {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn("History unavailable", logger.Error(err))
		return
	}
	defer store.Close()

	entry := history.Entry{Kind: in.kind, Status: history.StatusOK, Duration: elapsed}
	if imp != nil {
		entry.ID, entry.Source = imp.ID, imp.Source
		entry.Extractor, entry.Provider = imp.Extractor, imp.Provider
	} else {
		entry.ID, entry.Source = uuid.NewString(), in.source()
	}
	if runErr != nil {
		entry.Status, entry.Error = history.StatusFailed, runErr.Error()
	}
	if err := store.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("Recording history failed", logger.Error(err))
	}
}

func (in input) source() string {
	switch in.kind {
	case pipeline.KindURL:
		return in.url
	case pipeline.KindText:
		return pipeline.TextSource
	}
	labels := make([]string, len(in.images))
	for i, img := range in.images {
		labels[i] = img.Label()
	}
	return strings.Join(labels, ", ")
}
