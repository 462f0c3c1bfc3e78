// Package freetext turns unstructured recipe text into recipe components
// by asking a language model for a JSON breakdown.
package freetext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gaurav-prasanna/recipepipe/core/chunk"
	"github.com/gaurav-prasanna/recipepipe/core/llm"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/logger"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com"

// ErrNotRecipe is returned when the model reports the text is not a recipe.
var ErrNotRecipe = errors.New("not a recipe")

// ErrUnavailable is returned when no credential is configured.
var ErrUnavailable = errors.New("free-text extractor has no API key")

const systemPrompt = `You're an expert in finding recipe ingredients and instructions from messy texts.
Sometimes the text is not a recipe, in that case specify that in the error field.
Given the text, output only this JSON without any other characters:

{
  "title": "<RECIPE TITLE OR EMPTY>",
  "servings": "<SERVINGS OR EMPTY>",
  "prep_time": "<PREP TIME OR EMPTY>",
  "cook_time": "<COOK TIME OR EMPTY>",
  "total_time": "<TOTAL TIME OR EMPTY>",
  "ingredients": [<LIST OF INGREDIENTS HERE>],
  "instructions": [<LIST OF INSTRUCTIONS HERE>],
  "error": "<ERROR MESSAGE HERE IF NO RECIPE>"
}`

// Options configures an Extractor.
type Options struct {
	APIKey   string
	Model    string
	BaseURL  string
	MaxWords int
	Timeout  time.Duration
}

// Extractor is the language-model text extractor.
type Extractor struct {
	apiKey  string
	client  *llm.Client
	chunker *chunk.Chunker
	log     logger.Logger
}

// New creates an Extractor. It is usable only when opts.APIKey is set.
func New(opts Options, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := llm.NewClient(base+"/v1/chat/completions", opts.Model, opts.Timeout).WithBearer(opts.APIKey)
	client.JSON = true
	return &Extractor{
		apiKey:  strings.TrimSpace(opts.APIKey),
		client:  client,
		chunker: chunk.New(opts.MaxWords),
		log:     log,
	}
}

// Available reports whether a credential is configured. It never touches
// the network.
func (e *Extractor) Available() bool {
	return e != nil && e.apiKey != ""
}

// reply is the JSON the model is asked for. Time and servings fields are
// sometimes returned as numbers.
type reply struct {
	Title        flexString   `json:"title"`
	Servings     flexString   `json:"servings"`
	PrepTime     flexString   `json:"prep_time"`
	CookTime     flexString   `json:"cook_time"`
	TotalTime    flexString   `json:"total_time"`
	Ingredients  []flexString `json:"ingredients"`
	Instructions []flexString `json:"instructions"`
	Error        flexString   `json:"error"`
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	// null and anything else read as empty
	*f = ""
	return nil
}

// Extract sends text to the model and flattens the answer. source becomes
// the source metadata entry.
func (e *Extractor) Extract(ctx context.Context, text, source string) (*recipe.Components, error) {
	if !e.Available() {
		return nil, ErrUnavailable
	}
	input := e.chunker.Truncate(text)
	if input == "" {
		return nil, recipe.ErrEmptyText
	}

	start := time.Now()
	content, err := e.client.Complete(ctx,
		llm.Message{Role: "system", Content: systemPrompt},
		llm.Message{Role: "user", Content: input},
	)
	if err != nil {
		return nil, fmt.Errorf("free-text extraction: %w", err)
	}
	e.log.Debug("Free-text extraction answered",
		logger.String("source", source),
		logger.Int("words", len(strings.Fields(input))),
		logger.Duration("duration", time.Since(start)),
	)

	var r reply
	if err := json.Unmarshal([]byte(llm.StripFences(content)), &r); err != nil {
		return nil, fmt.Errorf("decoding model JSON: %w", err)
	}
	return flatten(&r, source)
}

func flatten(r *reply, source string) (*recipe.Components, error) {
	if msg := strings.TrimSpace(string(r.Error)); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotRecipe, msg)
	}

	var md recipe.Metadata
	md.Set(recipe.KeySource, source)
	md.Set(recipe.KeyServings, string(r.Servings))
	md.Set(recipe.KeyPrepTime, string(r.PrepTime))
	md.Set(recipe.KeyCookTime, string(r.CookTime))
	md.Set(recipe.KeyTotalTime, string(r.TotalTime))

	text := recipe.JoinText(lines(r.Ingredients), strings.Join(lines(r.Instructions), " "))
	if text == "" {
		return nil, fmt.Errorf("%w: no ingredients or instructions returned", ErrNotRecipe)
	}
	return &recipe.Components{
		Name:     strings.TrimSpace(string(r.Title)),
		Metadata: md,
		Text:     text,
	}, nil
}

func lines(in []flexString) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(string(s)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
