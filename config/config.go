// Package config resolves recipepipe settings once at startup from, in
// order of priority: environment variables, an optional config file, and
// built-in defaults. The result is passed explicitly to every component.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/gaurav-prasanna/recipepipe/logger"
)

// Extractor names.
const (
	ExtractorJSONLD    = "json_ld"
	ExtractorMicrodata = "microdata"
	ExtractorHTMLClass = "html_class"
)

// Provider names.
const (
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGoogle      = "google"
	ProviderAzureOpenAI = "azure_openai"
	ProviderOllama      = "ollama"
)

// OCR engine names.
const (
	OCRVision    = "vision"
	OCRTesseract = "tesseract"
)

// ExtractorNames lists the structured extractors in default order.
var ExtractorNames = []string{ExtractorJSONLD, ExtractorMicrodata, ExtractorHTMLClass}

// ProviderNames lists the supported conversion providers.
var ProviderNames = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderAzureOpenAI, ProviderOllama}

// Config is the resolved configuration.
type Config struct {
	DefaultProvider string              `mapstructure:"default_provider"`
	Timeout         int                 `mapstructure:"timeout"`
	Extractors      Chain               `mapstructure:"extractors"`
	Converters      Converters          `mapstructure:"converters"`
	Providers       map[string]Provider `mapstructure:"providers"`
	Fallback        Fallback            `mapstructure:"fallback"`
	Fetch           Fetch               `mapstructure:"fetch"`
	FreeText        FreeText            `mapstructure:"freetext"`
	OCR             OCR                 `mapstructure:"ocr"`
	Output          Output              `mapstructure:"output"`
	History         History             `mapstructure:"history"`
	Logger          logger.Config       `mapstructure:"logger"`
}

// Chain is an ordered list of strategies and the subset that is enabled.
type Chain struct {
	Enabled []string `mapstructure:"enabled"`
	Order   []string `mapstructure:"order"`
}

// Converters configures the conversion chain.
type Converters struct {
	Enabled []string `mapstructure:"enabled"`
	Order   []string `mapstructure:"order"`
	Default string   `mapstructure:"default"`
}

// Provider configures one conversion provider.
type Provider struct {
	Enabled        bool    `mapstructure:"enabled"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Endpoint       string  `mapstructure:"endpoint"`
	DeploymentName string  `mapstructure:"deployment_name"`
	APIVersion     string  `mapstructure:"api_version"`
	ProjectID      string  `mapstructure:"project_id"`
}

// Fallback is the provider fallback policy.
type Fallback struct {
	Enabled       bool     `mapstructure:"enabled"`
	Order         []string `mapstructure:"order"`
	RetryAttempts int      `mapstructure:"retry_attempts"`
	RetryDelayMs  int      `mapstructure:"retry_delay_ms"`
}

// Fetch configures page fetching.
type Fetch struct {
	UserAgent string `mapstructure:"user_agent"`
	// RenderURL is the address of the script-rendering service. Empty
	// disables the secondary fetch.
	RenderURL string `mapstructure:"render_url"`
	// TextFallback lets the free-text extractor read the main content of
	// the already fetched page when no rendering service is configured.
	TextFallback bool `mapstructure:"text_fallback"`
}

// FreeText configures the language-model text extractor.
type FreeText struct {
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	MaxWords int    `mapstructure:"max_words"`
}

// OCR configures image recognition.
type OCR struct {
	Engine    string    `mapstructure:"engine"`
	Vision    Vision    `mapstructure:"vision"`
	Tesseract Tesseract `mapstructure:"tesseract"`
}

// Vision configures the Google Cloud Vision engine.
type Vision struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// Tesseract configures the local tesseract engine.
type Tesseract struct {
	Languages []string `mapstructure:"languages"`
}

// Output configures rendering of results.
type Output struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// History configures the import history store.
type History struct {
	// Path of the sqlite database. Empty disables history.
	Path string `mapstructure:"path"`
}

// TimeoutDuration returns the network timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// DefaultProviderName returns converters.default, falling back to
// default_provider.
func (c *Config) DefaultProviderName() string {
	if c.Converters.Default != "" {
		return c.Converters.Default
	}
	return c.DefaultProvider
}

// Validate rejects settings no pipeline can run with.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	if c.Fallback.RetryAttempts < 0 {
		return fmt.Errorf("fallback.retry_attempts must not be negative, got %d", c.Fallback.RetryAttempts)
	}
	if c.Fallback.RetryDelayMs < 0 {
		return fmt.Errorf("fallback.retry_delay_ms must not be negative, got %d", c.Fallback.RetryDelayMs)
	}
	for _, name := range append(slices.Clone(c.Extractors.Order), c.Extractors.Enabled...) {
		if !slices.Contains(ExtractorNames, name) {
			return fmt.Errorf("unknown extractor %q", name)
		}
	}
	if name := c.DefaultProviderName(); !slices.Contains(ProviderNames, name) {
		return fmt.Errorf("unknown default provider %q", name)
	}
	switch c.OCR.Engine {
	case OCRVision, OCRTesseract:
	default:
		return fmt.Errorf("unknown ocr engine %q", c.OCR.Engine)
	}
	return nil
}
