package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every nested override, e.g.
// COOKLANG__FALLBACK__RETRY_ATTEMPTS=5.
const EnvPrefix = "COOKLANG"

// EnvSeparator joins nested keys in environment variable names.
const EnvSeparator = "__"

// Defaults.
const (
	DefaultTimeout       = 30
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 2000
	DefaultRetryAttempts = 3
	DefaultRetryDelayMs  = 1000
	DefaultUserAgent     = "Mozilla/5.0 (compatible; CooklangBot/1.0)"
	DefaultFreeTextModel = "gpt-4o-mini"
	DefaultFreeTextWords = 3000
)

var defaultModels = map[string]string{
	ProviderOpenAI:      "gpt-4o-mini",
	ProviderAnthropic:   "claude-3-5-haiku-latest",
	ProviderGoogle:      "gemini-1.5-flash",
	ProviderAzureOpenAI: "gpt-4o-mini",
	ProviderOllama:      "llama3",
}

// credentialEnv maps config keys to the plain environment variables that
// may also supply them.
var credentialEnv = map[string]string{
	"providers.openai.api_key":       "OPENAI_API_KEY",
	"providers.anthropic.api_key":    "ANTHROPIC_API_KEY",
	"providers.google.api_key":       "GOOGLE_API_KEY",
	"providers.azure_openai.api_key": "AZURE_OPENAI_API_KEY",
	"freetext.api_key":               "OPENAI_API_KEY",
	"ocr.vision.api_key":             "GOOGLE_VISION_API_KEY",
	"fetch.render_url":               "PAGE_SCRIBER_URL",
}

// FlagKeys maps command-line flag names to the settings they override.
var FlagKeys = map[string]string{
	"timeout":    "timeout",
	"log-level":  "logger.level",
	"format":     "output.format",
	"output-dir": "output.dir",
	"ocr-engine": "ocr.engine",
}

// Load resolves the configuration. path may be empty, in which case
// config.yaml is looked up in the working directory and ./config. A
// missing file is not an error; an unreadable or invalid one is.
// Flags in FlagKeys that were set on the command line take priority over
// everything else; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix + "_")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", EnvSeparator))
	v.AutomaticEnv()

	if err := bindCredentials(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// bindCredentials lets both the prefixed nested name and the well-known
// plain name supply a credential. The prefixed name wins.
func bindCredentials(v *viper.Viper) error {
	for key, plain := range credentialEnv {
		nested := EnvPrefix + EnvSeparator + strings.ToUpper(strings.ReplaceAll(key, ".", EnvSeparator))
		if err := v.BindEnv(key, nested, plain); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", ProviderOpenAI)
	v.SetDefault("timeout", DefaultTimeout)

	v.SetDefault("extractors.enabled", ExtractorNames)
	v.SetDefault("extractors.order", ExtractorNames)

	v.SetDefault("converters.enabled", ProviderNames)
	v.SetDefault("converters.order", ProviderNames)
	v.SetDefault("converters.default", "")

	for _, name := range ProviderNames {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"enabled", name != ProviderAzureOpenAI && name != ProviderOllama)
		v.SetDefault(prefix+"model", defaultModels[name])
		v.SetDefault(prefix+"temperature", DefaultTemperature)
		v.SetDefault(prefix+"max_tokens", DefaultMaxTokens)
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"base_url", "")
		v.SetDefault(prefix+"endpoint", "")
		v.SetDefault(prefix+"deployment_name", "")
		v.SetDefault(prefix+"api_version", "")
		v.SetDefault(prefix+"project_id", "")
	}

	v.SetDefault("fallback.enabled", false)
	v.SetDefault("fallback.order", []string{})
	v.SetDefault("fallback.retry_attempts", DefaultRetryAttempts)
	v.SetDefault("fallback.retry_delay_ms", DefaultRetryDelayMs)

	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.render_url", "")
	v.SetDefault("fetch.text_fallback", false)

	v.SetDefault("freetext.model", DefaultFreeTextModel)
	v.SetDefault("freetext.api_key", "")
	v.SetDefault("freetext.base_url", "")
	v.SetDefault("freetext.max_words", DefaultFreeTextWords)

	v.SetDefault("ocr.engine", OCRVision)
	v.SetDefault("ocr.vision.api_key", "")
	v.SetDefault("ocr.vision.endpoint", "")
	v.SetDefault("ocr.tesseract.languages", []string{"eng"})

	v.SetDefault("output.format", "cook")
	v.SetDefault("output.dir", "")

	v.SetDefault("history.path", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_paths", []string{"stderr"})
}

// Default returns the configuration built from defaults alone, ignoring
// the environment and config files.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "decoding default config: %v\n", err)
	}
	return cfg
}
