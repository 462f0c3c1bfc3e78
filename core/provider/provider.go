// Package provider implements the Cooklang conversion providers and the
// fallback converter that runs them in order with retry and backoff.
package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/chain"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/core/retry"
	"github.com/gaurav-prasanna/recipepipe/logger"
)

var (
	// ErrNoProviders is returned when the effective provider chain is empty.
	ErrNoProviders = errors.New("no providers available")
	// ErrMissingCredential is returned when a provider's API key is unset.
	ErrMissingCredential = errors.New("missing API key")
	// ErrDisabled is returned when building a provider that is not enabled.
	ErrDisabled = errors.New("provider is not enabled in configuration")
	// ErrUnknown is returned for an unsupported provider name.
	ErrUnknown = errors.New("unknown provider")
)

// Build creates the named provider from its configuration.
func Build(name string, cfg config.Provider, timeout time.Duration) (core.Provider, error) {
	if !slices.Contains(config.ProviderNames, name) {
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%s: %w", name, ErrDisabled)
	}
	var (
		p   core.Provider
		err error
	)
	switch name {
	case config.ProviderOpenAI:
		p, err = NewOpenAI(cfg, timeout)
	case config.ProviderAnthropic:
		p, err = NewAnthropic(cfg, timeout)
	case config.ProviderGoogle:
		p, err = NewGoogle(cfg, timeout)
	case config.ProviderAzureOpenAI:
		p, err = NewAzureOpenAI(cfg, timeout)
	case config.ProviderOllama:
		p, err = NewOllama(cfg, timeout)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// Converter runs providers in order until one returns markup.
type Converter struct {
	providers []core.Provider
	policy    retry.Policy
	log       logger.Logger
}

// NewConverter creates a Converter over an explicit provider list.
func NewConverter(providers []core.Provider, policy retry.Policy, log logger.Logger) *Converter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Converter{providers: providers, policy: policy, log: log}
}

// FromConfig resolves the provider chain for one run.
//
// With fallback disabled only the default provider (or override) is used,
// once. With fallback enabled the chain is fallback.order (converters.order
// when empty), filtered by converters.enabled and providers.<name>.enabled;
// providers that cannot be built are skipped with a warning. A non-empty
// override moves that provider to the front.
func FromConfig(cfg *config.Config, override string, timeout time.Duration, log logger.Logger) (*Converter, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = cfg.TimeoutDuration()
	}

	if !cfg.Fallback.Enabled {
		name := override
		if name == "" {
			name = cfg.DefaultProviderName()
		}
		p, err := Build(name, cfg.Providers[name], timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoProviders, err)
		}
		return NewConverter([]core.Provider{p}, retry.Once(), log), nil
	}

	order := cfg.Fallback.Order
	if len(order) == 0 {
		order = cfg.Converters.Order
	}
	names := chain.Effective(order, cfg.Converters.Enabled)
	if override != "" {
		names = append([]string{override}, slices.DeleteFunc(names, func(n string) bool { return n == override })...)
	}

	var (
		providers []core.Provider
		skipped   []error
	)
	for _, name := range names {
		p, err := Build(name, cfg.Providers[name], timeout)
		if err != nil {
			log.Warn("Skipping provider", logger.String("provider", name), logger.Error(err))
			skipped = append(skipped, err)
			continue
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, errors.Join(append([]error{ErrNoProviders}, skipped...)...)
	}

	policy := retry.FromMillis(cfg.Fallback.RetryAttempts, cfg.Fallback.RetryDelayMs)
	return NewConverter(providers, policy, log), nil
}

// Names returns the provider names in run order.
func (c *Converter) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Convert sends the ingredients and instructions text through the chain
// and returns the provider body and the name of the provider that
// produced it.
func (c *Converter) Convert(ctx context.Context, text string) (string, string, error) {
	if len(c.providers) == 0 {
		return "", "", ErrNoProviders
	}
	steps := make([]chain.Step[string], 0, len(c.providers))
	for _, p := range c.providers {
		steps = append(steps, chain.Step[string]{
			Name: p.Name(),
			Run: func(ctx context.Context) (string, error) {
				return p.Convert(ctx, text)
			},
		})
	}
	return chain.Run(ctx, chain.Runner{Label: "providers", Policy: c.policy, Log: c.log}, steps)
}

// ConvertComponents converts comps and re-attaches the metadata block
// ahead of the provider body.
func (c *Converter) ConvertComponents(ctx context.Context, comps *recipe.Components) (string, string, error) {
	body, name, err := c.Convert(ctx, comps.Text)
	if err != nil {
		return "", "", err
	}
	return comps.Assemble(body), name, nil
}
