package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/gaurav-prasanna/recipepipe/core/llm"
)

// Default endpoints.
const (
	DefaultOpenAIURL       = "https://api.openai.com"
	DefaultOllamaURL       = "http://localhost:11434"
	DefaultAzureAPIVersion = "2024-02-15-preview"
)

// Chat is a provider for any OpenAI-compatible chat completions endpoint.
// OpenAI, Azure OpenAI and Ollama differ only in URL and authentication.
type Chat struct {
	name   string
	client *llm.Client
}

// Name returns the provider name.
func (c *Chat) Name() string { return c.name }

// Convert asks the model to rewrite text as Cooklang.
func (c *Chat) Convert(ctx context.Context, text string) (string, error) {
	out, err := c.client.Complete(ctx, llm.Message{Role: "user", Content: Prompt(text)})
	if err != nil {
		return "", err
	}
	if out = llm.StripFences(out); out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

func newChat(name, endpoint, model string, cfg config.Provider, timeout time.Duration) *Chat {
	client := llm.NewClient(endpoint, model, timeout)
	temp := cfg.Temperature
	client.Temperature = &temp
	client.MaxTokens = cfg.MaxTokens
	return &Chat{name: name, client: client}
}

// NewOpenAI creates the OpenAI provider. base_url overrides the API root.
func NewOpenAI(cfg config.Provider, timeout time.Duration) (*Chat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingCredential)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOpenAIURL
	}
	c := newChat(config.ProviderOpenAI, base+"/v1/chat/completions", cfg.Model, cfg, timeout)
	c.client.WithBearer(cfg.APIKey)
	return c, nil
}

// NewAzureOpenAI creates the Azure OpenAI provider. The model is chosen by
// the deployment, so none is sent.
func NewAzureOpenAI(cfg config.Provider, timeout time.Duration) (*Chat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: AZURE_OPENAI_API_KEY", ErrMissingCredential)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure_openai: endpoint is required")
	}
	if cfg.DeploymentName == "" {
		return nil, fmt.Errorf("azure_openai: deployment_name is required")
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAzureAPIVersion
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(cfg.Endpoint, "/"), url.PathEscape(cfg.DeploymentName), url.QueryEscape(version))

	c := newChat(config.ProviderAzureOpenAI, endpoint, "", cfg, timeout)
	c.client.Header.Set("api-key", cfg.APIKey)
	return c, nil
}

// NewOllama creates the Ollama provider. No credential is needed.
func NewOllama(cfg config.Provider, timeout time.Duration) (*Chat, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOllamaURL
	}
	return newChat(config.ProviderOllama, base+"/v1/chat/completions", cfg.Model, cfg, timeout), nil
}
