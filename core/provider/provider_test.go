package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/chain"
	"github.com/gaurav-prasanna/recipepipe/core/provider"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/gaurav-prasanna/recipepipe/core/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider fails the first failures calls, then returns out.
type fakeProvider struct {
	name     string
	failures int
	out      string
	calls    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Convert(_ context.Context, text string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("boom")
	}
	return f.out + " <- " + text, nil
}

// recordSleep returns a sleeper that records delays without waiting.
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestConverterRetriesThenFallsBack(t *testing.T) {
	first := &fakeProvider{name: "first", failures: 100}
	second := &fakeProvider{name: "second", failures: 1, out: "ok"}

	var delays []time.Duration
	policy := retry.Policy{Attempts: 3, BaseDelay: 100 * time.Millisecond, Sleep: recordSleep(&delays)}
	c := provider.NewConverter([]core.Provider{first, second}, policy, nil)

	out, name, err := c.Convert(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "ok <- text", out)
	assert.Equal(t, "second", name)
	assert.Equal(t, 3, first.calls)
	assert.Equal(t, 2, second.calls)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond, 200 * time.Millisecond, // first provider
		100 * time.Millisecond, // second provider
	}, delays)
}

func TestConverterAllFail(t *testing.T) {
	a := &fakeProvider{name: "a", failures: 100}
	b := &fakeProvider{name: "b", failures: 100}
	var delays []time.Duration
	c := provider.NewConverter([]core.Provider{a, b}, retry.Policy{Attempts: 2, Sleep: recordSleep(&delays)}, nil)

	_, _, err := c.Convert(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "all providers failed:\na: "), err.Error())
	assert.Contains(t, err.Error(), "\nb: ")

	var exhausted *chain.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Failures, 2)
}

func TestConverterRealBackoffTiming(t *testing.T) {
	p := &fakeProvider{name: "slow", failures: 2, out: "ok"}
	c := provider.NewConverter([]core.Provider{p}, retry.FromMillis(3, 20), nil)

	start := time.Now()
	_, _, err := c.Convert(context.Background(), "x")
	require.NoError(t, err)
	elapsed := time.Since(start)
	// 20ms + 40ms
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestConvertComponentsReattachesMetadata(t *testing.T) {
	var md recipe.Metadata
	md.Set(recipe.KeySource, "https://example.com/r")
	comps := &recipe.Components{Name: "Soup", Metadata: md, Text: "water\n\nBoil."}

	p := &fakeProvider{name: "p", out: "Boil @water{}."}
	out, _, err := provider.NewConverter([]core.Provider{p}, retry.Once(), nil).ConvertComponents(context.Background(), comps)
	require.NoError(t, err)
	assert.Equal(t, "---\nsource: \"https://example.com/r\"\ntitle: Soup\n---\n\nBoil @water{}. <- water\n\nBoil.\n", out)
}

// testConfig enables fallback over every provider with keys set and
// base URLs pointing at srv.
func testConfig(srvURL string) *config.Config {
	cfg := config.Default()
	for _, name := range config.ProviderNames {
		p := cfg.Providers[name]
		p.Enabled = true
		p.APIKey = "key-" + name
		p.BaseURL = srvURL
		p.Endpoint = srvURL
		p.DeploymentName = "dep"
		cfg.Providers[name] = p
	}
	return cfg
}

func TestFromConfigFallbackDisabledUsesOnlyDefault(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Fallback.Enabled = false
	cfg.Fallback.Order = []string{"anthropic", "google", "openai"}
	cfg.Fallback.RetryAttempts = 5

	c, err := provider.FromConfig(cfg, "", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, c.Names())

	c, err = provider.FromConfig(cfg, "ollama", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ollama"}, c.Names())
}

func TestFromConfigFallbackOrder(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Fallback.Enabled = true
	cfg.Fallback.Order = []string{"google", "azure_openai", "anthropic", "openai"}
	cfg.Converters.Enabled = []string{"openai", "anthropic", "google", "azure_openai"}

	azure := cfg.Providers["azure_openai"]
	azure.Enabled = false
	cfg.Providers["azure_openai"] = azure

	anthropic := cfg.Providers["anthropic"]
	anthropic.APIKey = ""
	cfg.Providers["anthropic"] = anthropic

	c, err := provider.FromConfig(cfg, "", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"google", "openai"}, c.Names())

	c, err = provider.FromConfig(cfg, "openai", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "google"}, c.Names())
}

func TestFromConfigNoProviders(t *testing.T) {
	cfg := testConfig("")
	cfg.Fallback.Enabled = true
	cfg.Fallback.Order = []string{"openai"}
	cfg.Converters.Enabled = []string{"anthropic"}

	_, err := provider.FromConfig(cfg, "", time.Second, nil)
	assert.ErrorIs(t, err, provider.ErrNoProviders)

	cfg.Fallback.Enabled = false
	p := cfg.Providers["openai"]
	p.APIKey = ""
	cfg.Providers["openai"] = p
	_, err = provider.FromConfig(cfg, "", time.Second, nil)
	assert.ErrorIs(t, err, provider.ErrNoProviders)
	assert.ErrorIs(t, err, provider.ErrMissingCredential)

	_, err = provider.FromConfig(cfg, "nope", time.Second, nil)
	assert.ErrorIs(t, err, provider.ErrUnknown)
}

// chatServer answers OpenAI-style chat completions and records the request.
func chatServer(t *testing.T, reply string, gotPath, gotQuery *string, gotHeader *http.Header, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotPath, *gotQuery, *gotHeader = r.URL.Path, r.URL.RawQuery, r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatProviders(t *testing.T) {
	var (
		path, query string
		header      http.Header
		body        map[string]any
	)
	srv := chatServer(t, "```\nBoil @water{}.\n```", &path, &query, &header, &body)
	cfg := testConfig(srv.URL)

	tests := []struct {
		name      string
		wantPath  string
		wantQuery string
		check     func(t *testing.T)
	}{
		{config.ProviderOpenAI, "/v1/chat/completions", "", func(t *testing.T) {
			assert.Equal(t, "Bearer key-openai", header.Get("Authorization"))
			assert.Equal(t, cfg.Providers["openai"].Model, body["model"])
		}},
		{config.ProviderAzureOpenAI, "/openai/deployments/dep/chat/completions", "api-version=2024-02-15-preview", func(t *testing.T) {
			assert.Equal(t, "key-azure_openai", header.Get("api-key"))
			assert.NotContains(t, body, "model")
		}},
		{config.ProviderOllama, "/v1/chat/completions", "", func(t *testing.T) {
			assert.Empty(t, header.Get("Authorization"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := provider.Build(tt.name, cfg.Providers[tt.name], time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name())

			out, err := p.Convert(context.Background(), "water\n\nBoil the water.")
			require.NoError(t, err)
			assert.Equal(t, "Boil @water{}.", out)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantQuery, query)
			assert.InDelta(t, config.DefaultTemperature, body["temperature"], 1e-9)
			assert.EqualValues(t, config.DefaultMaxTokens, body["max_tokens"])

			msgs, ok := body["messages"].([]any)
			require.True(t, ok)
			content := msgs[0].(map[string]any)["content"].(string)
			assert.Contains(t, content, "Boil the water.")
			assert.NotContains(t, content, "{{RECIPE}}")
			tt.check(t)
		})
	}
}

func TestGoogleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "key-google", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gen := body["generationConfig"].(map[string]any)
		assert.EqualValues(t, config.DefaultMaxTokens, gen["maxOutputTokens"])
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Mix @flour{}."}]}}]}`))
	}))
	defer srv.Close()

	p, err := provider.Build(config.ProviderGoogle, testConfig(srv.URL).Providers[config.ProviderGoogle], time.Second)
	require.NoError(t, err)
	out, err := p.Convert(context.Background(), "flour\n\nMix.")
	require.NoError(t, err)
	assert.Equal(t, "Mix @flour{}.", out)
}

func TestGoogleProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	p, err := provider.Build(config.ProviderGoogle, testConfig(srv.URL).Providers[config.ProviderGoogle], time.Second)
	require.NoError(t, err)
	_, err = p.Convert(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGoogleProviderJoinsParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Mix @flour{}."},{"text":"\n\nBake in #oven."}]}}]}`))
	}))
	defer srv.Close()

	p, err := provider.Build(config.ProviderGoogle, testConfig(srv.URL).Providers[config.ProviderGoogle], time.Second)
	require.NoError(t, err)
	out, err := p.Convert(context.Background(), "flour\n\nMix. Bake.")
	require.NoError(t, err)
	assert.Equal(t, "Mix @flour{}.\n\nBake in #oven.", out)
}

func TestGoogleProviderErrorHidesKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1").Providers[config.ProviderGoogle]
	cfg.APIKey = "SECRET-KEY-123"

	p, err := provider.Build(config.ProviderGoogle, cfg, time.Second)
	require.NoError(t, err)
	_, err = p.Convert(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

func TestAnthropicProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key-anthropic", r.Header.Get("X-Api-Key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, config.DefaultMaxTokens, body["max_tokens"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude",
			"content":[{"type":"text","text":"Fry @egg{1}."}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	p, err := provider.Build(config.ProviderAnthropic, testConfig(srv.URL).Providers[config.ProviderAnthropic], time.Second)
	require.NoError(t, err)
	out, err := p.Convert(context.Background(), "1 egg\n\nFry.")
	require.NoError(t, err)
	assert.Equal(t, "Fry @egg{1}.", out)
}

func TestPromptInjectsRecipe(t *testing.T) {
	p := provider.Prompt("  2 potatoes\n\nBoil.  ")
	assert.Contains(t, p, "Cooklang")
	assert.Contains(t, p, "@potato{2}")
	assert.Contains(t, p, "#pot")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(p), "2 potatoes\n\nBoil."))
}
