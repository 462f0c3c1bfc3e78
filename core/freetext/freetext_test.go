package freetext_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gaurav-prasanna/recipepipe/core/freetext"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelServer answers every chat completion with content.
func modelServer(t *testing.T, content string, calls *atomic.Int32, lastUser *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if lastUser != nil && len(req.Messages) > 1 {
			*lastUser = req.Messages[1].Content
		}
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractFlattensReply(t *testing.T) {
	var calls atomic.Int32
	srv := modelServer(t, `{"title":"Pasta","servings":4,"prep_time":"10 min","cook_time":null,"total_time":"",
		"ingredients":["200g pasta"," ","1 jar sauce"],"instructions":["Boil pasta.","Add sauce."],"error":""}`, &calls, nil)

	e := freetext.New(freetext.Options{APIKey: "k", Model: "m", BaseURL: srv.URL}, nil)
	require.True(t, e.Available())

	c, err := e.Extract(context.Background(), "some messy text", "direct-input")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, "Pasta", c.Name)
	assert.Equal(t, "200g pasta\n1 jar sauce\n\nBoil pasta. Add sauce.", c.Text)
	assert.Equal(t, []string{recipe.KeySource, recipe.KeyServings, recipe.KeyPrepTime}, c.Metadata.Keys())
	assert.Equal(t, "direct-input", c.Metadata.Map()[recipe.KeySource])
	assert.Equal(t, "4", c.Metadata.Map()[recipe.KeyServings])
}

func TestExtractNotARecipe(t *testing.T) {
	var calls atomic.Int32
	srv := modelServer(t, "```json\n{\"ingredients\":[],\"instructions\":[],\"error\":\"this is a poem\"}\n```", &calls, nil)

	e := freetext.New(freetext.Options{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := e.Extract(context.Background(), "roses are red", "direct-input")
	require.ErrorIs(t, err, freetext.ErrNotRecipe)
	assert.Contains(t, err.Error(), "this is a poem")
}

func TestExtractTruncatesInput(t *testing.T) {
	var calls atomic.Int32
	var sent string
	srv := modelServer(t, `{"ingredients":["a"],"instructions":["b"]}`, &calls, &sent)

	e := freetext.New(freetext.Options{APIKey: "k", BaseURL: srv.URL, MaxWords: 5}, nil)
	_, err := e.Extract(context.Background(), strings.Repeat("word ", 100), "x")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(sent), 5)
}

func TestUnavailableWithoutKey(t *testing.T) {
	e := freetext.New(freetext.Options{}, nil)
	assert.False(t, e.Available())
	_, err := e.Extract(context.Background(), "text", "x")
	assert.ErrorIs(t, err, freetext.ErrUnavailable)
}
