package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaurav-prasanna/recipepipe/core/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	temp := 0.2
	c := llm.NewClient(srv.URL, "m1", 0).WithBearer("sk-test")
	c.Temperature = &temp
	c.MaxTokens = 50
	c.JSON = true

	out, err := c.Complete(context.Background(), llm.Message{Role: "user", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "m1", got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)
	assert.EqualValues(t, 50, got["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`},
		{"api error", http.StatusOK, `{"error":{"message":"bad model"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"invalid json", http.StatusOK, `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := llm.NewClient(srv.URL, "m", 0).Complete(context.Background(), llm.Message{Role: "user", Content: "x"})
			assert.Error(t, err)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "a\nb", llm.StripFences("```cooklang\na\nb\n```"))
	assert.Equal(t, "plain", llm.StripFences("  plain "))
	assert.Equal(t, `{"x":1}`, llm.StripFences("```\n{\"x\":1}\n```"))
}
