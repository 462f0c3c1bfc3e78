package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const renderPath = "/api/fetch-content"

// RenderFetcher fetches pages through a script-capable rendering service.
// It is only available when the service address is configured.
type RenderFetcher struct {
	baseURL string
	client  *http.Client
}

// NewRenderFetcher creates a RenderFetcher for the service at baseURL.
func NewRenderFetcher(baseURL string, timeout time.Duration) *RenderFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RenderFetcher{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type renderRequest struct {
	URL string `json:"url"`
}

type renderResponse struct {
	Content string `json:"content"`
}

// Available reports whether a rendering service address is configured.
func (r *RenderFetcher) Available() bool {
	return r != nil && r.baseURL != ""
}

// FetchText asks the rendering service for the text of url.
func (r *RenderFetcher) FetchText(ctx context.Context, url string) (string, error) {
	if !r.Available() {
		return "", fmt.Errorf("rendering service not configured")
	}

	body, err := json.Marshal(renderRequest{URL: url})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+renderPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling rendering service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("rendering service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding rendering service response: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return "", fmt.Errorf("rendering service returned no content for %s", url)
	}
	return out.Content, nil
}
