package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultVisionEndpoint is the Google Cloud Vision annotate URL.
const DefaultVisionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// ErrNoText is returned when an engine finds no text in an image.
var ErrNoText = errors.New("no text detected in image")

// Vision recognizes text with the Google Cloud Vision API.
type Vision struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewVision creates a Vision engine. An empty endpoint uses the public API.
func NewVision(apiKey, endpoint string, timeout time.Duration) *Vision {
	if endpoint == "" {
		endpoint = DefaultVisionEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Vision{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the engine name.
func (v *Vision) Name() string { return "vision" }

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Recognize runs TEXT_DETECTION on image.
func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	if v.apiKey == "" {
		return "", fmt.Errorf("vision: API key not configured")
	}

	var item visionImageRequest
	item.Image.Content = base64.StdEncoding.EncodeToString(image)
	item.Features = []visionFeature{{Type: "TEXT_DETECTION"}}
	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{item}})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("x-goog-api-key", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Vision API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Vision API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding Vision response: %w", err)
	}
	if len(out.Responses) == 0 {
		return "", ErrNoText
	}
	if e := out.Responses[0].Error; e != nil && e.Message != "" {
		return "", fmt.Errorf("Vision API error: %s", e.Message)
	}
	text := out.Responses[0].FullTextAnnotation.Text
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
