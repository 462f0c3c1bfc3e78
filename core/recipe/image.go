package recipe

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// ImageSource is either a file path or an inline base64 payload.
type ImageSource struct {
	Path   string
	Base64 string
}

// ImagePath returns a source referring to a file.
func ImagePath(path string) ImageSource {
	return ImageSource{Path: path}
}

// ImageBase64 returns a source carrying inline data.
func ImageBase64(data string) ImageSource {
	return ImageSource{Base64: data}
}

// Label identifies the image in source metadata.
func (s ImageSource) Label() string {
	if s.Path != "" {
		return s.Path
	}
	return "base64-image"
}

// Bytes loads the raw image data.
func (s ImageSource) Bytes() ([]byte, error) {
	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("reading image %s: %w", s.Path, err)
		}
		return data, nil
	}
	payload := strings.TrimSpace(s.Base64)
	if payload == "" {
		return nil, fmt.Errorf("image source is empty")
	}
	if _, after, ok := strings.Cut(payload, ";base64,"); ok {
		payload = after
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 image: %w", err)
	}
	return data, nil
}
