//go:build tesseract && cgo

package cmd

import (
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/ocr/tesseract"
)

func tesseractEngine(languages []string) core.OCREngine {
	return tesseract.New(languages...)
}
