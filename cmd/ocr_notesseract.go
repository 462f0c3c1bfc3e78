//go:build !(tesseract && cgo)

package cmd

import "github.com/gaurav-prasanna/recipepipe/core"

// tesseractEngine is unavailable in builds without the tesseract tag; image
// imports then fail with an OCR error instead of linking libtesseract.
func tesseractEngine([]string) core.OCREngine {
	return nil
}
