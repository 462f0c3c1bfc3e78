//go:build !(tesseract && cgo)

package cmd

import (
	"testing"
	"time"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/stretchr/testify/assert"
)

func TestOCREngineTesseractNotBuilt(t *testing.T) {
	c := config.Default()
	c.OCR.Engine = config.OCRTesseract
	assert.Nil(t, ocrEngine(c, time.Second))

	c.OCR.Engine = config.OCRVision
	c.OCR.Vision.APIKey = "k"
	engine := ocrEngine(c, time.Second)
	if assert.NotNil(t, engine) {
		assert.Equal(t, "vision", engine.Name())
	}
}
