package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer renders the recipe card as a PDF document.
// Images are not rendered.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render lays out the card on A4 pages.
func (r *PDFRenderer) Render(imp *core.Import) ([]byte, error) {
	c := newCard(imp)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(c.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, tr(c.Title), "", "L", false)
	pdf.Ln(2)

	if c.Source != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("Source: "+c.Source), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	if len(c.Metadata) > 0 {
		pdf.SetFillColor(245, 245, 245)
		for _, kv := range c.Metadata {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(40, 6, tr(label(kv[0])), "", 0, "L", true, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 6, tr(kv[1]), "", "L", true)
		}
	}

	renderList(pdf, tr, "Ingredients", c.Ingredients)
	renderList(pdf, tr, "Cookware", c.Cookware)

	if len(c.Steps) > 0 {
		renderHeading(pdf, tr, "Steps")
		for i, step := range c.Steps {
			pdf.SetFont("Helvetica", "", 10)
			if c.Numbered {
				step = strconv.Itoa(i+1) + ". " + step
			}
			pdf.MultiCell(0, 5, tr(step), "", "L", false)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func renderHeading(pdf *gofpdf.Fpdf, tr func(string) string, text string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(text), "", "L", false)
	pdf.Ln(1)
}

func renderList(pdf *gofpdf.Fpdf, tr func(string) string, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	renderHeading(pdf, tr, heading)
	pdf.SetFont("Helvetica", "", 10)
	for _, it := range items {
		pdf.MultiCell(0, 5, tr("• "+it), "", "L", false)
	}
}
