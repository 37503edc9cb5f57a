package app

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// writeArticlesPDF renders one section per article: its index and URL as a
// clickable heading, then the extracted text.
func writeArticlesPDF(urls, texts []string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate so Portuguese accents survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	for i, text := range texts {
		url := ""
		if i < len(urls) {
			url = urls[i]
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Article %d", i+1), "", 1, "L", false, 0, "")
		if url != "" {
			pdf.SetFont("Helvetica", "U", 9)
			pdf.WriteLinkString(5, tr(url), url)
			pdf.Ln(6)
		}
		pdf.SetFont("Helvetica", "", 11)
		body := strings.TrimSpace(text)
		if body == "" {
			body = "(no text)"
		}
		pdf.MultiCell(0, 5, tr(body), "", "L", false)
		pdf.Ln(5)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
