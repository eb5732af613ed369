// Package extract pulls plain text out of uploaded statement documents.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromPDF extracts the text of every page in the given PDF, in page order,
// joined with newlines. A document with no extractable text is an error:
// downstream parsing has nothing to work with (scanned statements need OCR,
// which we do not do).
func FromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract: page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	out := strings.Join(pages, "\n")
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("extract: no extractable text in document")
	}
	return out, nil
}

// FromText accepts raw statement text as-is. Used by the local one-shot
// command when the input is already plain text rather than a PDF.
func FromText(data []byte) (string, error) {
	s := string(data)
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("extract: no extractable text in document")
	}
	return s, nil
}
