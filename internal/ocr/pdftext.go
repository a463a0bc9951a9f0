package ocr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadPDFText returns the embedded text layer of a PDF, one page after another.
// Scanned PDFs yield ErrEmptyDocument so callers can fall back to recognition.
func ReadPDFText(content []byte) (text string, pages int, err error) {
	const op = "ReadPDFText"

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = NewOCRError(op, ErrInvalidPDF, fmt.Sprint(r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, NewOCRError(op, ErrInvalidPDF, err.Error())
	}

	pages = r.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", pages, NewOCRError(op, ErrEmptyDocument, fmt.Sprintf("%d pages without a text layer", pages))
	}
	return b.String(), pages, nil
}
