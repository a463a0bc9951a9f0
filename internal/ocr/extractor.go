package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"medsummary/internal/logger"
	"medsummary/pkg/models"
)

// Extractor produces a RawExtraction from an uploaded document.
type Extractor struct {
	service OCRService
	log     zerolog.Logger
}

// NewExtractor wraps a recognition backend.
func NewExtractor(service OCRService) *Extractor {
	return &Extractor{
		service: service,
		log:     logger.WithComponent("ocr-extractor"),
	}
}

// Extract reads the PDF text layer when there is one and runs recognition
// otherwise. Missing reference-range fragments never cause an error; only a
// failed recognition does.
func (e *Extractor) Extract(ctx context.Context, content []byte) (*models.RawExtraction, error) {
	const op = "Extract"

	if len(content) == 0 {
		return nil, NewOCRError(op, ErrUnsupportedFormat, "empty document")
	}
	if len(content) > MaxFileSizeBytes {
		return nil, NewOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	if IsPDF(content) {
		text, pages, err := ReadPDFText(content)
		if err == nil {
			e.log.Debug().Int("pages", pages).Msg("Using PDF text layer")
			return Extract(text), nil
		}
		e.log.Debug().Err(err).Msg("No usable PDF text layer, running OCR")
	}

	result, err := e.service.ProcessDocumentWithMetadata(ctx, bytes.NewReader(content))
	if err != nil {
		if errors.Is(err, ErrOCRFailed) {
			return nil, err
		}
		// Everything a backend reports is a recognition failure to callers.
		return nil, NewOCRError(op, fmt.Errorf("%w: %w", ErrOCRFailed, err), "")
	}

	extraction := Extract(result.Text)
	e.log.Info().
		Str("source", result.Source).
		Int("text_length", len(extraction.RawText)).
		Int("readings", len(extraction.ParsedResults)).
		Dur("duration", result.ProcessingDuration).
		Msg("Text extracted")

	return extraction, nil
}
