// Package ocr turns uploaded report images and PDFs into cleaned text.
//
// Three recognition backends implement OCRService:
//   - TesseractOCRService runs the local tesseract binary (default)
//   - GoogleVisionOCRService calls Cloud Vision document text detection
//   - DocumentAIOCRService sends the document to a Document AI OCR processor
//
// Extractor sits in front of a backend. It reads the text layer of PDFs
// directly when one exists, falls back to recognition otherwise, and
// normalizes the result into a models.RawExtraction.
//
// Environment for the Google backends:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID (Document AI only)
package ocr

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	// MaxFileSizeBytes is the largest document accepted for synchronous recognition (20MB).
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the page limit for synchronous PDF recognition.
	MaxPagesSync = 5
)

// OCRService defines the interface for OCR text extraction services.
type OCRService interface {
	// ProcessDocument returns the recognized text of an image or PDF.
	ProcessDocument(ctx context.Context, data io.Reader) (string, error)

	// ProcessDocumentWithMetadata returns recognized text plus page count,
	// confidence and timing information.
	ProcessDocumentWithMetadata(ctx context.Context, data io.Reader) (*OCRResult, error)
}

// OCRResult contains the results of OCR processing with metadata.
type OCRResult struct {
	// Text is the recognized text, pages concatenated in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages or images processed.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence (0.0 to 1.0) when the backend reports one.
	Confidence float32 `json:"confidence"`

	// Source names the backend or "pdf-text" when the PDF text layer was used.
	Source string `json:"source"`

	ProcessedAt        time.Time     `json:"processed_at"`
	LanguageCodes      []string      `json:"language_codes,omitempty"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Document kinds recognized by DetectMimeType.
const (
	MimePDF  = "application/pdf"
	MimeTIFF = "image/tiff"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

// DetectMimeType sniffs the document type from its leading bytes.
func DetectMimeType(data []byte) string {
	if len(data) >= 4 {
		switch string(data[:4]) {
		case "%PDF":
			return MimePDF
		case "II*\x00", "MM\x00*":
			return MimeTIFF
		}
	}
	return http.DetectContentType(data)
}

// IsPDF reports whether data starts with a PDF header.
func IsPDF(data []byte) bool {
	return DetectMimeType(data) == MimePDF
}
