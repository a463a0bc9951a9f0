package ocr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"medsummary/internal/logger"
)

// DocumentAIConfig identifies the OCR processor to call.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us" or "eu"
	ProcessorID string
	Timeout     time.Duration
}

// ProcessorName is the fully qualified processor resource name.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIOCRService implements OCRService with a Document AI OCR processor.
type DocumentAIOCRService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIOCRService creates a client against the regional Document AI endpoint.
func NewDocumentAIOCRService(ctx context.Context, config DocumentAIConfig) (*DocumentAIOCRService, error) {
	const op = "NewDocumentAIOCRService"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, NewOCRError(op, ErrOCRFailed, "project and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	clientOptions := googleCredentialOptions()
	hasCredentials := len(clientOptions) > 0
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if !hasCredentials {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIOCRService{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-documentai"),
	}, nil
}

// ProcessDocument extracts text from an image or PDF.
func (d *DocumentAIOCRService) ProcessDocument(ctx context.Context, data io.Reader) (string, error) {
	result, err := d.ProcessDocumentWithMetadata(ctx, data)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata sends the raw document to the processor.
func (d *DocumentAIOCRService) ProcessDocumentWithMetadata(ctx context.Context, data io.Reader) (*OCRResult, error) {
	const op = "ProcessDocumentWithMetadata"
	startTime := time.Now()

	content, err := io.ReadAll(data)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}
	if len(content) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: DetectMimeType(content),
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, d.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, NewOCRError(op, ErrOCRFailed, "no document in response")
	}

	result := &OCRResult{
		Text:      resp.Document.Text,
		PageCount: len(resp.Document.Pages),
		Source:    "documentai",
	}
	var confidenceSum float32
	for _, page := range resp.Document.Pages {
		if page.Layout != nil {
			confidenceSum += page.Layout.Confidence
		}
	}
	if result.PageCount > 0 {
		result.Confidence = confidenceSum / float32(result.PageCount)
	}
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	d.log.Debug().
		Int("page_count", result.PageCount).
		Dur("duration", result.ProcessingDuration).
		Msg("Document AI processing completed")

	return result, nil
}

func (d *DocumentAIOCRService) handleProcessingError(op string, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewOCRError(op, ErrUnsupportedFormat, "document format not supported or corrupted")
	case strings.Contains(errStr, "NOT_FOUND"):
		return NewOCRError(op, ErrOCRFailed, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	default:
		return NewOCRError(op, ErrOCRFailed, errStr)
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAIOCRService) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
