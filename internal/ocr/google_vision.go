package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"medsummary/internal/logger"
)

// GoogleVisionOCRService implements OCRService using Google Cloud Vision API.
type GoogleVisionOCRService struct {
	client        *vision.ImageAnnotatorClient
	languageHints []string
	log           zerolog.Logger
}

// googleCredentialOptions resolves credentials the same way for every Google client:
// inline JSON first, then a credentials file, then application defaults.
func googleCredentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// NewGoogleVisionOCRService creates a Vision backend with credentials from the environment.
func NewGoogleVisionOCRService(ctx context.Context, languageHints ...string) (*GoogleVisionOCRService, error) {
	const op = "NewGoogleVisionOCRService"

	opts := googleCredentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return NewGoogleVisionOCRServiceWithClient(client, languageHints...), nil
}

// NewGoogleVisionOCRServiceWithClient wraps an existing Vision client.
func NewGoogleVisionOCRServiceWithClient(client *vision.ImageAnnotatorClient, languageHints ...string) *GoogleVisionOCRService {
	return &GoogleVisionOCRService{
		client:        client,
		languageHints: languageHints,
		log:           logger.WithComponent("ocr-vision"),
	}
}

// ProcessDocument extracts text from an image or PDF.
func (g *GoogleVisionOCRService) ProcessDocument(ctx context.Context, data io.Reader) (string, error) {
	result, err := g.ProcessDocumentWithMetadata(ctx, data)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata extracts text and metadata. Images go through
// BatchAnnotateImages; PDF and TIFF files through BatchAnnotateFiles.
func (g *GoogleVisionOCRService) ProcessDocumentWithMetadata(ctx context.Context, data io.Reader) (*OCRResult, error) {
	const op = "ProcessDocumentWithMetadata"
	startTime := time.Now()

	content, err := io.ReadAll(data)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}
	if len(content) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	mimeType := DetectMimeType(content)
	g.log.Debug().
		Str("mime_type", mimeType).
		Int("size", len(content)).
		Msg("Sending document to Vision API")

	var result *OCRResult
	switch mimeType {
	case MimePDF, MimeTIFF:
		result, err = g.annotateFile(ctx, content, mimeType)
	default:
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, WrapOCRError(op, ErrUnsupportedFormat, mimeType)
		}
		result, err = g.annotateImage(ctx, content)
	}
	if err != nil {
		return nil, WrapOCRError(op, err, "Vision API request failed")
	}

	result.Source = "vision"
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)
	return result, nil
}

func (g *GoogleVisionOCRService) imageContext() *visionpb.ImageContext {
	if len(g.languageHints) == 0 {
		return nil
	}
	return &visionpb.ImageContext{LanguageHints: g.languageHints}
}

func (g *GoogleVisionOCRService) annotateImage(ctx context.Context, content []byte) (*OCRResult, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: content},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: g.imageContext(),
		}},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrOCRFailed)
	}
	return collectAnnotations(resp.Responses)
}

func (g *GoogleVisionOCRService) annotateFile(ctx context.Context, content []byte, mimeType string) (*OCRResult, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig:  &visionpb.InputConfig{Content: content, MimeType: mimeType},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: g.imageContext(),
		}},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrOCRFailed)
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrOCRFailed, fileResp.Error.Message)
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, len(fileResp.Responses))
	}
	return collectAnnotations(fileResp.Responses)
}

// collectAnnotations joins per-page text and averages the page confidences.
func collectAnnotations(pages []*visionpb.AnnotateImageResponse) (*OCRResult, error) {
	var text strings.Builder
	var confidenceSum float32
	var confidenceCount int
	languages := make(map[string]struct{})

	for i, page := range pages {
		if page.Error != nil {
			return nil, fmt.Errorf("%w: page %d: %s", ErrOCRFailed, i+1, page.Error.Message)
		}
		annotation := page.FullTextAnnotation
		if annotation == nil {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(annotation.Text)

		for _, p := range annotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += p.Confidence
				confidenceCount++
			}
			if p.Property != nil {
				for _, lang := range p.Property.DetectedLanguages {
					if lang.LanguageCode != "" {
						languages[lang.LanguageCode] = struct{}{}
					}
				}
			}
		}
	}

	result := &OCRResult{
		Text:      text.String(),
		PageCount: len(pages),
	}
	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float32(confidenceCount)
	}
	for lang := range languages {
		result.LanguageCodes = append(result.LanguageCodes, lang)
	}
	sort.Strings(result.LanguageCodes)
	return result, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
