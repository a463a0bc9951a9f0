// Package report builds summarization prompts, validates model output and
// runs the upload pipeline: OCR, summary, PDF.
package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medsummary/internal/llm"
	"medsummary/internal/logger"
	"medsummary/pkg/models"
	"medsummary/pkg/services"
)

// TextExtractor produces cleaned text from an uploaded document.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (*models.RawExtraction, error)
}

// Renderer renders a summary as a PDF document.
type Renderer interface {
	Render(summary *models.ReportSummary, language string) ([]byte, error)
}

// Config holds the sampling parameters for both model calls.
type Config struct {
	Summary llm.GenerationConfig
	Chat    llm.GenerationConfig
}

// DefaultConfig mirrors the defaults of config.Load.
func DefaultConfig() Config {
	return Config{
		Summary: llm.GenerationConfig{MaxTokens: 2048, Temperature: 0.2, TopP: 0.8, TopK: 40},
		Chat:    llm.GenerationConfig{MaxTokens: 1000, Temperature: 0.7, TopP: 0.8, TopK: 40},
	}
}

// Service implements services.ReportSummarizer and services.ReportChat.
type Service struct {
	extractor TextExtractor
	provider  llm.Provider
	renderer  Renderer
	config    Config
	log       zerolog.Logger
}

var (
	_ services.ReportSummarizer = (*Service)(nil)
	_ services.ReportChat       = (*Service)(nil)
)

// NewService wires the pipeline from explicit dependencies.
func NewService(extractor TextExtractor, provider llm.Provider, renderer Renderer, config Config) *Service {
	return &Service{
		extractor: extractor,
		provider:  provider,
		renderer:  renderer,
		config:    config,
		log:       logger.WithComponent("report"),
	}
}

// Summarize runs the steps sequentially; the first failure ends the request.
func (s *Service) Summarize(ctx context.Context, content []byte, language string) (*services.SummaryResult, error) {
	const op = "Summarize"
	log := s.logger(ctx)
	language = DisplayLanguage(language)
	startTime := time.Now()

	extraction, err := s.extractor.Extract(ctx, content)
	if err != nil {
		log.Error().Err(err).Msg("Text extraction failed")
		return nil, NewReportError(op, err, "text extraction")
	}

	summary, err := s.summarizeText(ctx, extraction.RawText, language)
	if err != nil {
		return nil, err
	}

	pdfData, err := s.renderer.Render(summary, language)
	if err != nil {
		log.Error().Err(err).Msg("PDF rendering failed")
		return nil, NewReportError(op, errors.Join(ErrPDFRender, err), "")
	}

	log.Info().
		Str("language", language).
		Str("provider", s.provider.Name()).
		Int("text_length", len(extraction.RawText)).
		Int("readings", len(extraction.ParsedResults)).
		Int("abnormalities", len(summary.Abnormalities)).
		Int("pdf_bytes", len(pdfData)).
		Dur("duration", time.Since(startTime)).
		Msg("Report summarized")

	return &services.SummaryResult{
		Summary:    *summary,
		PDF:        pdfData,
		Extraction: extraction,
		Language:   language,
	}, nil
}

// SummarizeText prompts the model with already extracted text.
func (s *Service) SummarizeText(ctx context.Context, rawText, language string) (*models.ReportSummary, error) {
	return s.summarizeText(ctx, rawText, DisplayLanguage(language))
}

func (s *Service) summarizeText(ctx context.Context, rawText, language string) (*models.ReportSummary, error) {
	const op = "SummarizeText"
	log := s.logger(ctx)

	response, err := s.provider.Generate(ctx, BuildSummaryPrompt(rawText, language), s.config.Summary)
	if err != nil {
		log.Error().Err(err).Str("provider", s.provider.Name()).Msg("Model call failed")
		return nil, NewReportError(op, errors.Join(ErrSummarizationFailed, err), "")
	}

	summary, err := ParseSummary(response)
	if err != nil {
		// The raw text is logged so malformed responses can be inspected later.
		log.Warn().
			Err(err).
			Str("raw_response", response).
			Msg("Model response rejected")
		return nil, err
	}
	return summary, nil
}

// Chat answers question using the summary as context.
func (s *Service) Chat(ctx context.Context, summary models.ReportSummary, history []models.ChatMessage, question string) (string, error) {
	const op = "Chat"

	question = strings.TrimSpace(question)
	if question == "" {
		return "", NewReportError(op, ErrEmptyQuestion, "")
	}

	turns := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Message{Role: role, Content: m.Content})
	}

	prompt := BuildChatPrompt(NormalizeSummary(summary), question)
	reply, err := s.provider.Chat(ctx, turns, prompt, s.config.Chat)
	if err != nil {
		s.logger(ctx).Error().Err(err).Msg("Chat call failed")
		return "", NewReportError(op, errors.Join(ErrSummarizationFailed, err), "")
	}
	return strings.TrimSpace(reply), nil
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}
