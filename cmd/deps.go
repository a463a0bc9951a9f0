package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"medsummary/internal/config"
	"medsummary/internal/llm"
	"medsummary/internal/ocr"
	"medsummary/internal/pdfreport"
	"medsummary/internal/playback"
	"medsummary/internal/report"
	"medsummary/internal/tts"
)

// loadConfig reads the environment once per command.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return nil, err
	}
	return cfg, nil
}

// createContextWithTimeout creates a context with timeout and signal handling.
// A zero timeout only cancels on signals.
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// validateInputFile checks that path is a readable, non-empty regular file
// within the recognition size limit.
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			log.Error().Str("file", path).Msg("File not found")
			return nil, fmt.Errorf("file not found: %s", path)
		case os.IsPermission(err):
			log.Error().Str("file", path).Msg("Permission denied accessing file")
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > ocr.MaxFileSizeBytes {
		log.Error().
			Str("file", path).
			Int64("size", info.Size()).
			Int64("max_size", ocr.MaxFileSizeBytes).
			Msg("File exceeds maximum size limit")
		return nil, fmt.Errorf("file too large (%d bytes), maximum is %d bytes", info.Size(), ocr.MaxFileSizeBytes)
	}
	return info, nil
}

// createOCRService builds the recognition backend selected by OCR_PROVIDER.
// The returned closer releases client connections and is never nil.
func createOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.OCRService, func(), error) {
	var (
		service ocr.OCRService
		err     error
	)

	switch cfg.OCRProvider {
	case "vision":
		service, err = ocr.NewGoogleVisionOCRService(ctx)
	case "documentai":
		service, err = ocr.NewDocumentAIOCRService(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
	default:
		service, err = ocr.NewTesseractOCRService(cfg.TesseractBin, cfg.TesseractLang)
	}
	if err != nil {
		log.Error().Err(err).Str("provider", cfg.OCRProvider).Msg("Failed to create OCR service")
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, nil, fmt.Errorf("Google Cloud credentials not configured, set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
		}
		return nil, nil, fmt.Errorf("failed to create OCR service: %w", err)
	}

	closer := func() {
		if c, ok := service.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close OCR client")
			}
		}
	}
	log.Debug().Str("provider", cfg.OCRProvider).Msg("OCR service created")
	return service, closer, nil
}

// createReportService wires extraction, the language model and the renderer.
func createReportService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*report.Service, func(), error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, nil, err
	}
	provider, err := llm.NewProvider(cfg.LLMProvider, llm.Options{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
	})
	if err != nil {
		return nil, nil, err
	}

	renderer, err := pdfreport.NewRenderer(cfg.PDFFontDir)
	if err != nil {
		return nil, nil, err
	}

	ocrService, closeOCR, err := createOCRService(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	svc := report.NewService(ocr.NewExtractor(ocrService), provider, renderer, report.Config{
		Summary: llm.GenerationConfig{
			MaxTokens:   cfg.SummaryMaxTokens,
			Temperature: cfg.SummaryTemperature,
			TopP:        cfg.SummaryTopP,
			TopK:        cfg.SummaryTopK,
		},
		Chat: llm.GenerationConfig{
			MaxTokens:   cfg.ChatMaxTokens,
			Temperature: cfg.ChatTemperature,
			TopP:        cfg.ChatTopP,
			TopK:        cfg.ChatTopK,
		},
	})
	log.Debug().Str("provider", provider.Name()).Msg("Report service created")
	return svc, closeOCR, nil
}

// createSynthesizer returns the Sarvam client, or a silent stub when dryRun is set.
func createSynthesizer(cfg *config.Config, dryRun bool) (tts.Synthesizer, error) {
	if dryRun {
		return &tts.StubSynthesizer{}, nil
	}
	if err := cfg.RequireTTS(); err != nil {
		return nil, err
	}
	return tts.NewSarvamSynthesizer(tts.SarvamConfig{
		APIKey:  cfg.SarvamAPIKey,
		BaseURL: cfg.SarvamBaseURL,
		Model:   cfg.TTSModel,
		Timeout: cfg.TTSTimeout,
	})
}

func playbackOptions(cfg *config.Config) playback.Options {
	return playback.Options{
		ChunkSize:        cfg.TTSChunkSize,
		CallInterval:     cfg.TTSCallInterval,
		SectionPause:     cfg.TTSSectionPause,
		RateLimitBackoff: cfg.TTSRateLimitBackoff,
	}
}

func voiceProfile(cfg *config.Config, language string) tts.VoiceProfile {
	voice := tts.DefaultVoice(language)
	voice.Speaker = cfg.TTSSpeaker
	voice.SampleRate = cfg.TTSSampleRate
	return voice
}

// describeError turns pipeline failures into short user-facing messages.
func describeError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out, try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB)")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum %d), split it into smaller files", ocr.MaxPagesSync)
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported document format: %w", err)
	case errors.Is(err, ocr.ErrMissingEngine):
		return fmt.Errorf("tesseract is not installed or TESSERACT_BIN is wrong: %w", err)
	case errors.Is(err, report.ErrParseFailure), errors.Is(err, report.ErrEmptySummary):
		return fmt.Errorf("the language model did not return a usable summary: %w", err)
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("text recognition failed: %w", err)
	case errors.Is(err, tts.ErrAuthentication):
		return fmt.Errorf("text-to-speech authentication failed, check SARVAM_API_KEY")
	default:
		return err
	}
}
