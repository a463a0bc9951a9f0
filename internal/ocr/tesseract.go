package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medsummary/internal/logger"
)

// commandRunner executes an external program and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "OMP_THREAD_LIMIT=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// TesseractOCRService implements OCRService with the tesseract command line tool.
type TesseractOCRService struct {
	bin  string
	lang string
	run  commandRunner
	log  zerolog.Logger
}

// NewTesseractOCRService resolves bin on PATH. lang defaults to "eng".
func NewTesseractOCRService(bin, lang string) (*TesseractOCRService, error) {
	const op = "NewTesseractOCRService"

	if bin == "" {
		bin = "tesseract"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, NewOCRError(op, ErrMissingEngine, bin)
	}
	return newTesseractOCRService(path, lang, execRunner), nil
}

func newTesseractOCRService(bin, lang string, run commandRunner) *TesseractOCRService {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractOCRService{
		bin:  bin,
		lang: lang,
		run:  run,
		log:  logger.WithComponent("ocr-tesseract"),
	}
}

// ProcessDocument extracts text from an image.
func (t *TesseractOCRService) ProcessDocument(ctx context.Context, data io.Reader) (string, error) {
	result, err := t.ProcessDocumentWithMetadata(ctx, data)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata writes the image to a temporary file and runs
// tesseract on it. PDFs without a text layer are not supported by this backend.
func (t *TesseractOCRService) ProcessDocumentWithMetadata(ctx context.Context, data io.Reader) (*OCRResult, error) {
	const op = "ProcessDocumentWithMetadata"
	startTime := time.Now()

	content, err := io.ReadAll(data)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}
	if len(content) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}
	if IsPDF(content) {
		return nil, NewOCRError(op, ErrUnsupportedFormat, "tesseract cannot read PDF files, use the vision or documentai provider")
	}

	tmp, err := os.CreateTemp("", "report-*.img")
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, WrapOCRError(op, err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		return nil, WrapOCRError(op, err, "failed to write temp file")
	}

	out, err := t.run(ctx, t.bin, tmp.Name(), "stdout", "-l", t.lang)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, WrapOCRError(op, ctx.Err(), "tesseract interrupted")
		}
		return nil, NewOCRError(op, ErrOCRFailed, err.Error())
	}

	result := &OCRResult{
		Text:        string(out),
		PageCount:   1,
		Source:      "tesseract",
		ProcessedAt: time.Now(),
	}
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	t.log.Debug().
		Int("text_length", len(result.Text)).
		Dur("duration", result.ProcessingDuration).
		Msg("Tesseract finished")

	return result, nil
}
