package ocr

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) ProcessDocument(ctx context.Context, data io.Reader) (string, error) {
	r, err := f.ProcessDocumentWithMetadata(ctx, data)
	if err != nil {
		return "", err
	}
	return r.Text, nil
}

func (f *fakeOCR) ProcessDocumentWithMetadata(ctx context.Context, data io.Reader) (*OCRResult, error) {
	f.calls++
	if _, err := io.ReadAll(data); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &OCRResult{Text: f.text, PageCount: 1, Source: "fake"}, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func TestExtractorUsesBackend(t *testing.T) {
	backend := &fakeOCR{text: "Hemoglobin: 10.5 g/dL\n(Reference Range: 13 to 17 g/dL)"}
	ex := NewExtractor(backend)

	got, err := ex.Extract(context.Background(), pngHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if len(got.ParsedResults) != 1 {
		t.Errorf("ParsedResults = %+v", got.ParsedResults)
	}
}

func TestExtractorWrapsFailures(t *testing.T) {
	backend := &fakeOCR{err: errors.New("engine crashed")}
	ex := NewExtractor(backend)

	_, err := ex.Extract(context.Background(), pngHeader)
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("err = %v, want ErrOCRFailed", err)
	}
	var ocrErr *OCRError
	if !errors.As(err, &ocrErr) {
		t.Errorf("err is not an *OCRError: %T", err)
	}
}

func TestExtractorEmptyTextIsNotAnError(t *testing.T) {
	ex := NewExtractor(&fakeOCR{text: ""})

	got, err := ex.Extract(context.Background(), pngHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RawText != "" || got.ParsedResults == nil {
		t.Errorf("got %+v", got)
	}
}

func TestExtractorFallsBackForBrokenPDF(t *testing.T) {
	backend := &fakeOCR{text: "Glucose: 120 mg/dL (Reference Range: 70 to 99 mg/dL)"}
	ex := NewExtractor(backend)

	got, err := ex.Extract(context.Background(), []byte("%PDF-1.4 not really a pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if !strings.HasPrefix(got.RawText, "Glucose") {
		t.Errorf("RawText = %q", got.RawText)
	}
}

func TestExtractorRejectsEmptyInput(t *testing.T) {
	ex := NewExtractor(&fakeOCR{})
	if _, err := ex.Extract(context.Background(), nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestReadPDFTextRejectsGarbage(t *testing.T) {
	if _, _, err := ReadPDFText([]byte("%PDF-garbage")); err == nil {
		t.Fatal("expected error")
	}
}

func TestTesseractRunsBinary(t *testing.T) {
	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("WBC: 7.2 10^3/uL\n"), nil
	}
	svc := newTesseractOCRService("/usr/bin/tesseract", "", run)

	result, err := svc.ProcessDocumentWithMetadata(context.Background(), strings.NewReader(string(pngHeader)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "WBC: 7.2 10^3/uL\n" || result.Source != "tesseract" {
		t.Errorf("result = %+v", result)
	}
	if len(gotArgs) != 5 || gotArgs[0] != "/usr/bin/tesseract" || gotArgs[2] != "stdout" || gotArgs[4] != "eng" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestTesseractRejectsPDF(t *testing.T) {
	svc := newTesseractOCRService("tesseract", "eng", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("binary should not run for PDFs")
		return nil, nil
	})
	_, err := svc.ProcessDocument(context.Background(), strings.NewReader("%PDF-1.4"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTesseractReportsEngineFailure(t *testing.T) {
	svc := newTesseractOCRService("tesseract", "eng", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1: read error")
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := svc.ProcessDocument(ctx, strings.NewReader(string(pngHeader)))
	if !errors.Is(err, ErrOCRFailed) {
		t.Errorf("err = %v, want ErrOCRFailed", err)
	}
}
