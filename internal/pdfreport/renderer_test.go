package pdfreport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"medsummary/pkg/models"
)

func plainText(t *testing.T, data []byte) string {
	t.Helper()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("generated PDF does not parse: %v", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		text, err := r.Page(i).GetPlainText(nil)
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		b.WriteString(text)
	}
	return b.String()
}

func TestRender(t *testing.T) {
	r, err := NewRenderer("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := &models.ReportSummary{
		KeyFindings: "Hemoglobin is low.",
		Abnormalities: []models.Abnormality{
			{Test: "Hemoglobin", Result: "10.5 g/dL", NormalRange: "13-17 g/dL", Abnormality: "Below range"},
		},
		RecommendedSteps: "Repeat the test.",
		HealthAdvice:     "Eat leafy greens.",
	}
	data, err := r.Render(summary, "English")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:16])
	}

	text := plainText(t, data)
	for _, want := range []string{"Medical Report Analysis", "Hemoglobin", "Normal Range", "Health Advice"} {
		if !strings.Contains(text, want) {
			t.Errorf("PDF text missing %q", want)
		}
	}
}

func TestRenderWithoutAbnormalities(t *testing.T) {
	r, _ := NewRenderer("")

	data, err := r.Render(&models.ReportSummary{KeyFindings: "All values normal.", Abnormalities: []models.Abnormality{}}, "English")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := plainText(t, data)
	if !strings.Contains(text, "Abnormalities") {
		t.Error("abnormalities header should always be present")
	}
	if !strings.Contains(text, "No abnormalities reported.") {
		t.Error("missing empty-list notice")
	}
}

func TestRenderLongSummarySpansPages(t *testing.T) {
	r, _ := NewRenderer("")

	var abnormalities []models.Abnormality
	for i := 0; i < 40; i++ {
		abnormalities = append(abnormalities, models.Abnormality{Test: "Marker", Result: "High", NormalRange: "0-1", Abnormality: "Elevated"})
	}
	data, err := r.Render(&models.ReportSummary{KeyFindings: "Many findings.", Abnormalities: abnormalities}, "English")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.NumPage() < 2 {
		t.Errorf("NumPage = %d, want at least 2", reader.NumPage())
	}
}

func TestNewRendererMissingFonts(t *testing.T) {
	if _, err := NewRenderer(t.TempDir()); err == nil {
		t.Fatal("expected error for a font directory without fonts")
	}
}

func TestRenderNilSummary(t *testing.T) {
	r, _ := NewRenderer("")
	if _, err := r.Render(nil, "English"); err == nil {
		t.Fatal("expected error for nil summary")
	}
}
