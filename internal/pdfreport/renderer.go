// Package pdfreport renders a report summary as a printable PDF.
package pdfreport

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"medsummary/pkg/models"
)

const (
	Title      = "Medical Report Analysis"
	Disclaimer = "This summary was generated automatically and is not a medical diagnosis. " +
		"Always consult a qualified healthcare professional about your results."
	noAbnormalities = "No abnormalities reported."

	regularFontFile = "NotoSans-Regular.ttf"
	boldFontFile    = "NotoSans-Bold.ttf"
	unicodeFamily   = "NotoSans"
	coreFamily      = "Helvetica"

	lineHeight = 6.0
)

// Renderer renders summaries with either embedded UTF-8 fonts or the core Helvetica font.
type Renderer struct {
	regular []byte
	bold    []byte
}

// NewRenderer loads NotoSans-Regular.ttf and NotoSans-Bold.ttf from fontDir.
// An empty fontDir selects the core font, which only covers Latin-1 text.
// Missing or unreadable fonts are reported here, not at render time.
func NewRenderer(fontDir string) (*Renderer, error) {
	if fontDir == "" {
		return &Renderer{}, nil
	}

	regular, err := os.ReadFile(filepath.Join(fontDir, regularFontFile))
	if err != nil {
		return nil, fmt.Errorf("pdfreport: load regular font: %w", err)
	}
	bold, err := os.ReadFile(filepath.Join(fontDir, boldFontFile))
	if err != nil {
		return nil, fmt.Errorf("pdfreport: load bold font: %w", err)
	}

	r := &Renderer{regular: regular, bold: bold}

	// Parse the fonts once so broken files fail at startup.
	probe := r.newDocument()
	if probe.Err() {
		return nil, fmt.Errorf("pdfreport: parse fonts: %w", probe.Error())
	}
	return r, nil
}

func (r *Renderer) unicode() bool { return r.regular != nil }

func (r *Renderer) newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	if r.unicode() {
		pdf.AddUTF8FontFromBytes(unicodeFamily, "", r.regular)
		pdf.AddUTF8FontFromBytes(unicodeFamily, "B", r.bold)
	}
	return pdf
}

// Render writes summary into an in-memory PDF.
func (r *Renderer) Render(summary *models.ReportSummary, language string) ([]byte, error) {
	if summary == nil {
		return nil, errors.New("pdfreport: nil summary")
	}

	pdf := r.newDocument()
	family := coreFamily
	text := func(s string) string { return s }
	if r.unicode() {
		family = unicodeFamily
	} else {
		text = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetTitle(Title, true)
	pdf.SetCreator("medsummary", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-20)
		pdf.SetFont(family, "", 7)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(0, 3.5, text(Disclaimer), "T", "C", false)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, text(Title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 11)
	pdf.CellFormat(0, lineHeight, text("Language: "+language), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section := func(heading, body string) {
		pdf.SetFont(family, "B", 13)
		pdf.CellFormat(0, 8, text(heading), "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont(family, "", 11)
		if strings.TrimSpace(body) == "" {
			body = "Not provided."
		}
		pdf.MultiCell(0, lineHeight, text(body), "", "L", false)
		pdf.Ln(4)
	}

	section("Key Findings", summary.KeyFindings)

	pdf.SetFont(family, "B", 13)
	pdf.CellFormat(0, 8, text("Abnormalities"), "B", 1, "L", false, 0, "")
	pdf.Ln(2)
	if len(summary.Abnormalities) == 0 {
		pdf.SetFont(family, "", 11)
		pdf.MultiCell(0, lineHeight, text(noAbnormalities), "", "L", false)
	}
	for i, a := range summary.Abnormalities {
		pdf.SetFont(family, "B", 11)
		pdf.MultiCell(0, lineHeight, text(fmt.Sprintf("%d. %s", i+1, a.Test)), "", "L", false)
		labeled := func(label, value string) {
			pdf.SetFont(family, "B", 10)
			pdf.CellFormat(32, lineHeight, text(label+":"), "", 0, "L", false, 0, "")
			pdf.SetFont(family, "", 10)
			pdf.MultiCell(0, lineHeight, text(value), "", "L", false)
		}
		labeled("Result", a.Result)
		labeled("Normal Range", a.NormalRange)
		labeled("Finding", a.Abnormality)
		pdf.Ln(2)
	}
	pdf.Ln(2)

	section("Recommended Steps", summary.RecommendedSteps)
	section("Health Advice", summary.HealthAdvice)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdfreport: %w", err)
	}
	return buf.Bytes(), nil
}
