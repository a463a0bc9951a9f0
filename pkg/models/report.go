package models

import "strings"

// TestReading is one "<name>: <value> <unit> (Reference Range: <min> to <max> <unit>)"
// fragment found in recognized report text.
type TestReading struct {
	Test  string         `json:"test"`
	Value string         `json:"value"`
	Unit  string         `json:"unit"`
	Range ReferenceRange `json:"range"`
}

// ReferenceRange is the normal interval printed next to a reading.
type ReferenceRange struct {
	Min  string `json:"min"`
	Max  string `json:"max"`
	Unit string `json:"unit"`
}

// RawExtraction is the cleaned OCR output handed to the summarizer.
type RawExtraction struct {
	RawText       string        `json:"rawText"`
	ParsedResults []TestReading `json:"parsedResults"`
}

// ReportSummary is the canonical structured summary of a medical report.
type ReportSummary struct {
	KeyFindings      string        `json:"keyFindings"`
	Abnormalities    []Abnormality `json:"abnormalities"`
	RecommendedSteps string        `json:"recommendedSteps"`
	HealthAdvice     string        `json:"healthAdvice"`
}

// Abnormality describes a single out-of-range result.
type Abnormality struct {
	Test        string `json:"test"`
	Result      string `json:"result"`
	NormalRange string `json:"normalRange"`
	Abnormality string `json:"abnormality"`
}

// IsEmpty reports whether the summary carries no usable content.
func (s ReportSummary) IsEmpty() bool {
	return strings.TrimSpace(s.KeyFindings) == "" &&
		strings.TrimSpace(s.RecommendedSteps) == "" &&
		strings.TrimSpace(s.HealthAdvice) == "" &&
		len(s.Abnormalities) == 0
}

// ChatMessage is one turn of a conversation about a summary.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}
