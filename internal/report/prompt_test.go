package report

import (
	"strings"
	"testing"

	"medsummary/pkg/models"
)

func TestDisplayLanguage(t *testing.T) {
	tests := map[string]string{
		"":        "English",
		"  ":      "English",
		"en":      "English",
		"hi-IN":   "Hindi",
		"TA":      "Tamil",
		"Spanish": "Spanish",
		" Hindi ": "Hindi",
	}
	for in, want := range tests {
		if got := DisplayLanguage(in); got != want {
			t.Errorf("DisplayLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	raw := "Hemoglobin: 10.5 g/dL (Reference Range: 13 to 17 g/dL)"
	prompt := BuildSummaryPrompt(raw, "")

	for _, want := range []string{
		"in English",
		raw,
		`"keyFindings"`,
		`"abnormalities"`,
		`"normalRange"`,
		`"recommendedSteps"`,
		`"healthAdvice"`,
		"JSON only",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if BuildSummaryPrompt(raw, "Hindi") != BuildSummaryPrompt(raw, "hi") {
		t.Error("language aliases should produce the same prompt")
	}
	if BuildSummaryPrompt(raw, "English") != prompt {
		t.Error("prompt is not deterministic")
	}
}

func TestBuildChatPrompt(t *testing.T) {
	summary := models.ReportSummary{
		KeyFindings: "Low hemoglobin.",
		Abnormalities: []models.Abnormality{
			{Test: "Hemoglobin", Result: "10.5 g/dL", NormalRange: "13-17 g/dL", Abnormality: "Low"},
		},
	}
	prompt := BuildChatPrompt(summary, "Should I worry?")

	for _, want := range []string{
		"Key Findings: Low hemoglobin.",
		"- Hemoglobin: 10.5 g/dL (Normal range: 13-17 g/dL) - Low",
		"User Question: Should I worry?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if !strings.Contains(BuildChatPrompt(models.ReportSummary{}, "q"), "None reported") {
		t.Error("empty abnormality list should be stated")
	}
}
