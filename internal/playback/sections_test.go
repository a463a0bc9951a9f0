package playback

import (
	"strings"
	"testing"

	"medsummary/pkg/models"
)

func TestBuildSections(t *testing.T) {
	summary := models.ReportSummary{
		KeyFindings: "Hemoglobin is below the reference range.",
		Abnormalities: []models.Abnormality{
			{Test: "Hemoglobin", Result: "10.5 g/dL", NormalRange: "13-17 g/dL", Abnormality: "Low"},
			{Test: "Ferritin", Result: "8 ng/mL", NormalRange: "30-400 ng/mL", Abnormality: "Low"},
		},
		RecommendedSteps: "Repeat the blood count in four weeks.",
		HealthAdvice:     "   ",
	}

	sections := BuildSections(summary)
	if len(sections) != 3 {
		t.Fatalf("got %d sections: %+v", len(sections), sections)
	}

	labels := []string{"Key Findings", "Abnormalities", "Recommended Steps"}
	for i, s := range sections {
		if s.Label != labels[i] {
			t.Errorf("section %d label = %q, want %q", i, s.Label, labels[i])
		}
		if !strings.HasPrefix(s.Text, s.Label+". ") {
			t.Errorf("section %d text %q lacks its heading", i, s.Text)
		}
	}

	want := "Abnormalities. Hemoglobin. Result: 10.5 g/dL. Normal Range: 13-17 g/dL. Finding: Low. " +
		"Ferritin. Result: 8 ng/mL. Normal Range: 30-400 ng/mL. Finding: Low."
	if sections[1].Text != want {
		t.Errorf("abnormalities text =\n%q\nwant\n%q", sections[1].Text, want)
	}
}

func TestBuildSectionsEmptySummary(t *testing.T) {
	if got := BuildSections(models.ReportSummary{}); len(got) != 0 {
		t.Errorf("expected no sections, got %+v", got)
	}
}
