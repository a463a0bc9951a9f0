package playback

import (
	"fmt"
	"strings"

	"medsummary/pkg/models"
)

// minSectionLength drops sections too short to be worth a speech call.
const minSectionLength = 10

// Section is a labeled passage narrated as one unit.
type Section struct {
	Label string
	Text  string
}

// BuildSections lays out a summary for narration: key findings,
// abnormalities, recommended steps, health advice. Sections without content
// are skipped.
func BuildSections(summary models.ReportSummary) []Section {
	var items []string
	for _, a := range summary.Abnormalities {
		items = append(items, fmt.Sprintf("%s. Result: %s. Normal Range: %s. Finding: %s.",
			a.Test, a.Result, a.NormalRange, a.Abnormality))
	}

	candidates := []struct {
		label string
		body  string
	}{
		{"Key Findings", summary.KeyFindings},
		{"Abnormalities", strings.Join(items, " ")},
		{"Recommended Steps", summary.RecommendedSteps},
		{"Health Advice", summary.HealthAdvice},
	}

	var sections []Section
	for _, c := range candidates {
		body := strings.TrimSpace(c.body)
		if body == "" {
			continue
		}
		text := c.label + ". " + body
		if len([]rune(text)) <= minSectionLength {
			continue
		}
		sections = append(sections, Section{Label: c.label, Text: text})
	}
	return sections
}
