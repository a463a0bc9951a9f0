package report

import (
	"encoding/json"
	"errors"
	"strings"

	"medsummary/pkg/models"
)

const fence = "```"

const fenceInfoChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// StripCodeFence removes a leading ```json (or bare ```) marker, a trailing ```
// marker and the surrounding whitespace.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, fence) {
		s = strings.TrimPrefix(s, fence)
		s = strings.TrimLeft(s, fenceInfoChars)
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, fence) {
		s = strings.TrimSpace(strings.TrimSuffix(s, fence))
	}
	return s
}

// ParseSummary converts a model response into a canonical ReportSummary.
//
// Accepted shapes, tried in order:
//
//	{"summary": "<json object>"}
//	{"summary": {"keyFindings": "<json object>"}}
//	{"summary": {...fields...}}
//	{...fields...}
//
// A "summary" key that does not hold the fields is ignored when the
// top-level object does.
// Anything that is not a JSON object after fence stripping fails with
// ErrParseFailure; no repair is attempted. A record with no content fails
// with ErrEmptySummary.
func ParseSummary(raw string) (*models.ReportSummary, error) {
	const op = "ParseSummary"

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, NewReportError(op, ErrParseFailure, err.Error())
	}

	record, err := selectRecord(obj)
	if err != nil {
		return nil, NewReportError(op, ErrParseFailure, err.Error())
	}

	summary := coerceSummary(record)
	if summary.IsEmpty() {
		return nil, NewReportError(op, ErrEmptySummary, "all fields blank")
	}
	return &summary, nil
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("response is not a JSON object")
	}
	return obj, nil
}

func hasSummaryFields(obj map[string]any) bool {
	for _, key := range []string{"keyFindings", "abnormalities", "recommendedSteps", "healthAdvice"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

// selectRecord picks the object holding the summary fields. A "summary" key
// that does not lead to summary fields falls back to the top-level object
// when that one carries them.
func selectRecord(obj map[string]any) (map[string]any, error) {
	switch inner := obj["summary"].(type) {
	case string:
		nested, err := decodeObject(inner)
		if err == nil {
			return nested, nil
		}
		if hasSummaryFields(obj) {
			return obj, nil
		}
		return nil, errors.New("summary field is not a JSON object: " + err.Error())
	case map[string]any:
		if encoded, ok := inner["keyFindings"].(string); ok {
			if nested, err := decodeObject(encoded); err == nil && hasSummaryFields(nested) {
				return nested, nil
			}
		}
		if !hasSummaryFields(inner) && hasSummaryFields(obj) {
			return obj, nil
		}
		return inner, nil
	}
	return obj, nil
}

func coerceSummary(m map[string]any) models.ReportSummary {
	summary := models.ReportSummary{
		KeyFindings:      getString(m, "keyFindings"),
		RecommendedSteps: getString(m, "recommendedSteps"),
		HealthAdvice:     getString(m, "healthAdvice"),
		Abnormalities:    []models.Abnormality{},
	}

	items, _ := m["abnormalities"].([]any)
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			// A bare string is taken as the finding itself.
			text, _ := item.(string)
			summary.Abnormalities = append(summary.Abnormalities, models.Abnormality{
				Abnormality: strings.TrimSpace(text),
			})
			continue
		}
		summary.Abnormalities = append(summary.Abnormalities, models.Abnormality{
			Test:        getString(entry, "test"),
			Result:      getString(entry, "result"),
			NormalRange: getString(entry, "normalRange"),
			Abnormality: getString(entry, "abnormality"),
		})
	}
	return summary
}

// getString returns the trimmed string at key, or "" for missing and non-string values.
func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// NormalizeSummary returns s with trimmed fields and a non-nil abnormality list.
// Applying it to its own output changes nothing.
func NormalizeSummary(s models.ReportSummary) models.ReportSummary {
	out := models.ReportSummary{
		KeyFindings:      strings.TrimSpace(s.KeyFindings),
		RecommendedSteps: strings.TrimSpace(s.RecommendedSteps),
		HealthAdvice:     strings.TrimSpace(s.HealthAdvice),
		Abnormalities:    make([]models.Abnormality, 0, len(s.Abnormalities)),
	}
	for _, a := range s.Abnormalities {
		out.Abnormalities = append(out.Abnormalities, models.Abnormality{
			Test:        strings.TrimSpace(a.Test),
			Result:      strings.TrimSpace(a.Result),
			NormalRange: strings.TrimSpace(a.NormalRange),
			Abnormality: strings.TrimSpace(a.Abnormality),
		})
	}
	return out
}
