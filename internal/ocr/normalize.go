package ocr

import (
	"regexp"
	"strings"
	"unicode"

	"medsummary/pkg/models"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\v]+`)

	// Hemoglobin: 10.5 g/dL (Reference Range: 13 to 17 g/dL)
	readingPattern = regexp.MustCompile(
		`([A-Za-z][A-Za-z0-9 ,/%-]*?)\s*:\s*` + // test name
			`([<>]?\d+(?:\.\d+)?)\s*` + // value
			`([^\s(]*)\s*` + // unit
			`\(\s*Reference Range\s*:\s*` +
			`(\d+(?:\.\d+)?)\s*(?:to|-)\s*(\d+(?:\.\d+)?)\s*` + // min, max
			`([^)]*?)\s*\)`, // range unit
	)
)

// NormalizeText drops non-ASCII bytes, collapses every whitespace run to a
// single space and trims the result.
func NormalizeText(raw string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(ascii, " "))
}

// ParseReadings collects every reference-range fragment in normalized text.
// The result is never nil.
func ParseReadings(text string) []models.TestReading {
	readings := []models.TestReading{}
	for _, m := range readingPattern.FindAllStringSubmatch(text, -1) {
		readings = append(readings, models.TestReading{
			Test:  strings.TrimSpace(m[1]),
			Value: m[2],
			Unit:  m[3],
			Range: models.ReferenceRange{
				Min:  m[4],
				Max:  m[5],
				Unit: strings.TrimSpace(m[6]),
			},
		})
	}
	return readings
}

// Extract normalizes recognized text into a RawExtraction.
func Extract(recognized string) *models.RawExtraction {
	text := NormalizeText(recognized)
	return &models.RawExtraction{
		RawText:       text,
		ParsedResults: ParseReadings(text),
	}
}
