package report

import (
	"fmt"
	"strings"

	"medsummary/pkg/models"
)

const DefaultLanguage = "English"

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"kn": "Kannada",
	"bn": "Bengali",
	"mr": "Marathi",
	"gu": "Gujarati",
}

// DisplayLanguage maps a blank value or a short code ("en", "hi-IN") to the
// language name used in prompts and PDFs. Other values pass through trimmed.
func DisplayLanguage(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return DefaultLanguage
	}
	code := strings.ToLower(language)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return language
}

const summarySchema = `{
  "keyFindings": "Summary of abnormalities or notable results.",
  "abnormalities": [
    {
      "test": "Name of the test",
      "result": "Result of the test",
      "normalRange": "Normal range for the test",
      "abnormality": "Explanation of why the result is abnormal"
    }
  ],
  "recommendedSteps": "Suggestions for next steps or treatment.",
  "healthAdvice": "General health advice or follow-ups."
}`

// BuildSummaryPrompt returns the summarization instruction for rawText.
// The output depends only on its arguments.
func BuildSummaryPrompt(rawText, language string) string {
	language = DisplayLanguage(language)

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following medical report in %s. Ensure the summary includes:\n", language)
	b.WriteString("- Key findings,\n")
	b.WriteString("- Abnormalities,\n")
	b.WriteString("- Recommended next steps or treatments,\n")
	b.WriteString("- Relevant health advice or follow-up actions.\n\n")
	b.WriteString("Medical Report:\n")
	b.WriteString(rawText)
	b.WriteString("\n\n")
	b.WriteString("Respond with JSON only, no commentary, in exactly this structure:\n")
	b.WriteString(summarySchema)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Write every string value in %s. Use an empty array when there are no abnormalities.\n", language)
	return b.String()
}

// BuildChatPrompt embeds the summary as context for a follow-up question.
func BuildChatPrompt(summary models.ReportSummary, question string) string {
	var b strings.Builder
	b.WriteString("You are a helpful medical assistant. You are discussing a medical report with the following summary:\n\n")
	fmt.Fprintf(&b, "Key Findings: %s\n\n", summary.KeyFindings)

	b.WriteString("Abnormalities:\n")
	if len(summary.Abnormalities) == 0 {
		b.WriteString("None reported\n")
	}
	for _, a := range summary.Abnormalities {
		fmt.Fprintf(&b, "- %s: %s (Normal range: %s) - %s\n", a.Test, a.Result, a.NormalRange, a.Abnormality)
	}

	fmt.Fprintf(&b, "\nRecommended Steps: %s\n\n", summary.RecommendedSteps)
	fmt.Fprintf(&b, "Health Advice: %s\n\n", summary.HealthAdvice)
	fmt.Fprintf(&b, "User Question: %s\n\n", question)
	b.WriteString("Please provide a clear, accurate, and helpful response based on the medical report information above. ")
	b.WriteString("If the question cannot be answered using the report information, please say so. ")
	b.WriteString("Always maintain a professional tone and explain medical terms in simple language.")
	return b.String()
}
