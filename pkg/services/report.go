package services

import (
	"context"

	"medsummary/pkg/models"
)

// ReportSummarizer turns an uploaded report into a summary and its PDF rendering.
type ReportSummarizer interface {
	// Summarize runs OCR, summarization and PDF rendering for one document.
	Summarize(ctx context.Context, content []byte, language string) (*SummaryResult, error)
}

// ReportChat answers follow-up questions about a summary.
type ReportChat interface {
	Chat(ctx context.Context, summary models.ReportSummary, history []models.ChatMessage, question string) (string, error)
}

// SummaryResult is the outcome of a successful Summarize call.
type SummaryResult struct {
	Summary    models.ReportSummary  `json:"summary"`
	PDF        []byte                `json:"-"`
	Extraction *models.RawExtraction `json:"extraction,omitempty"`
	Language   string                `json:"language"`
}
