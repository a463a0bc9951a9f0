package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"medsummary/internal/logger"
	"medsummary/pkg/models"
	"medsummary/pkg/services"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a lab report and render the summary as PDF",
	Long: `Run the full pipeline on one report: text recognition, a language model
summary in the requested language, and a PDF rendering of the result.

Environment variables:
  LLM_PROVIDER                    - gemini (default) or openai
  GEMINI_API_KEY / OPENAI_API_KEY - API key for the selected provider
  OCR_PROVIDER                    - see "medsummary ocr --help"
  PDF_FONT_DIR                    - directory with NotoSans fonts for non-Latin text`,
	Example: `  # Summarize in English and write blood-test-summary.pdf
  medsummary summarize blood-test.jpg

  # Summarize in Hindi and print the result as JSON
  medsummary summarize blood-test.pdf -l Hindi --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringP("language", "l", "English", "Language of the summary")
	summarizeCmd.Flags().StringP("output", "o", "", "PDF output path (default: <file>-summary.pdf)")
	summarizeCmd.Flags().Bool("json", false, "Print the summary as JSON")
	summarizeCmd.Flags().Duration("timeout", 5*time.Minute, "Processing timeout")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summarize")

	language, _ := cmd.Flags().GetString("language")
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	path := args[0]

	if _, err := validateInputFile(path, log); err != nil {
		return err
	}
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	svc, closeService, err := createReportService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeService()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	result, err := svc.Summarize(ctx, content, language)
	if err != nil {
		return describeError(err, log)
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(path, filepath.Ext(path)) + "-summary.pdf"
	}
	if err := os.WriteFile(outputPath, result.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	log.Info().Str("pdf", outputPath).Int("bytes", len(result.PDF)).Msg("Summary PDF written")

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		return writeOutput(append(data, '\n'), "", log)
	}
	return writeOutput([]byte(formatSummary(result, outputPath)), "", log)
}

func formatSummary(result *services.SummaryResult, pdfPath string) string {
	var b strings.Builder
	s := result.Summary

	fmt.Fprintf(&b, "=== Summary (%s) ===\n\n", result.Language)
	writeField(&b, "Key Findings", s.KeyFindings)

	b.WriteString("Abnormalities:\n")
	if len(s.Abnormalities) == 0 {
		b.WriteString("  none reported\n")
	}
	for _, a := range s.Abnormalities {
		fmt.Fprintf(&b, "  - %s: %s (normal %s) %s\n", a.Test, a.Result, a.NormalRange, a.Abnormality)
	}
	b.WriteString("\n")

	writeField(&b, "Recommended Steps", s.RecommendedSteps)
	writeField(&b, "Health Advice", s.HealthAdvice)
	fmt.Fprintf(&b, "PDF: %s\n", pdfPath)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(b, "%s:\n  %s\n\n", label, value)
}

// loadSummaryFile reads a summary saved by "summarize --json" or a bare
// summary object.
func loadSummaryFile(path string) (models.ReportSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ReportSummary{}, fmt.Errorf("failed to read summary: %w", err)
	}

	var wrapped struct {
		Summary *models.ReportSummary `json:"summary"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Summary != nil {
		return *wrapped.Summary, nil
	}

	var summary models.ReportSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return models.ReportSummary{}, fmt.Errorf("invalid summary file %s: %w", path, err)
	}
	return summary, nil
}
