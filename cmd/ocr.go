package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medsummary/internal/logger"
	"medsummary/internal/ocr"
	"medsummary/pkg/models"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file]",
	Short: "Extract and parse the text of a report image or PDF",
	Long: `Recognize the text of a lab report and list the readings found in it.

PDFs with a text layer are read directly; images and scanned PDFs go through
the backend selected by OCR_PROVIDER (tesseract, vision or documentai).

Environment variables:
  OCR_PROVIDER                     - tesseract (default), vision, documentai
  TESSERACT_BIN, TESSERACT_LANG    - tesseract binary and language (eng)
  GOOGLE_APPLICATION_CREDENTIALS   - service account file for vision/documentai
  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID - required for documentai`,
	Example: `  # Print the cleaned text
  medsummary ocr blood-test.jpg

  # Print the extraction with parsed readings as JSON
  medsummary ocr blood-test.pdf --json -o extraction.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput is the JSON written by --json.
type OCROutput struct {
	models.RawExtraction
	FileName           string `json:"file_name"`
	FileSize           int64  `json:"file_size"`
	ProcessingDuration string `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output the extraction as JSON")
	ocrCmd.Flags().Duration("timeout", 5*time.Minute, "Processing timeout")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	path := args[0]

	fileInfo, err := validateInputFile(path, log)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	service, closeService, err := createOCRService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeService()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	log.Info().
		Str("file", path).
		Int64("size", fileInfo.Size()).
		Str("provider", cfg.OCRProvider).
		Msg("Starting text extraction")

	startTime := time.Now()
	extraction, err := ocr.NewExtractor(service).Extract(ctx, content)
	if err != nil {
		return describeError(err, log)
	}
	duration := time.Since(startTime)

	var data []byte
	if jsonOutput {
		data, err = json.MarshalIndent(OCROutput{
			RawExtraction:      *extraction,
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
			ProcessingDuration: duration.String(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		data = []byte(formatExtraction(extraction))
	}

	return writeOutput(data, outputPath, log)
}

func formatExtraction(extraction *models.RawExtraction) string {
	var b strings.Builder
	b.WriteString(extraction.RawText)
	b.WriteString("\n")
	if len(extraction.ParsedResults) > 0 {
		b.WriteString("\n=== Readings ===\n")
		for _, r := range extraction.ParsedResults {
			fmt.Fprintf(&b, "%-24s %s %s (reference %s to %s %s)\n",
				r.Test, r.Value, r.Unit, r.Range.Min, r.Range.Max, r.Range.Unit)
		}
	}
	return b.String()
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(data []byte, path string, log zerolog.Logger) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", path).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", path).
		Int("bytes", len(data)).
		Msg("Output written to file")
	return nil
}
