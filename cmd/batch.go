package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medsummary/internal/logger"
	"medsummary/pkg/services"
)

var batchCmd = &cobra.Command{
	Use:   "summarize-batch [folder-path]",
	Short: "Summarize every report image or PDF in a folder",
	Long: `Run the summarize pipeline on all reports in a folder (recursively).

For each report <name>.<ext> the command writes <name>-summary.pdf and
<name>-summary.json next to it, or into --output when given. Reports are
processed by a pool of workers; failures are listed at the end and do not
stop the other reports.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Summarize a folder of scans in Hindi
  medsummary summarize-batch ./reports -l Hindi

  # Write all outputs into one folder with 2 workers
  medsummary summarize-batch ./reports -o ./summaries --workers 2`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// reportExtensions are the file types picked up from the folder.
var reportExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".gif": true, ".bmp": true, ".webp": true,
}

// BatchResult is the outcome for one report.
type BatchResult struct {
	Filename string
	Result   *services.SummaryResult
	Error    error
	Status   string // "success", "warning", "error"
	Index    int    // original order
}

// WorkerJob is one report waiting for a worker.
type WorkerJob struct {
	FilePath string
	Index    int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("language", "l", "English", "Language of the summaries")
	batchCmd.Flags().StringP("output", "o", "", "Output folder (default: next to each report)")
	batchCmd.Flags().Int("workers", 0, "Parallel workers (default: BATCH_WORKERS or 4)")
	batchCmd.Flags().Duration("timeout", 30*time.Minute, "Overall timeout")
	batchCmd.Flags().Bool("verbose", false, "Log every processed report")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summarize-batch")

	folderPath := args[0]
	language, _ := cmd.Flags().GetString("language")
	outputDir, _ := cmd.Flags().GetString("output")
	numWorkers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if numWorkers <= 0 {
		numWorkers = cfg.BatchWorkers
	}

	files, err := findReportFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to scan folder: %w", err)
	}
	if len(files) == 0 {
		fmt.Printf("No report files found in %s\n", folderPath)
		return nil
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output folder: %w", err)
		}
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	svc, closeService, err := createReportService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeService()

	log.Info().
		Str("folder", folderPath).
		Int("files", len(files)).
		Int("workers", numWorkers).
		Str("language", language).
		Msg("Starting batch summarization")

	start := time.Now()
	results := processReportsInParallel(ctx, files, numWorkers, func(ctx context.Context, path string) BatchResult {
		return summarizeOne(ctx, svc, path, language, outputDir, log, verbose)
	})

	var succeeded, warned, failed int
	for _, r := range results {
		switch r.Status {
		case "success":
			succeeded++
		case "warning":
			warned++
		default:
			failed++
		}
	}

	fmt.Printf("\nProcessed %d reports in %s: %d ok, %d without parsed readings, %d failed\n",
		len(results), time.Since(start).Round(time.Second), succeeded, warned, failed)
	for _, r := range results {
		if r.Error != nil {
			fmt.Printf("  %s: %v\n", r.Filename, r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(results))
	}
	return nil
}

// findReportFiles lists report files below folderPath in lexical order.
func findReportFiles(folderPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), "-summary") {
			return nil
		}
		if reportExtensions[filepath.Ext(name)] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func summarizeOne(ctx context.Context, svc services.ReportSummarizer, path, language, outputDir string, log zerolog.Logger, verbose bool) BatchResult {
	result := BatchResult{Status: "error"}

	content, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}

	summary, err := svc.Summarize(ctx, content, language)
	if err != nil {
		result.Error = err
		return result
	}
	result.Result = summary

	base := strings.TrimSuffix(path, filepath.Ext(path)) + "-summary"
	if outputDir != "" {
		base = filepath.Join(outputDir, filepath.Base(base))
	}
	if err := os.WriteFile(base+".pdf", summary.PDF, 0o644); err != nil {
		result.Error = fmt.Errorf("failed to write PDF: %w", err)
		return result
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err == nil {
		err = os.WriteFile(base+".json", data, 0o644)
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to write JSON: %w", err)
		return result
	}

	result.Status = "success"
	if summary.Extraction != nil && len(summary.Extraction.ParsedResults) == 0 {
		result.Status = "warning"
	}

	if verbose {
		log.Info().
			Str("file", path).
			Int("abnormalities", len(summary.Summary.Abnormalities)).
			Str("output", base).
			Msg("Report summarized")
	}
	return result
}

// processReportsInParallel runs process over files with a fixed worker pool.
// Results keep the order of files.
func processReportsInParallel(ctx context.Context, files []string, numWorkers int, process func(context.Context, string) BatchResult) []BatchResult {
	jobs := make(chan WorkerJob, len(files))
	results := make([]BatchResult, len(files))

	var (
		processedCount int
		mu             sync.Mutex
		wg             sync.WaitGroup
	)

	if numWorkers > len(files) {
		numWorkers = len(files)
	}
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				var result BatchResult
				if err := ctx.Err(); err != nil {
					result = BatchResult{Status: "error", Error: err}
				} else {
					result = process(ctx, job.FilePath)
				}
				result.Index = job.Index
				result.Filename = filepath.Base(job.FilePath)
				results[job.Index] = result

				mu.Lock()
				processedCount++
				fmt.Printf("[%d/%d] %s - %s\n", processedCount, len(files), result.Filename, result.Status)
				mu.Unlock()
			}
		}()
	}

	for i, file := range files {
		jobs <- WorkerJob{FilePath: file, Index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}
