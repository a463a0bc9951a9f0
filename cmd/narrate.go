package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medsummary/internal/logger"
	"medsummary/internal/playback"
	"medsummary/internal/report"
)

var narrateCmd = &cobra.Command{
	Use:   "narrate [summary.json]",
	Short: "Convert a saved summary to speech, one audio file per chunk",
	Long: `Narrate a summary produced by "summarize --json". The text is split into
sentence-aligned chunks, synthesized one call at a time with the configured
pacing, and written to the output directory in playback order.

Environment variables:
  SARVAM_API_KEY                        - text-to-speech API key
  TTS_SPEAKER, TTS_MODEL, TTS_SAMPLE_RATE
  TTS_CALL_INTERVAL, TTS_SECTION_PAUSE, TTS_RATE_LIMIT_BACKOFF, TTS_CHUNK_SIZE`,
	Example: `  # Write narration clips to ./narration
  medsummary narrate summary.json -l Hindi

  # Check chunking and pacing without calling the speech service
  medsummary narrate summary.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runNarrate,
}

func init() {
	rootCmd.AddCommand(narrateCmd)

	narrateCmd.Flags().StringP("language", "l", "English", "Narration language")
	narrateCmd.Flags().StringP("output", "o", "narration", "Directory for the audio files")
	narrateCmd.Flags().Bool("dry-run", false, "Use silent audio instead of the speech service")
	narrateCmd.Flags().Duration("timeout", 30*time.Minute, "Overall timeout")
}

func runNarrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("narrate")

	language, _ := cmd.Flags().GetString("language")
	outputDir, _ := cmd.Flags().GetString("output")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	summary, err := loadSummaryFile(args[0])
	if err != nil {
		return err
	}

	sections := playback.BuildSections(report.NormalizeSummary(summary))
	if len(sections) == 0 {
		return errors.New("summary has nothing to narrate")
	}

	synth, err := createSynthesizer(cfg, dryRun)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	sink := &playback.FileSink{Dir: outputDir}
	engine := playback.NewEngine(synth, sink, playbackOptions(cfg))

	log.Info().
		Int("sections", len(sections)).
		Str("language", language).
		Bool("dry_run", dryRun).
		Msg("Starting narration")

	if err := engine.Play(ctx, sections, voiceProfile(cfg, language)); err != nil {
		return describeError(err, log)
	}

	files := sink.Files()
	fmt.Printf("Wrote %d audio files to %s\n", len(files), outputDir)
	return nil
}
