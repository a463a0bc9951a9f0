package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medsummary/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "medsummary",
	Short: "Summarize medical lab reports and read them aloud",
	Long: `medsummary turns a photo or PDF of a medical lab report into a plain
language summary: text recognition, a language model summary with the
abnormal results called out, a printable PDF, and optional narration
through a text-to-speech service.

Run "medsummary serve" for the HTTP API or use the subcommands directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
