package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"medsummary/internal/logger"
	"medsummary/internal/server"
	"medsummary/internal/tts"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the report API:

  POST   /upload        multipart "file" (or "report") plus "language"
  POST   /chat          follow-up questions about a summary
  DELETE /delete-files  clear scratch directories
  GET    /health        liveness probe
  GET    /narrate       websocket narration stream (needs SARVAM_API_KEY)`,
	Example: `  medsummary serve --port 8080`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Listen port (default: PORT or 5000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	gin.SetMode(cfg.GinMode)

	ctx, cancel := createContextWithTimeout(0, log)
	defer cancel()

	svc, closeService, err := createReportService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeService()

	var synth tts.Synthesizer
	if cfg.SarvamAPIKey != "" {
		if synth, err = createSynthesizer(cfg, false); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("SARVAM_API_KEY not set, /narrate is disabled")
	}

	srv := server.New(svc, svc, synth, server.Options{
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ScratchDirs:    cfg.ScratchDirs,
		Playback:       playbackOptions(cfg),
		Voice:          voiceProfile(cfg, ""),
	})
	return srv.Run(ctx, ":"+cfg.Port)
}
