// Package server exposes the report pipeline over HTTP: upload, chat,
// cleanup, health and a websocket narration stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medsummary/internal/logger"
	"medsummary/internal/playback"
	"medsummary/internal/tts"
	"medsummary/pkg/services"
)

const requestIDHeader = "X-Request-ID"

// Options configure a Server.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	ScratchDirs    []string

	// Playback and Voice configure /narrate sessions.
	Playback playback.Options
	Voice    tts.VoiceProfile
}

// Server routes HTTP requests to the report services.
type Server struct {
	summarizer services.ReportSummarizer
	chat       services.ReportChat
	synth      tts.Synthesizer
	opts       Options
	router     *gin.Engine
	log        zerolog.Logger
}

// New builds the router. synth may be nil, in which case /narrate answers 503.
func New(summarizer services.ReportSummarizer, chat services.ReportChat, synth tts.Synthesizer, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.Voice.Speaker == "" {
		opts.Voice = tts.DefaultVoice("")
	}

	s := &Server{
		summarizer: summarizer,
		chat:       chat,
		synth:      synth,
		opts:       opts,
		router:     gin.New(),
		log:        logger.WithComponent("server"),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(requestLogger(), gin.CustomRecovery(s.recover))
	s.router.Use(cors.New(corsConfig(s.opts.CORSOrigins)))

	s.router.GET("/health", s.health)
	s.router.POST("/upload", s.upload)
	s.router.DELETE("/delete-files", s.deleteFiles)
	s.router.POST("/chat", s.chatReply)
	s.router.GET("/narrate", s.narrate)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.ExposeHeaders = []string{requestIDHeader}
	cfg.AllowCredentials = false
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requestLogger tags each request with an ID and writes one access-log line.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		l := logger.WithRequestID(requestID)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), l))

		c.Next()

		status := c.Writer.Status()
		event := l.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = l.Error()
		case status >= http.StatusBadRequest:
			event = l.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) recover(c *gin.Context, recovered any) {
	logger.FromContext(c.Request.Context()).Error().
		Interface("panic", recovered).
		Str("path", c.Request.URL.Path).
		Msg("Handler panicked")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error", "message": "internal error"})
}
