package server

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"medsummary/internal/logger"
	"medsummary/internal/report"
	"medsummary/pkg/models"
)

// uploadFields are the multipart field names accepted for the report file.
var uploadFields = []string{"file", "report"}

type uploadResponse struct {
	Summary models.ReportSummary `json:"summary"`
	PDFData string               `json:"pdfData"`
}

type chatRequest struct {
	Summary models.ReportSummary `json:"summary"`
	History []models.ChatMessage `json:"history" binding:"omitempty,max=50,dive"`
	Message string               `json:"message" binding:"required,max=4000"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	var err error
	for _, field := range uploadFields {
		var fh *multipart.FileHeader
		if fh, err = c.FormFile(field); err == nil {
			return fh, nil
		}
	}
	return nil, err
}

func (s *Server) upload(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	fh, err := formFile(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			badRequest(c, "File too large", err.Error())
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			badRequest(c, "No file uploaded", "")
		default:
			badRequest(c, "No file uploaded", err.Error())
		}
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "No file uploaded", err.Error())
		return
	}
	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		badRequest(c, "No file uploaded", err.Error())
		return
	}
	if len(content) == 0 {
		badRequest(c, "No file uploaded", "uploaded file is empty")
		return
	}

	language := c.PostForm("language")
	log.Info().
		Str("filename", fh.Filename).
		Int("size", len(content)).
		Str("language", language).
		Msg("Processing uploaded report")

	result, err := s.summarizer.Summarize(c.Request.Context(), content, language)
	if err != nil {
		log.Error().Err(err).Msg("Error processing report")
		internalError(c, "Error processing report", report.PublicDetails(err))
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Summary: result.Summary,
		PDFData: base64.StdEncoding.EncodeToString(result.PDF),
	})
}

// deleteFiles empties the scratch directories. Failures are logged, never returned.
func (s *Server) deleteFiles(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	removed := 0
	for _, dir := range s.opts.ScratchDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("dir", dir).Msg("Cannot read scratch directory")
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Cannot delete file")
				continue
			}
			removed++
		}
	}

	log.Info().Int("removed", removed).Msg("Scratch files cleaned")
	c.JSON(http.StatusOK, gin.H{"message": "Files deleted successfully", "removed": removed})
}

func (s *Server) chatReply(c *gin.Context) {
	var req chatRequest
	if !bindAndValidate(c, &req) {
		return
	}

	reply, err := s.chat.Chat(c.Request.Context(), req.Summary, req.History, req.Message)
	if err != nil {
		if errors.Is(err, report.ErrEmptyQuestion) {
			badRequest(c, "Validation failed", err.Error())
			return
		}
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("Chat failed")
		internalError(c, "Error answering question", report.PublicDetails(err))
		return
	}

	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}
