package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OCR_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.OCRProvider != "tesseract" {
		t.Errorf("OCRProvider = %q, want tesseract", cfg.OCRProvider)
	}
	if cfg.LLMAPIKey != "g-key" {
		t.Errorf("LLMAPIKey = %q, want g-key", cfg.LLMAPIKey)
	}
	if cfg.TTSCallInterval != 1500*time.Millisecond {
		t.Errorf("TTSCallInterval = %v, want 1.5s", cfg.TTSCallInterval)
	}
	if len(cfg.ScratchDirs) != 2 || cfg.ScratchDirs[0] != "uploads" || cfg.ScratchDirs[1] != "pdfs" {
		t.Errorf("ScratchDirs = %v", cfg.ScratchDirs)
	}
	if cfg.MaxUploadBytes() != 20*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
}

func TestLoadRejectsUnknownProviders(t *testing.T) {
	t.Setenv("OCR_PROVIDER", "papyrus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown OCR provider")
	}

	t.Setenv("OCR_PROVIDER", "tesseract")
	t.Setenv("LLM_PROVIDER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown LLM provider")
	}
}

func TestRequireLLM(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.RequireLLM(); err == nil {
		t.Error("RequireLLM should fail without a key")
	}

	t.Setenv("LLM_API_KEY", "fallback")
	cfg, _ = Load()
	if err := cfg.RequireLLM(); err != nil {
		t.Errorf("RequireLLM: %v", err)
	}
}

func TestDurationEnvAcceptsMilliseconds(t *testing.T) {
	t.Setenv("TTS_RATE_LIMIT_BACKOFF", "250")
	if got := getDurationEnv("TTS_RATE_LIMIT_BACKOFF", time.Second); got != 250*time.Millisecond {
		t.Errorf("got %v, want 250ms", got)
	}
	t.Setenv("TTS_RATE_LIMIT_BACKOFF", "2s")
	if got := getDurationEnv("TTS_RATE_LIMIT_BACKOFF", time.Second); got != 2*time.Second {
		t.Errorf("got %v, want 2s", got)
	}
	t.Setenv("TTS_RATE_LIMIT_BACKOFF", "soon")
	if got := getDurationEnv("TTS_RATE_LIMIT_BACKOFF", time.Second); got != time.Second {
		t.Errorf("got %v, want default", got)
	}
}

func TestBatchWorkers(t *testing.T) {
	t.Setenv("OCR_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("BATCH_WORKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BatchWorkers != 4 {
		t.Errorf("BatchWorkers = %d, want 4", cfg.BatchWorkers)
	}

	t.Setenv("BATCH_WORKERS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}
