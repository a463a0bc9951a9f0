package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"medsummary/internal/logger"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	// HTTP server
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxUploadMB int
	ScratchDirs []string

	// OCR
	OCRProvider           string // tesseract, vision, documentai
	TesseractBin          string
	TesseractLang         string
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// LLM
	LLMProvider        string // gemini, openai
	LLMAPIKey          string
	LLMModel           string
	LLMBaseURL         string
	SummaryMaxTokens   int
	SummaryTemperature float32
	SummaryTopP        float32
	SummaryTopK        int
	ChatMaxTokens      int
	ChatTemperature    float32
	ChatTopP           float32
	ChatTopK           int

	// Text to speech
	SarvamAPIKey        string
	SarvamBaseURL       string
	TTSSpeaker          string
	TTSModel            string
	TTSSampleRate       int
	TTSTimeout          time.Duration
	TTSCallInterval     time.Duration
	TTSSectionPause     time.Duration
	TTSRateLimitBackoff time.Duration
	TTSChunkSize        int

	// PDF output
	PDFFontDir string

	// Batch processing
	BatchWorkers int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		Port:        getEnv("PORT", "5000"),
		GinMode:     getEnv("GIN_MODE", "release"),
		CORSOrigins: getListEnv("CORS_ORIGINS", "*"),
		MaxUploadMB: getIntEnv("MAX_UPLOAD_MB", 20),
		ScratchDirs: getListEnv("SCRATCH_DIRS", "uploads,pdfs"),

		OCRProvider:           strings.ToLower(getEnv("OCR_PROVIDER", "tesseract")),
		TesseractBin:          getEnv("TESSERACT_BIN", "tesseract"),
		TesseractLang:         getEnv("TESSERACT_LANG", "eng"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),

		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:           getEnv("LLM_MODEL", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
		SummaryMaxTokens:   getIntEnv("SUMMARY_MAX_TOKENS", 2048),
		SummaryTemperature: getFloatEnv("SUMMARY_TEMPERATURE", 0.2),
		SummaryTopP:        getFloatEnv("SUMMARY_TOP_P", 0.8),
		SummaryTopK:        getIntEnv("SUMMARY_TOP_K", 40),
		ChatMaxTokens:      getIntEnv("CHAT_MAX_TOKENS", 1000),
		ChatTemperature:    getFloatEnv("CHAT_TEMPERATURE", 0.7),
		ChatTopP:           getFloatEnv("CHAT_TOP_P", 0.8),
		ChatTopK:           getIntEnv("CHAT_TOP_K", 40),

		SarvamAPIKey:        getEnv("SARVAM_API_KEY", ""),
		SarvamBaseURL:       getEnv("SARVAM_BASE_URL", "https://api.sarvam.ai"),
		TTSSpeaker:          getEnv("TTS_SPEAKER", "amol"),
		TTSModel:            getEnv("TTS_MODEL", "bulbul:v1"),
		TTSSampleRate:       getIntEnv("TTS_SAMPLE_RATE", 22050),
		TTSTimeout:          getDurationEnv("TTS_TIMEOUT", 30*time.Second),
		TTSCallInterval:     getDurationEnv("TTS_CALL_INTERVAL", 1500*time.Millisecond),
		TTSSectionPause:     getDurationEnv("TTS_SECTION_PAUSE", 500*time.Millisecond),
		TTSRateLimitBackoff: getDurationEnv("TTS_RATE_LIMIT_BACKOFF", 10*time.Second),
		TTSChunkSize:        getIntEnv("TTS_CHUNK_SIZE", 400),

		PDFFontDir: getEnv("PDF_FONT_DIR", ""),

		BatchWorkers: getIntEnv("BATCH_WORKERS", 4),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stdout"),
	}

	// The provider specific key wins over the generic one.
	switch config.LLMProvider {
	case "gemini":
		config.LLMAPIKey = getEnv("GEMINI_API_KEY", getEnv("LLM_API_KEY", ""))
	case "openai":
		config.LLMAPIKey = getEnv("OPENAI_API_KEY", getEnv("LLM_API_KEY", ""))
	default:
		config.LLMAPIKey = getEnv("LLM_API_KEY", "")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.OCRProvider {
	case "tesseract", "vision", "documentai":
	default:
		return fmt.Errorf("OCR_PROVIDER must be one of tesseract, vision, documentai (got %q)", c.OCRProvider)
	}
	switch c.LLMProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("LLM_PROVIDER must be gemini or openai (got %q)", c.LLMProvider)
	}
	if c.OCRProvider == "documentai" && (c.GoogleCloudProject == "" || c.DocumentAIProcessorID == "") {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required for the documentai OCR provider")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	if c.TTSChunkSize <= 0 {
		return fmt.Errorf("TTS_CHUNK_SIZE must be positive")
	}
	return nil
}

// RequireLLM reports whether an LLM key is configured.
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("an API key for LLM provider %q is required (set GEMINI_API_KEY, OPENAI_API_KEY or LLM_API_KEY)", c.LLMProvider)
	}
	return nil
}

// RequireTTS reports whether the speech API key is configured.
func (c *Config) RequireTTS() error {
	if c.SarvamAPIKey == "" {
		return fmt.Errorf("SARVAM_API_KEY is required")
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go duration strings ("1500ms") or plain milliseconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
