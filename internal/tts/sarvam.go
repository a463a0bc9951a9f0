package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"medsummary/internal/logger"
	"medsummary/internal/retry"
)

const (
	DefaultSarvamBaseURL = "https://api.sarvam.ai"
	DefaultSarvamModel   = "bulbul:v1"

	// MaxTextRunes is the per-call text ceiling accepted by the API.
	MaxTextRunes = 1000
)

// errTransport marks failures below HTTP (DNS, connection reset, timeouts).
var errTransport = errors.New("transport error")

// SarvamConfig configures the Sarvam text-to-speech client.
type SarvamConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Retry wraps every HTTP call. The zero value uses TransportPolicy.
	Retry *retry.Policy
}

// TransportPolicy retries network errors and 429 responses up to three
// times with exponential backoff.
func TransportPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		Backoff:     retry.Exponential(200*time.Millisecond, 2*time.Second),
		Retryable: func(err error) bool {
			return errors.Is(err, ErrRateLimited) || errors.Is(err, errTransport)
		},
	}
}

// SarvamSynthesizer implements Synthesizer against the Sarvam REST API.
type SarvamSynthesizer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	policy  retry.Policy
	log     zerolog.Logger
}

// NewSarvamSynthesizer creates a client. The API key is required.
func NewSarvamSynthesizer(cfg SarvamConfig) (*SarvamSynthesizer, error) {
	if cfg.APIKey == "" {
		return nil, &TTSError{Op: "NewSarvamSynthesizer", Err: ErrAuthentication, Details: "SARVAM_API_KEY is not set"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSarvamBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultSarvamModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	policy := TransportPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	s := &SarvamSynthesizer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		policy:  policy,
		log:     logger.WithComponent("tts-sarvam"),
	}
	if s.policy.OnRetry == nil {
		s.policy.OnRetry = func(attempt int, err error, wait time.Duration) {
			s.log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying speech request")
		}
	}
	return s, nil
}

type sarvamRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Pitch               float64  `json:"pitch"`
	Pace                float64  `json:"pace"`
	Loudness            float64  `json:"loudness"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
	Model               string   `json:"model"`
}

type sarvamResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize converts text to WAV audio.
func (s *SarvamSynthesizer) Synthesize(ctx context.Context, text string, voice VoiceProfile) (Audio, error) {
	const op = "Synthesize"

	cleaned := CleanText(text)
	if cleaned == "" {
		return Audio{}, &TTSError{Op: op, Err: ErrEmptyText}
	}

	defaults := DefaultVoice(voice.Language)
	if voice.Speaker == "" {
		voice.Speaker = defaults.Speaker
	}
	if voice.Pace == 0 {
		voice.Pace = defaults.Pace
	}
	if voice.Loudness == 0 {
		voice.Loudness = defaults.Loudness
	}
	if voice.SampleRate == 0 {
		voice.SampleRate = defaults.SampleRate
	}

	body, err := json.Marshal(sarvamRequest{
		Inputs:             []string{cleaned},
		TargetLanguageCode: LanguageCode(voice.Language),
		Speaker:            voice.Speaker,
		Pitch:              voice.Pitch,
		Pace:               voice.Pace,
		Loudness:           voice.Loudness,
		SpeechSampleRate:   voice.SampleRate,
		Model:              s.model,
	})
	if err != nil {
		return Audio{}, &TTSError{Op: op, Err: ErrSynthesisFailed, Details: err.Error()}
	}

	var encoded string
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		encoded, callErr = s.post(ctx, body)
		return callErr
	})
	if err != nil {
		return Audio{}, err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Audio{}, &TTSError{Op: op, Err: ErrSynthesisFailed, Details: "audio is not valid base64"}
	}
	return Audio{Data: data, MimeType: "audio/wav", SampleRate: voice.SampleRate}, nil
}

func (s *SarvamSynthesizer) post(ctx context.Context, body []byte) (string, error) {
	const op = "post"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/text-to-speech", bytes.NewReader(body))
	if err != nil {
		return "", &TTSError{Op: op, Err: ErrSynthesisFailed, Details: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TTSError{Op: op, Err: fmt.Errorf("%w: %w", ErrSynthesisFailed, errTransport), Details: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TTSError{Op: op, Err: fmt.Errorf("%w: %w", ErrSynthesisFailed, errTransport), Details: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp.StatusCode, payload)
	}

	var sr sarvamResponse
	if err := json.Unmarshal(payload, &sr); err != nil {
		return "", &TTSError{Op: op, StatusCode: resp.StatusCode, Err: ErrSynthesisFailed, Details: "malformed response"}
	}
	if len(sr.Audios) == 0 || sr.Audios[0] == "" {
		return "", &TTSError{Op: op, StatusCode: resp.StatusCode, Err: ErrSynthesisFailed, Details: "no audio data in response"}
	}
	return sr.Audios[0], nil
}

func statusError(op string, status int, payload []byte) error {
	details := strings.TrimSpace(string(payload))
	if len(details) > 200 {
		details = details[:200]
	}

	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = ErrInvalidRequest
	case http.StatusForbidden, http.StatusUnauthorized:
		sentinel = ErrAuthentication
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		sentinel = ErrSynthesisFailed
	}
	return &TTSError{Op: op, StatusCode: status, Err: sentinel, Details: details}
}

// CleanText keeps letters, digits, combining marks, whitespace, periods and
// commas, collapses whitespace and truncates to MaxTextRunes.
func CleanText(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '.', r == ',':
			return r
		default:
			return ' '
		}
	}, text)

	cleaned := strings.Join(strings.Fields(mapped), " ")
	if runes := []rune(cleaned); len(runes) > MaxTextRunes {
		cleaned = strings.TrimSpace(string(runes[:MaxTextRunes]))
	}
	return cleaned
}
