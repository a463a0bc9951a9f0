// Package tts converts short passages of text into speech audio.
package tts

import (
	"context"
	"strings"
)

// VoiceProfile selects the language and voice parameters of a synthesis call.
type VoiceProfile struct {
	Language   string  // language name or BCP-47 code, e.g. "Hindi" or "hi-IN"
	Speaker    string
	Pitch      float64
	Pace       float64
	Loudness   float64
	SampleRate int
}

// DefaultVoice is the voice used when callers only know the language.
func DefaultVoice(language string) VoiceProfile {
	return VoiceProfile{
		Language:   language,
		Speaker:    "amol",
		Pitch:      0,
		Pace:       1,
		Loudness:   1,
		SampleRate: 22050,
	}
}

// Audio is one synthesized clip.
type Audio struct {
	Data       []byte
	MimeType   string
	SampleRate int
}

// Synthesizer produces speech for a single chunk of text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (Audio, error)
}

var languageCodes = map[string]string{
	"english":   "en-IN",
	"hindi":     "hi-IN",
	"tamil":     "ta-IN",
	"telugu":    "te-IN",
	"kannada":   "kn-IN",
	"bengali":   "bn-IN",
	"marathi":   "mr-IN",
	"gujarati":  "gu-IN",
	"malayalam": "ml-IN",
	"odia":      "od-IN",
	"punjabi":   "pa-IN",
}

// LanguageCode maps a language name or code to the provider's language code.
// Unknown languages fall back to en-IN.
func LanguageCode(language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[key]; ok {
		return code
	}
	for _, code := range languageCodes {
		if strings.EqualFold(code, key) || strings.EqualFold(code[:2], key) {
			return code
		}
	}
	return "en-IN"
}
