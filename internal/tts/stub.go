package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"
)

// StubSynthesizer returns silent WAV clips without calling any service.
// Errors, when set, is consulted per call (1-based) to inject failures.
type StubSynthesizer struct {
	Delay  time.Duration
	Jitter func(call int) time.Duration
	Errors func(call int, text string) error

	mu    sync.Mutex
	calls int
	texts []string
}

// Synthesize honors ctx while simulating network latency.
func (s *StubSynthesizer) Synthesize(ctx context.Context, text string, voice VoiceProfile) (Audio, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	delay := s.Delay
	if s.Jitter != nil {
		delay += s.Jitter(call)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Audio{}, ctx.Err()
		}
	}

	if s.Errors != nil {
		if err := s.Errors(call, text); err != nil {
			return Audio{}, err
		}
	}

	rate := voice.SampleRate
	if rate == 0 {
		rate = 22050
	}
	return Audio{Data: SilentWAV(rate, 100*time.Millisecond), MimeType: "audio/wav", SampleRate: rate}, nil
}

// Calls returns the number of Synthesize invocations.
func (s *StubSynthesizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Texts returns the texts passed to Synthesize, in call order.
func (s *StubSynthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// SilentWAV builds a mono 16-bit PCM WAV file of the given length.
func SilentWAV(sampleRate int, length time.Duration) []byte {
	samples := int(int64(sampleRate) * int64(length) / int64(time.Second))
	dataSize := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
