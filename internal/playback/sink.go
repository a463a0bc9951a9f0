package playback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Sink plays one segment and returns when it has finished.
type Sink interface {
	Play(ctx context.Context, seg *Segment) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, seg *Segment) error

// Play calls f.
func (f SinkFunc) Play(ctx context.Context, seg *Segment) error {
	return f(ctx, seg)
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileSink writes each segment to Dir as a numbered audio file.
type FileSink struct {
	Dir string

	mu    sync.Mutex
	files []string
}

// Play writes the segment's audio to disk.
func (s *FileSink) Play(ctx context.Context, seg *Segment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	audio, ok := seg.Clip.Audio()
	if !ok {
		return fmt.Errorf("segment %d was released before playback", seg.Index)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	label := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(seg.Section), "-"), "-")
	name := fmt.Sprintf("%03d-%s-%02d%s", seg.Index+1, label, seg.Chunk, extensionFor(audio.MimeType))
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	s.mu.Lock()
	s.files = append(s.files, path)
	s.mu.Unlock()
	return nil
}

// Files returns the paths written so far, in playback order.
func (s *FileSink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}
