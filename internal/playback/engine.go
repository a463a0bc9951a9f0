// Package playback narrates a report summary: it splits the text into
// chunks, synthesizes them one at a time and plays them in order while
// later chunks are still being generated.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"medsummary/internal/logger"
	"medsummary/internal/retry"
	"medsummary/internal/tts"
)

var (
	// ErrPlayback wraps failures reported by the sink.
	ErrPlayback = errors.New("playback failed")

	// ErrStopped is returned by Play when the session was stopped.
	ErrStopped = errors.New("playback stopped")
)

// ChunkError reports the chunk whose synthesis failed.
type ChunkError struct {
	Section string
	Chunk   int // 1-based
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("failed at %s, chunk %d: %v", e.Section, e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Options tunes pacing. Zero values select the defaults below.
type Options struct {
	ChunkSize        int           // characters per synthesis call
	CallInterval     time.Duration // minimum gap between synthesis calls
	SectionPause     time.Duration // pause between sections
	RateLimitBackoff time.Duration // wait before the single retry after a rate limit
}

// DefaultOptions matches the pacing the speech provider tolerates.
func DefaultOptions() Options {
	return Options{
		ChunkSize:        DefaultChunkSize,
		CallInterval:     1500 * time.Millisecond,
		SectionPause:     500 * time.Millisecond,
		RateLimitBackoff: 10 * time.Second,
	}
}

// Engine runs one narration session at a time. Starting a new session or
// calling Stop ends the previous one.
type Engine struct {
	synth tts.Synthesizer
	sink  Sink
	opts  Options
	queue *Queue
	log   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	token  uint64
}

// NewEngine creates an engine that synthesizes with synth and plays into sink.
func NewEngine(synth tts.Synthesizer, sink Sink, opts Options) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.CallInterval < 0 {
		opts.CallInterval = 0
	}
	return &Engine{
		synth: synth,
		sink:  sink,
		opts:  opts,
		queue: NewQueue(),
		log:   logger.WithComponent("playback"),
	}
}

// Status returns a snapshot of the current session.
func (e *Engine) Status() Status {
	return e.queue.Status()
}

// Stop ends the current session, releasing every clip. It does not wait for
// the session's goroutines to return.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	e.queue.Stop()
	if cancel != nil {
		cancel()
	}
}

// Session is a narration started by Start.
type Session struct {
	engine  *Engine
	parent  context.Context
	token   uint64
	cancel  context.CancelFunc
	group   *errgroup.Group
	log     zerolog.Logger
	started time.Time
}

// Start stops any running narration, registers a new session and starts
// generating and playing sections in the background. A Stop issued after
// Start returns always ends the new session. Wait must be called to
// collect the result.
func (e *Engine) Start(ctx context.Context, sections []Section, voice tts.VoiceProfile) *Session {
	e.Stop()

	sessionCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	token := e.queue.Begin()
	e.token = token
	e.cancel = cancel
	e.mu.Unlock()

	log := e.log.With().Uint64("session", token).Logger()
	log.Info().Int("sections", len(sections)).Msg("Starting narration")

	g, gctx := errgroup.WithContext(sessionCtx)
	g.Go(func() error {
		return e.generate(gctx, token, sections, voice)
	})
	g.Go(func() error {
		return e.play(gctx, token)
	})

	return &Session{
		engine:  e,
		parent:  ctx,
		token:   token,
		cancel:  cancel,
		group:   g,
		log:     log,
		started: time.Now(),
	}
}

// Wait blocks until every chunk has been played, a chunk fails, the
// context is done or Stop is called.
func (s *Session) Wait() error {
	e := s.engine
	err := s.group.Wait()
	s.cancel()

	stopped := e.queue.Token() != s.token
	e.queue.End(s.token)

	e.mu.Lock()
	if e.token == s.token {
		e.cancel = nil
	}
	e.mu.Unlock()

	switch {
	case stopped:
		s.log.Info().Msg("Narration stopped")
		return ErrStopped
	case err != nil:
		if ctxErr := s.parent.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.Error().Err(err).Msg("Narration failed")
		return err
	}
	s.log.Info().Dur("duration", time.Since(s.started)).Msg("Narration finished")
	return nil
}

// Play narrates sections and blocks until the session ends. Generation and
// playback run concurrently; segments are always played in generation order.
func (e *Engine) Play(ctx context.Context, sections []Section, voice tts.VoiceProfile) error {
	return e.Start(ctx, sections, voice).Wait()
}

func (e *Engine) generate(ctx context.Context, token uint64, sections []Section, voice tts.VoiceProfile) error {
	defer e.queue.Finish(token)

	limit := rate.Inf
	if e.opts.CallInterval > 0 {
		limit = rate.Every(e.opts.CallInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	policy := retry.Policy{
		MaxAttempts: 2,
		Backoff:     retry.Constant(e.opts.RateLimitBackoff),
		Retryable:   tts.IsRateLimited,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			e.log.Warn().Err(err).Dur("wait", wait).Msg("Rate limited, retrying chunk")
		},
	}

	for i, section := range sections {
		if i > 0 && e.opts.SectionPause > 0 {
			if err := pause(ctx, e.opts.SectionPause); err != nil {
				return err
			}
		}

		for j, chunk := range ChunkText(section.Text, e.opts.ChunkSize) {
			var audio tts.Audio
			err := policy.Do(ctx, func(ctx context.Context) error {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				var err error
				audio, err = e.synth.Synthesize(ctx, chunk, voice)
				return err
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &ChunkError{Section: section.Label, Chunk: j + 1, Err: err}
			}

			seg := &Segment{Section: section.Label, Chunk: j + 1, Text: chunk, Clip: NewClip(audio)}
			if !e.queue.Append(token, seg) {
				return ErrSessionEnded
			}
			e.log.Debug().
				Str("section", section.Label).
				Int("chunk", j+1).
				Int("bytes", len(audio.Data)).
				Msg("Chunk ready")
		}
	}
	return nil
}

func (e *Engine) play(ctx context.Context, token uint64) error {
	for {
		seg, err := e.queue.Next(ctx, token)
		if errors.Is(err, ErrDrained) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := e.sink.Play(ctx, seg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: segment %d (%s, chunk %d): %v", ErrPlayback, seg.Index, seg.Section, seg.Chunk, err)
		}
		e.queue.Advance(token)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
