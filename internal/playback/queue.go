package playback

import (
	"context"
	"errors"
	"sync"

	"medsummary/internal/tts"
)

var (
	// ErrDrained is returned by Queue.Next once generation has finished and
	// every segment has been handed out.
	ErrDrained = errors.New("playback queue drained")

	// ErrSessionEnded is returned to callers holding a token from a session
	// that was stopped or replaced.
	ErrSessionEnded = errors.New("playback session ended")
)

// Phase is the coarse state of a narration session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGeneratingPlaying
	PhasePlaying
	PhaseWaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseGeneratingPlaying:
		return "generating+playing"
	case PhasePlaying:
		return "playing"
	case PhaseWaiting:
		return "waiting"
	default:
		return "idle"
	}
}

// Clip holds synthesized audio until it is released. Release is idempotent.
type Clip struct {
	mu       sync.Mutex
	audio    tts.Audio
	released bool
}

// NewClip takes ownership of audio.
func NewClip(audio tts.Audio) *Clip {
	return &Clip{audio: audio}
}

// Audio returns the clip's audio, or false once it has been released.
func (c *Clip) Audio() (tts.Audio, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio, !c.released
}

// Release drops the audio data. It reports whether this call did the release.
func (c *Clip) Release() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return false
	}
	c.released = true
	c.audio.Data = nil
	return true
}

// Released reports whether the clip has been released.
func (c *Clip) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Segment is one synthesized chunk waiting to be played.
type Segment struct {
	Index   int    // position in the session, assigned on append
	Section string // label of the section the chunk belongs to
	Chunk   int    // 1-based chunk number within the section
	Text    string
	Clip    *Clip
}

// Status is a point-in-time snapshot of a queue.
type Status struct {
	Phase      Phase
	Generating bool
	Playing    bool
	Length     int
	Cursor     int
	Token      uint64
}

// Queue is the ordered segment list shared by one generator and one player.
// Every mutation carries the session token returned by Begin; calls with an
// older token are ignored, so a stopped session cannot leak into the next.
type Queue struct {
	mu         sync.Mutex
	segments   []*Segment
	cursor     int
	token      uint64
	active     bool
	generating bool
	playing    bool
	waiting    bool
	changed    chan struct{}
}

// NewQueue returns an idle queue.
func NewQueue() *Queue {
	return &Queue{changed: make(chan struct{})}
}

// Begin clears the queue and starts a new session, returning its token.
func (q *Queue) Begin() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetLocked()
	q.token++
	q.active = true
	q.generating = true
	return q.token
}

// Append adds seg to the session. A stale or finished session rejects it and
// releases its clip.
func (q *Queue) Append(token uint64, seg *Segment) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if token != q.token || !q.active || !q.generating {
		if seg.Clip != nil {
			seg.Clip.Release()
		}
		return false
	}
	seg.Index = len(q.segments)
	q.segments = append(q.segments, seg)
	q.broadcastLocked()
	return true
}

// Finish marks generation of the session as complete.
func (q *Queue) Finish(token uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if token != q.token || !q.generating {
		return
	}
	q.generating = false
	q.broadcastLocked()
}

// Next returns the segment at the cursor, blocking until one is appended.
// It returns ErrDrained when generation is finished and nothing is left.
func (q *Queue) Next(ctx context.Context, token uint64) (*Segment, error) {
	for {
		q.mu.Lock()
		if token != q.token || !q.active {
			q.mu.Unlock()
			return nil, ErrSessionEnded
		}
		if q.cursor < len(q.segments) {
			seg := q.segments[q.cursor]
			q.playing = true
			q.waiting = false
			q.mu.Unlock()
			return seg, nil
		}
		if !q.generating {
			q.playing = false
			q.waiting = false
			q.mu.Unlock()
			return nil, ErrDrained
		}
		q.waiting = true
		changed := q.changed
		q.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			q.mu.Lock()
			if token == q.token {
				q.waiting = false
			}
			q.mu.Unlock()
			return nil, ctx.Err()
		}
	}
}

// Advance releases the segment at the cursor and moves past it.
func (q *Queue) Advance(token uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if token != q.token || q.cursor >= len(q.segments) {
		return
	}
	if clip := q.segments[q.cursor].Clip; clip != nil {
		clip.Release()
	}
	q.cursor++
}

// End closes the session identified by token, releasing whatever is left.
func (q *Queue) End(token uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if token != q.token {
		return
	}
	q.resetLocked()
}

// Stop ends the current session regardless of its token. Any generator or
// player still holding the old token sees ErrSessionEnded.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.token++
	q.resetLocked()
}

// Token returns the current session token.
func (q *Queue) Token() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.token
}

// Status returns a snapshot of the queue.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Status{
		Generating: q.generating,
		Playing:    q.playing,
		Length:     len(q.segments),
		Cursor:     q.cursor,
		Token:      q.token,
	}
	switch {
	case !q.active:
		s.Phase = PhaseIdle
	case q.waiting:
		s.Phase = PhaseWaiting
	case q.playing && q.generating:
		s.Phase = PhaseGeneratingPlaying
	case q.playing:
		s.Phase = PhasePlaying
	default:
		s.Phase = PhaseWaiting
	}
	return s
}

func (q *Queue) resetLocked() {
	for _, seg := range q.segments {
		if seg.Clip != nil {
			seg.Clip.Release()
		}
	}
	q.segments = nil
	q.cursor = 0
	q.active = false
	q.generating = false
	q.playing = false
	q.waiting = false
	q.broadcastLocked()
}

func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
