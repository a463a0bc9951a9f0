package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"medsummary/internal/tts"
)

func newSegment(text string) *Segment {
	return &Segment{Section: "Key Findings", Text: text, Clip: NewClip(tts.Audio{Data: []byte(text)})}
}

func waitForPhase(t *testing.T, q *Queue, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for q.Status().Phase != want {
		if time.Now().After(deadline) {
			t.Fatalf("phase = %v, want %v", q.Status().Phase, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueueDeliversInOrderAndDrains(t *testing.T) {
	q := NewQueue()
	token := q.Begin()
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if !q.Append(token, newSegment(text)) {
			t.Fatalf("append %q rejected", text)
		}
	}
	q.Finish(token)

	var played []*Segment
	for {
		seg, err := q.Next(ctx, token)
		if errors.Is(err, ErrDrained) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		played = append(played, seg)
		q.Advance(token)
	}

	if len(played) != 3 {
		t.Fatalf("played %d segments", len(played))
	}
	for i, seg := range played {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if !seg.Clip.Released() {
			t.Errorf("segment %d not released after advance", i)
		}
	}
	if st := q.Status(); st.Cursor != 3 || st.Length != 3 || st.Playing {
		t.Errorf("status = %+v", st)
	}
}

func TestQueueNextWaitsForAppend(t *testing.T) {
	q := NewQueue()
	token := q.Begin()

	got := make(chan *Segment, 1)
	go func() {
		seg, err := q.Next(context.Background(), token)
		if err != nil {
			t.Errorf("Next: %v", err)
		}
		got <- seg
	}()

	waitForPhase(t, q, PhaseWaiting)
	q.Append(token, newSegment("late"))

	select {
	case seg := <-got:
		if seg.Text != "late" {
			t.Errorf("got %q", seg.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not wake up after append")
	}
	if st := q.Status(); st.Phase != PhaseGeneratingPlaying {
		t.Errorf("phase = %v", st.Phase)
	}
}

func TestQueueFinishWakesWaitingPlayer(t *testing.T) {
	q := NewQueue()
	token := q.Begin()

	done := make(chan error, 1)
	go func() {
		_, err := q.Next(context.Background(), token)
		done <- err
	}()

	waitForPhase(t, q, PhaseWaiting)
	q.Finish(token)

	select {
	case err := <-done:
		if !errors.Is(err, ErrDrained) {
			t.Errorf("err = %v, want ErrDrained", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Finish")
	}
}

func TestQueueStopResetsAndRejectsStaleAppend(t *testing.T) {
	q := NewQueue()
	token := q.Begin()

	first := newSegment("first")
	second := newSegment("second")
	q.Append(token, first)
	q.Append(token, second)
	if _, err := q.Next(context.Background(), token); err != nil {
		t.Fatal(err)
	}

	q.Stop()

	st := q.Status()
	if st.Phase != PhaseIdle || st.Length != 0 || st.Cursor != 0 || st.Playing || st.Generating {
		t.Errorf("status after stop = %+v", st)
	}
	if !first.Clip.Released() || !second.Clip.Released() {
		t.Error("stop must release every clip")
	}

	fresh := q.Begin()
	stale := newSegment("stale")
	if q.Append(token, stale) {
		t.Error("append with a stale token was accepted")
	}
	if !stale.Clip.Released() {
		t.Error("rejected clip was not released")
	}
	if _, err := q.Next(context.Background(), token); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("stale Next err = %v", err)
	}

	q.Append(fresh, newSegment("new"))
	seg, err := q.Next(context.Background(), fresh)
	if err != nil || seg.Text != "new" || seg.Index != 0 {
		t.Errorf("fresh session got %+v, %v", seg, err)
	}
}

func TestQueueNextHonorsContext(t *testing.T) {
	q := NewQueue()
	token := q.Begin()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Next(ctx, token); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestClipReleaseOnce(t *testing.T) {
	c := NewClip(tts.Audio{Data: []byte("pcm")})
	if !c.Release() {
		t.Fatal("first release reported false")
	}
	if c.Release() {
		t.Error("second release reported true")
	}
	if _, ok := c.Audio(); ok {
		t.Error("released clip still reports audio")
	}
}
