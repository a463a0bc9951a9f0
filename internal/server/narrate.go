package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"medsummary/internal/logger"
	"medsummary/internal/playback"
	"medsummary/internal/report"
	"medsummary/pkg/models"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// narrateMessage is sent by the client: start, ended or stop.
type narrateMessage struct {
	Type     string                `json:"type"`
	Summary  *models.ReportSummary `json:"summary,omitempty"`
	Language string                `json:"language,omitempty"`
	Index    int                   `json:"index"`
}

type segmentEvent struct {
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Section  string `json:"section"`
	Chunk    int    `json:"chunk"`
	Text     string `json:"text"`
	Audio    []byte `json:"audio"`
	MimeType string `json:"mimeType"`
}

type statusEvent struct {
	Type    string `json:"type"`
	Error   string `json:"error,omitempty"`
	Section string `json:"section,omitempty"`
	Chunk   int    `json:"chunk,omitempty"`
}

// wsWriter serializes writes; a websocket allows a single concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteJSON(v)
}

// wsSink hands each segment to the client and waits for its "ended" message.
type wsSink struct {
	out  *wsWriter
	acks chan int
}

func (s *wsSink) Play(ctx context.Context, seg *playback.Segment) error {
	audio, ok := seg.Clip.Audio()
	if !ok {
		return errors.New("segment audio already released")
	}
	err := s.out.send(segmentEvent{
		Type:     "segment",
		Index:    seg.Index,
		Section:  seg.Section,
		Chunk:    seg.Chunk,
		Text:     seg.Text,
		Audio:    audio.Data,
		MimeType: audio.MimeType,
	})
	if err != nil {
		return err
	}

	for {
		select {
		case index := <-s.acks:
			if index == seg.Index {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *wsSink) drain() {
	for {
		select {
		case <-s.acks:
		default:
			return
		}
	}
}

func resultEvent(err error) statusEvent {
	var chunkErr *playback.ChunkError
	switch {
	case err == nil:
		return statusEvent{Type: "done"}
	case errors.Is(err, playback.ErrStopped):
		return statusEvent{Type: "stopped"}
	case errors.As(err, &chunkErr):
		return statusEvent{Type: "error", Error: chunkErr.Error(), Section: chunkErr.Section, Chunk: chunkErr.Chunk}
	default:
		return statusEvent{Type: "error", Error: err.Error()}
	}
}

// narrate streams a summary as speech. Each connection owns one playback
// engine; a new "start" replaces the running session.
func (s *Server) narrate(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())
	if s.synth == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Narration is not configured"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	out := &wsWriter{conn: conn}
	sink := &wsSink{out: out, acks: make(chan int, 16)}
	engine := playback.NewEngine(s.synth, sink, s.opts.Playback)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer engine.Stop()

	for {
		var msg narrateMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Narration connection closed")
			}
			return
		}

		switch msg.Type {
		case "start":
			if msg.Summary == nil {
				out.send(statusEvent{Type: "error", Error: "summary is required"})
				continue
			}
			sections := playback.BuildSections(report.NormalizeSummary(*msg.Summary))
			if len(sections) == 0 {
				out.send(statusEvent{Type: "error", Error: "summary has nothing to narrate"})
				continue
			}

			engine.Stop()
			wg.Wait()
			sink.drain()

			voice := s.opts.Voice
			if msg.Language != "" {
				voice.Language = msg.Language
			}
			log.Info().Int("sections", len(sections)).Str("language", voice.Language).Msg("Narration requested")

			// Started here so a following stop always finds the session.
			session := engine.Start(ctx, sections, voice)
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := session.Wait()
				if err != nil && !errors.Is(err, playback.ErrStopped) {
					log.Error().Err(err).Msg("Narration failed")
				}
				out.send(resultEvent(err))
			}()

		case "ended":
			select {
			case sink.acks <- msg.Index:
			default:
			}

		case "stop":
			engine.Stop()

		default:
			out.send(statusEvent{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}
