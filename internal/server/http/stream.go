package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/services/feed"
	"github.com/CyNexa/InSOC/internal/soc"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

// sseSink writes feed session output as server-sent events. Frame types:
// "event" for records, "replay_complete" with the watermark at the
// replay/live transition, "error" when the session dies mid-stream.
type sseSink struct {
	w     http.ResponseWriter
	r     *http.Request
	wrote bool
}

func (s *sseSink) Send(ev eventlog.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.wrote = true
	_, err = fmt.Fprintf(s.w, "event: event\ndata: %s\n\n", data)
	return err
}

func (s *sseSink) ReplayComplete(watermark int64) error {
	s.wrote = true
	_, err := fmt.Fprintf(s.w, "event: replay_complete\ndata: {\"watermark\":%d}\n\n", watermark)
	return err
}

func (s *sseSink) Context() context.Context { return s.r.Context() }

func (s *sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *sseSink) sendError(err error) {
	_, _ = fmt.Fprintf(s.w, "event: error\ndata: {\"error\":%q}\n\n", err.Error())
	_ = s.Flush()
}

func (s *Server) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	lastSeen := parseInt64(q.Get("last_seen_id"), 0)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sink := &sseSink{w: w, r: r}
	err := s.feed.Subscribe(r.Context(), lastSeen, feed.Options{Filter: q.Get("filter")}, sink)
	if err == nil {
		return
	}
	if !sink.wrote {
		// nothing streamed yet, a status line is still possible
		if errors.Is(err, feed.ErrReplay) {
			writeError(w, err)
		} else {
			writeError(w, fmt.Errorf("%w: %v", soc.ErrValidation, err))
		}
		return
	}
	s.logger.Warn("stream session ended",
		logpkg.Int64("last_seen_id", lastSeen), logpkg.Err(err))
	sink.sendError(err)
}
