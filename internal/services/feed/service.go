package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/services/hub"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

// State is the subscriber session lifecycle.
type State int

const (
	StateConnecting State = iota
	StateReplaying
	StateLive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReplaying:
		return "replaying"
	case StateLive:
		return "live"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ErrReplay reports a historical read failure mid-replay. The subscriber
// may retry by reconnecting with the same last-seen id; other subscribers
// are unaffected.
var ErrReplay = errors.New("feed: replay failed")

// ErrSlowConsumer reports that the subscriber's live queue overflowed and
// it was dropped by the hub.
var ErrSlowConsumer = errors.New("feed: subscriber too slow, dropped")

// Sink receives session output. Implemented by the transport layer
// (SSE today) and by test doubles.
type Sink interface {
	// Send delivers one event.
	Send(ev eventlog.Event) error
	// ReplayComplete marks the transition to live delivery. The watermark
	// is the id of the last replayed event, or the subscriber's original
	// last-seen id when nothing was replayed.
	ReplayComplete(watermark int64) error
	// Context cancellation disconnects the session.
	Context() context.Context
	// Flush pushes buffered frames to the viewer.
	Flush() error
}

// Options tunes one subscription.
type Options struct {
	// Filter is an optional CEL expression; non-matching events are not
	// delivered but still advance the watermark.
	Filter string
}

// Service drives subscriber sessions and stateless history reads against
// one event log and one hub.
type Service struct {
	log    *eventlog.Log
	hub    *hub.Hub
	logger logpkg.Logger
}

// New returns a feed service.
func New(log *eventlog.Log, h *hub.Hub, logger logpkg.Logger) *Service {
	return &Service{log: log, hub: h, logger: logger.With(logpkg.Component("feed"))}
}

// Subscribe attaches a viewer session. It replays events with id >
// lastSeenID (capped at the store's read ceiling), emits the replay
// completion marker, then streams live deliveries until the sink's
// context is cancelled or the viewer falls too far behind. A lastSeenID
// of 0 skips replay.
//
// The hub registration happens before the replay snapshot read; the
// watermark check below makes the session idempotent to the append that
// may race the two.
func (s *Service) Subscribe(ctx context.Context, lastSeenID int64, opts Options, sink Sink) error {
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return fmt.Errorf("feed: bad filter: %w", err)
	}

	state := StateConnecting
	sub := s.hub.Subscribe()
	defer func() {
		state = StateDisconnected
		s.logger.Debug("session state", logpkg.Str("state", state.String()))
		sub.Close()
	}()

	watermark := lastSeenID
	if lastSeenID > 0 {
		state = StateReplaying
		s.logger.Debug("session state", logpkg.Str("state", state.String()), logpkg.Int64("last_seen_id", lastSeenID))
		replay, err := s.log.ReadAfter(lastSeenID, eventlog.MaxReadLimit)
		if err != nil {
			s.logger.Warn("replay read failed", logpkg.Int64("last_seen_id", lastSeenID), logpkg.Err(err))
			return fmt.Errorf("%w: %v", ErrReplay, err)
		}
		for _, ev := range replay {
			if err := ctx.Err(); err != nil {
				return nil
			}
			watermark = ev.ID
			if !filter.Eval(ev) {
				continue
			}
			if err := sink.Send(ev); err != nil {
				return err
			}
		}
		s.logger.Debug("replay delivered",
			logpkg.Int64("last_seen_id", lastSeenID),
			logpkg.Int("events", len(replay)),
			logpkg.Int64("watermark", watermark))
	}

	if err := sink.ReplayComplete(watermark); err != nil {
		return err
	}
	if err := sink.Flush(); err != nil {
		return err
	}

	state = StateLive
	s.logger.Debug("session state", logpkg.Str("state", state.String()), logpkg.Int64("watermark", watermark))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sink.Context().Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				if sub.Overflowed() {
					return ErrSlowConsumer
				}
				return nil
			}
			// Discard anything at or below the watermark: the replay
			// snapshot already covered it.
			if ev.ID <= watermark {
				continue
			}
			watermark = ev.ID
			if !filter.Eval(ev) {
				continue
			}
			if err := sink.Send(ev); err != nil {
				return err
			}
			if err := sink.Flush(); err != nil {
				return err
			}
		}
	}
}

// History returns one stateless page of events, newest first. A beforeID
// of 0 starts from the tail. The filter applies after the bounded read,
// so a filtered page may come back shorter than limit.
func (s *Service) History(beforeID int64, limit int, filterExpr string) ([]eventlog.Event, error) {
	filter, err := newCELFilter(filterExpr)
	if err != nil {
		return nil, fmt.Errorf("feed: bad filter: %w", err)
	}
	page, err := s.log.ReadBefore(beforeID, limit)
	if err != nil {
		return nil, err
	}
	if !filter.enabled {
		return page, nil
	}
	out := page[:0]
	for _, ev := range page {
		if filter.Eval(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}
