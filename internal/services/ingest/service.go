// Package ingest accepts collector batches, normalizes them into event
// records, appends them atomically and hands the stored events to the hub.
package ingest

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/services/hub"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

// Result summarizes one ingest call.
type Result struct {
	Inserted int     `json:"inserted"`
	IDs      []int64 `json:"ids,omitempty"`
	Skipped  int     `json:"skipped,omitempty"`
}

// Service is the ingestion gateway.
type Service struct {
	log    *eventlog.Log
	hub    *hub.Hub
	logger logpkg.Logger
}

func New(log *eventlog.Log, h *hub.Hub, logger logpkg.Logger) *Service {
	return &Service{
		log:    log,
		hub:    h,
		logger: logger.With(logpkg.Component("ingest")),
	}
}

// itemShape is the accepted object form. Collectors may also submit a bare
// JSON string, which becomes the msg. Unknown keys are ignored here but
// survive verbatim in the event's raw field.
type itemShape struct {
	TS         float64         `json:"ts"`
	Source     string          `json:"source"`
	Severity   string          `json:"severity"`
	Msg        *string         `json:"msg"`
	Raw        json.RawMessage `json:"raw"`
	Meta       map[string]any  `json:"meta"`
	ClientUUID string          `json:"client_uuid"`
	Collector  map[string]any  `json:"collector"`
}

// Ingest validates each submitted item, appends the acceptable ones in a
// single atomic store batch and publishes every stored event in id order.
// A storage failure inserts nothing and broadcasts nothing.
func (s *Service) Ingest(ctx context.Context, items []json.RawMessage) (Result, error) {
	reqID := uuid.NewString()
	events := make([]eventlog.Event, 0, len(items))
	skipped := 0
	for _, item := range items {
		ev, ok := normalize(item)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	if skipped > 0 {
		s.logger.Debug("skipped invalid items",
			logpkg.Str("request_id", reqID), logpkg.Int("skipped", skipped))
	}
	if len(events) == 0 {
		return Result{Skipped: skipped}, nil
	}

	stored, err := s.log.Append(ctx, events)
	if err != nil {
		s.logger.Error("batch append failed",
			logpkg.Str("request_id", reqID), logpkg.Err(err))
		return Result{}, err
	}

	ids := make([]int64, len(stored))
	for i, ev := range stored {
		ids[i] = ev.ID
		s.hub.Publish(ev)
	}
	s.logger.Debug("batch ingested",
		logpkg.Str("request_id", reqID),
		logpkg.Int("inserted", len(stored)),
		logpkg.Int("skipped", skipped))
	return Result{Inserted: len(stored), IDs: ids, Skipped: skipped}, nil
}

// normalize maps one submitted JSON item onto an event record. The original
// item is always retained verbatim in raw.
func normalize(item json.RawMessage) (eventlog.Event, bool) {
	var asString string
	if err := json.Unmarshal(item, &asString); err == nil {
		return eventlog.Event{Msg: asString, Raw: append(json.RawMessage(nil), item...)}, true
	}

	var shape itemShape
	if err := json.Unmarshal(item, &shape); err != nil {
		return eventlog.Event{}, false
	}
	if shape.Msg == nil && len(shape.Raw) == 0 {
		return eventlog.Event{}, false
	}

	ev := eventlog.Event{
		TS:       int64(shape.TS),
		Source:   shape.Source,
		Severity: shape.Severity,
		Meta:     shape.Meta,
		Raw:      append(json.RawMessage(nil), item...),
	}
	if shape.Msg != nil {
		ev.Msg = *shape.Msg
	} else {
		// raw-only item: surface a string raw as the msg, anything else
		// stays visible through the verbatim raw copy.
		var rawStr string
		if err := json.Unmarshal(shape.Raw, &rawStr); err == nil {
			ev.Msg = rawStr
		}
	}
	if shape.ClientUUID != "" || shape.Collector != nil {
		if ev.Meta == nil {
			ev.Meta = make(map[string]any)
		}
		if shape.ClientUUID != "" {
			ev.Meta["client_uuid"] = shape.ClientUUID
		}
		if shape.Collector != nil {
			ev.Meta["collector"] = shape.Collector
		}
	}
	return ev, true
}
