package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/services/hub"
	pebblestore "github.com/CyNexa/InSOC/internal/storage/pebble"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

type chanSink struct {
	ctx     context.Context
	events  chan eventlog.Event
	markers chan int64
}

func newChanSink(ctx context.Context) *chanSink {
	return &chanSink{ctx: ctx, events: make(chan eventlog.Event, 64), markers: make(chan int64, 1)}
}

func (s *chanSink) Send(ev eventlog.Event) error        { s.events <- ev; return nil }
func (s *chanSink) ReplayComplete(watermark int64) error { s.markers <- watermark; return nil }
func (s *chanSink) Context() context.Context             { return s.ctx }
func (s *chanSink) Flush() error                         { return nil }

func newTestFeed(t *testing.T) (*Service, *eventlog.Log, *hub.Hub) {
	t.Helper()
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	l, err := eventlog.Open(db, "events")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	h := hub.New(logger, 64)
	return New(l, h, logger), l, h
}

func seed(t *testing.T, l *eventlog.Log, n int) []eventlog.Event {
	t.Helper()
	events := make([]eventlog.Event, n)
	for i := range events {
		events[i] = eventlog.Event{Msg: fmt.Sprintf("m%d", i+1)}
	}
	stored, err := l.Append(context.Background(), events)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return stored
}

func recvEvent(t *testing.T, sink *chanSink) eventlog.Event {
	t.Helper()
	select {
	case ev := <-sink.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return eventlog.Event{}
	}
}

func recvMarker(t *testing.T, sink *chanSink) int64 {
	t.Helper()
	select {
	case w := <-sink.markers:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for replay marker")
		return 0
	}
}

func TestReplayCompleteness(t *testing.T) {
	svc, l, _ := newTestFeed(t)
	seed(t, l, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newChanSink(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Subscribe(ctx, 2, Options{}, sink) }()

	for want := int64(3); want <= 5; want++ {
		if got := recvEvent(t, sink).ID; got != want {
			t.Fatalf("replay order: want %d got %d", want, got)
		}
	}
	if w := recvMarker(t, sink); w != 5 {
		t.Fatalf("marker watermark: want 5 got %d", w)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("subscribe: %v", err)
	}
}

func TestNoHistoryWantedSkipsReplay(t *testing.T) {
	svc, l, h := newTestFeed(t)
	seed(t, l, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newChanSink(ctx)
	go func() { _ = svc.Subscribe(ctx, 0, Options{}, sink) }()

	if w := recvMarker(t, sink); w != 0 {
		t.Fatalf("marker watermark: want 0 got %d", w)
	}
	// live events flow after the marker
	h.Publish(eventlog.Event{ID: 4, Msg: "live"})
	if got := recvEvent(t, sink).ID; got != 4 {
		t.Fatalf("want live id 4 got %d", got)
	}
	select {
	case ev := <-sink.events:
		t.Fatalf("unexpected replayed event %d", ev.ID)
	default:
	}
}

func TestDuplicateSuppressionAcrossReplayLiveRace(t *testing.T) {
	svc, l, h := newTestFeed(t)
	seed(t, l, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newChanSink(ctx)
	go func() { _ = svc.Subscribe(ctx, 1, Options{}, sink) }()

	if got := recvEvent(t, sink).ID; got != 2 {
		t.Fatalf("want 2 got %d", got)
	}
	if got := recvEvent(t, sink).ID; got != 3 {
		t.Fatalf("want 3 got %d", got)
	}
	if w := recvMarker(t, sink); w != 3 {
		t.Fatalf("marker: want 3 got %d", w)
	}

	// Simulate the append that raced the replay read: the hub re-delivers
	// id 3, which the session must discard, then id 4 flows through.
	h.Publish(eventlog.Event{ID: 3, Msg: "dup"})
	h.Publish(eventlog.Event{ID: 4, Msg: "next"})
	if got := recvEvent(t, sink).ID; got != 4 {
		t.Fatalf("duplicate leaked; want 4 got %d", got)
	}
}

func TestLiveDeliveryPreservesOrder(t *testing.T) {
	svc, _, h := newTestFeed(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newChanSink(ctx)
	go func() { _ = svc.Subscribe(ctx, 0, Options{}, sink) }()
	recvMarker(t, sink)

	for i := 1; i <= 10; i++ {
		h.Publish(eventlog.Event{ID: int64(i)})
	}
	for i := 1; i <= 10; i++ {
		if got := recvEvent(t, sink).ID; got != int64(i) {
			t.Fatalf("order broken at %d: got %d", i, got)
		}
	}
}

func TestFilterAppliesToReplayAndLive(t *testing.T) {
	svc, l, h := newTestFeed(t)
	if _, err := l.Append(context.Background(), []eventlog.Event{
		{Msg: "seen", Severity: "info"},
		{Msg: "quiet", Severity: "info"},
		{Msg: "loud", Severity: "alert"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newChanSink(ctx)
	go func() { _ = svc.Subscribe(ctx, 1, Options{Filter: `severity == "alert"`}, sink) }()

	if got := recvEvent(t, sink).ID; got != 3 {
		t.Fatalf("replay filter: want 3 got %d", got)
	}
	// The watermark advances past filtered-out events too.
	if w := recvMarker(t, sink); w != 3 {
		t.Fatalf("marker: want 3 got %d", w)
	}

	h.Publish(eventlog.Event{ID: 4, Severity: "info"})
	h.Publish(eventlog.Event{ID: 5, Severity: "alert"})
	if got := recvEvent(t, sink).ID; got != 5 {
		t.Fatalf("live filter: want 5 got %d", got)
	}
}

func TestBadFilterRejected(t *testing.T) {
	svc, _, _ := newTestFeed(t)
	ctx := context.Background()
	sink := newChanSink(ctx)
	if err := svc.Subscribe(ctx, 0, Options{Filter: "((("}, sink); err == nil {
		t.Fatalf("expected filter compile error")
	}
	if _, err := svc.History(0, 10, "((("); err == nil {
		t.Fatalf("expected filter compile error")
	}
}

func TestHistoryPagingNewestFirst(t *testing.T) {
	svc, l, _ := newTestFeed(t)
	seed(t, l, 5)

	page, err := svc.History(0, 2, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page) != 2 || page[0].ID != 5 || page[1].ID != 4 {
		t.Fatalf("unexpected first page: %+v", page)
	}
	next, err := svc.History(page[1].ID, 2, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(next) != 2 || next[0].ID != 3 || next[1].ID != 2 {
		t.Fatalf("unexpected second page: %+v", next)
	}
}

func TestHistoryFilter(t *testing.T) {
	svc, l, _ := newTestFeed(t)
	if _, err := l.Append(context.Background(), []eventlog.Event{
		{Msg: "a", Source: "auth.log"},
		{Msg: "b", Source: "nginx"},
		{Msg: "c", Source: "auth.log"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	page, err := svc.History(0, 10, `source == "auth.log"`)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 1 {
		t.Fatalf("unexpected filtered page: %+v", page)
	}
}
