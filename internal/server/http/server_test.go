package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CyNexa/InSOC/internal/auditlog"
	cfgpkg "github.com/CyNexa/InSOC/internal/config"
	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/runtime"
	"github.com/CyNexa/InSOC/internal/services/actions"
	"github.com/CyNexa/InSOC/internal/services/feed"
	"github.com/CyNexa/InSOC/internal/services/hub"
	"github.com/CyNexa/InSOC/internal/services/ingest"
	pebblestore "github.com/CyNexa/InSOC/internal/storage/pebble"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

type stubExecutor struct {
	err   error
	calls int
}

func (e *stubExecutor) Block(context.Context, string) (string, error) {
	e.calls++
	return "", e.err
}

func newTestServer(t *testing.T, cfg cfgpkg.Config, exec actions.Executor) (*Server, *eventlog.Log) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	l, err := rt.OpenEventLog()
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	h := hub.New(logger, cfg.SubscriberBuf)
	ing := ingest.New(l, h, logger)
	trail := rt.OpenAuditTrail()
	if exec == nil {
		exec = &stubExecutor{}
	}
	s := New(Deps{
		Runtime: rt,
		Log:     l,
		Ingest:  ing,
		Feed:    feed.New(l, h, logger),
		Actions: actions.New(trail, ing, exec, logger),
		Trail:   trail,
		Logger:  logger,
	})
	return s, l
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default(), nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestIngestHandler(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default(), nil)
	body := `{"events":[{"msg":"a"},{"msg":"b"},42]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK       bool    `json:"ok"`
		Inserted int     `json:"inserted"`
		IDs      []int64 `json:"ids"`
		Skipped  int     `json:"skipped"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Inserted != 2 || resp.Skipped != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.IDs) != 2 || resp.IDs[0] != 1 || resp.IDs[1] != 2 {
		t.Fatalf("ids: %v", resp.IDs)
	}
}

func TestIngestHandlerRejectsEmptyBatch(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default(), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(`{"events":[]}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestIngestAuthRequired(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.IngestToken = "collector-secret"
	s, _ := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(`{"events":["x"]}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(`{"events":["x"]}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(`{"events":["x"]}`))
	req.Header.Set("Authorization", "Bearer collector-secret")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("good token: status %d body: %s", w.Code, w.Body.String())
	}
}

func TestEventsHandlerNewestFirst(t *testing.T) {
	s, l := newTestServer(t, cfgpkg.Default(), nil)
	if _, err := l.Append(context.Background(), []eventlog.Event{{Msg: "a"}, {Msg: "b"}, {Msg: "c"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/events?limit=2", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var resp struct {
		Events []eventlog.Event `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].ID != 3 || resp.Events[1].ID != 2 {
		t.Fatalf("unexpected page: %+v", resp.Events)
	}
}

func TestEventsHandlerBadFilter(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default(), nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/events?filter=(((", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestStreamHandlerReplayThenMarker(t *testing.T) {
	s, l := newTestServer(t, cfgpkg.Default(), nil)
	if _, err := l.Append(context.Background(), []eventlog.Event{{Msg: "a"}, {Msg: "b"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// replay and the marker are written before the live phase parks on the
	// queue; the deadline then disconnects the session.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/events/stream?last_seen_id=1", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `"id":2`) {
		t.Fatalf("replayed event missing: %s", body)
	}
	if !strings.Contains(body, "event: replay_complete") || !strings.Contains(body, `{"watermark":2}`) {
		t.Fatalf("marker missing: %s", body)
	}
	if strings.Contains(body, `"id":1`) {
		t.Fatalf("event at last_seen_id must not be replayed: %s", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
}

func TestBlockHandlerExecutorFailure(t *testing.T) {
	exec := &stubExecutor{err: errors.New("exit status 1")}
	s, l := newTestServer(t, cfgpkg.Default(), exec)
	req := httptest.NewRequest(http.MethodPost, "/v1/actions/block", strings.NewReader(`{"who":"10.0.0.1"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status: %d", w.Code)
	}
	if exec.calls != 1 {
		t.Fatalf("executor calls: %d", exec.calls)
	}
	evs, _ := l.ReadLatest(10)
	if len(evs) != 0 {
		t.Fatalf("no event expected on failure: %+v", evs)
	}
}

func TestBlockHandlerSuccessWritesAuditAndEvent(t *testing.T) {
	s, l := newTestServer(t, cfgpkg.Default(), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/actions/block", strings.NewReader(`{"who":"10.0.0.1","reason":"scan","actor":"ui"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK    bool            `json:"ok"`
		Audit auditlog.Record `json:"audit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Audit.Who != "10.0.0.1" || resp.Audit.ID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	evs, _ := l.ReadLatest(10)
	if len(evs) != 1 || evs[0].Source != "blocker" {
		t.Fatalf("blocker event missing: %+v", evs)
	}

	// the audit endpoint serves the record back
	areq := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	aw := httptest.NewRecorder()
	s.Handler().ServeHTTP(aw, areq)
	if aw.Code != http.StatusOK || !strings.Contains(aw.Body.String(), resp.Audit.ID) {
		t.Fatalf("audit read: %d %s", aw.Code, aw.Body.String())
	}
}

func TestPurgeHandlerBeforeID(t *testing.T) {
	s, l := newTestServer(t, cfgpkg.Default(), nil)
	if _, err := l.Append(context.Background(), []eventlog.Event{{Msg: "a"}, {Msg: "b"}, {Msg: "c"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/events/purge", strings.NewReader(`{"before_id":3}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Deleted int    `json:"deleted"`
		Method  string `json:"method"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Deleted != 2 || resp.Method != "before_id" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	evs, _ := l.ReadLatest(10)
	if len(evs) != 1 || evs[0].ID != 3 {
		t.Fatalf("survivors: %+v", evs)
	}
}

func TestPurgeHandlerRequiresExactlyOneSelector(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default(), nil)
	for _, body := range []string{`{}`, `{"before_id":1,"before_ts":1}`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/events/purge", strings.NewReader(body))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status %d", body, w.Code)
		}
	}
}
