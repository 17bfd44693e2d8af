// Package httpserver exposes the InSOC API over HTTP: collector ingestion,
// paged history, the live SSE stream, block actions and purge/audit
// administration.
package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/CyNexa/InSOC/internal/auditlog"
	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/runtime"
	"github.com/CyNexa/InSOC/internal/services/actions"
	"github.com/CyNexa/InSOC/internal/services/feed"
	"github.com/CyNexa/InSOC/internal/services/ingest"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

// Deps carries the wired services the server fronts. The caller owns their
// lifecycle; the server only routes requests to them.
type Deps struct {
	Runtime *runtime.Runtime
	Log     *eventlog.Log
	Ingest  *ingest.Service
	Feed    *feed.Service
	Actions *actions.Service
	Trail   *auditlog.Trail
	Logger  logpkg.Logger
}

type Server struct {
	rt      *runtime.Runtime
	log     *eventlog.Log
	ingest  *ingest.Service
	feed    *feed.Service
	actions *actions.Service
	trail   *auditlog.Trail
	logger  logpkg.Logger

	srv *http.Server
	lis net.Listener
}

func New(d Deps) *Server {
	mux := http.NewServeMux()
	s := &Server{
		rt:      d.Runtime,
		log:     d.Log,
		ingest:  d.Ingest,
		feed:    d.Feed,
		actions: d.Actions,
		trail:   d.Trail,
		logger:  d.Logger.With(logpkg.Component("http")),
		srv:     &http.Server{Handler: cors(mux)},
	}
	cfg := d.Runtime.Config()
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/ingest", s.authed(cfg.IngestToken, s.handleIngest))
	mux.HandleFunc("/v1/events", s.authed(cfg.UIToken, s.handleEvents))
	mux.HandleFunc("/v1/events/stream", s.authed(cfg.UIToken, s.handleStreamSSE))
	mux.HandleFunc("/v1/events/purge", s.authed(cfg.UIToken, s.handlePurge))
	mux.HandleFunc("/v1/actions/block", s.authed(cfg.UIToken, s.handleBlock))
	mux.HandleFunc("/v1/audit", s.authed(cfg.UIToken, s.handleAudit))
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
