package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/soc"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

type ingestReq struct {
	Events []json.RawMessage `json:"events"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.rt.Config().MaxBatchBytes))
	var req ingestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", soc.ErrValidation, err))
		return
	}
	if len(req.Events) == 0 {
		writeError(w, fmt.Errorf("%w: events is required", soc.ErrValidation))
		return
	}
	res, err := s.ingest.Ingest(r.Context(), req.Events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"inserted": res.Inserted,
		"ids":      res.IDs,
		"skipped":  res.Skipped,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	beforeID := parseInt64(q.Get("before_id"), 0)
	limit := int(parseInt64(q.Get("limit"), 0))
	page, err := s.feed.History(beforeID, limit, q.Get("filter"))
	if err != nil {
		if errors.Is(err, soc.ErrStoreUnavailable) {
			writeError(w, err)
		} else {
			writeError(w, fmt.Errorf("%w: %v", soc.ErrValidation, err))
		}
		return
	}
	if page == nil {
		page = []eventlog.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": page})
}

type blockReq struct {
	Who    string `json:"who"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req blockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", soc.ErrValidation, err))
		return
	}
	res, err := s.actions.Block(r.Context(), req.Who, req.Reason, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "audit": res.Audit})
}

type purgeReq struct {
	BeforeTS int64 `json:"before_ts"`
	BeforeID int64 `json:"before_id"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req purgeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", soc.ErrValidation, err))
		return
	}
	if (req.BeforeTS == 0) == (req.BeforeID == 0) {
		writeError(w, fmt.Errorf("%w: exactly one of before_ts or before_id is required", soc.ErrValidation))
		return
	}

	var (
		deleted int
		method  string
		err     error
	)
	if req.BeforeID > 0 {
		method = "before_id"
		deleted, err = s.log.TrimBefore(r.Context(), req.BeforeID)
	} else {
		method = "before_ts"
		deleted, _, err = s.log.TrimOlderThan(r.Context(), req.BeforeTS*1000, 0, 0)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("purge completed",
		logpkg.Str("method", method), logpkg.Int("deleted", deleted))
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "method": method})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := int(parseInt64(r.URL.Query().Get("limit"), 0))
	recs, err := s.trail.ReadLatest(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
