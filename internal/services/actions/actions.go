// Package actions executes response actions ordered from the UI.
//
// The only action today is blocking an address. The ordering contract is
// strict: the audit record is persisted first, the command runs second, and
// the notification event is synthesized last. A failed command leaves the
// audit record in place and produces no event.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/CyNexa/InSOC/internal/auditlog"
	"github.com/CyNexa/InSOC/internal/services/ingest"
	"github.com/CyNexa/InSOC/internal/soc"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

// maxOutputBytes bounds the command output carried in errors and logs.
const maxOutputBytes = 2048

// Executor runs the block command for one target.
type Executor interface {
	Block(ctx context.Context, who string) (output string, err error)
}

// CommandExecutor shells out to a configured command with the target as its
// single argument.
type CommandExecutor struct {
	Command string
	Timeout time.Duration
}

func (e *CommandExecutor) Block(ctx context.Context, who string) (string, error) {
	if e.Command == "" {
		return "", fmt.Errorf("no block command configured")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	out, err := exec.CommandContext(ctx, e.Command, who).CombinedOutput()
	return truncate(string(out)), err
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[:maxOutputBytes]) + "...(truncated)"
}

// Result reports one completed block action.
type Result struct {
	Audit  auditlog.Record `json:"audit"`
	Output string          `json:"output,omitempty"`
}

// Service coordinates audit, executor and notification for block actions.
type Service struct {
	trail    *auditlog.Trail
	ingester *ingest.Service
	exec     Executor
	logger   logpkg.Logger
}

func New(trail *auditlog.Trail, ing *ingest.Service, exec Executor, logger logpkg.Logger) *Service {
	return &Service{
		trail:    trail,
		ingester: ing,
		exec:     exec,
		logger:   logger.With(logpkg.Component("actions")),
	}
}

// Block records the action, runs the executor and, on success only,
// synthesizes a blocker event through the normal ingest path. The
// synthesized event is best-effort: its failure never fails the action.
func (s *Service) Block(ctx context.Context, who, reason, actor string) (Result, error) {
	who = strings.TrimSpace(who)
	if who == "" {
		return Result{}, fmt.Errorf("%w: who is required", soc.ErrValidation)
	}

	rec, err := s.trail.Append(ctx, auditlog.Record{Who: who, Reason: reason, Actor: actor})
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("block action recorded",
		logpkg.Str("audit_id", rec.ID), logpkg.Str("who", who), logpkg.Str("actor", actor))

	out, err := s.exec.Block(ctx, who)
	if err != nil {
		s.logger.Error("block command failed",
			logpkg.Str("audit_id", rec.ID), logpkg.Str("who", who),
			logpkg.Str("output", out), logpkg.Err(err))
		return Result{Audit: rec, Output: out}, fmt.Errorf("%w: %v", soc.ErrExecutor, err)
	}

	s.notify(ctx, rec, who)
	return Result{Audit: rec, Output: out}, nil
}

func (s *Service) notify(ctx context.Context, rec auditlog.Record, who string) {
	item, err := json.Marshal(map[string]any{
		"source":   "blocker",
		"severity": "info",
		"msg":      fmt.Sprintf("blocked %s", who),
		"meta":     map[string]any{"who": who, "audit_id": rec.ID, "actor": rec.Actor},
	})
	if err != nil {
		return
	}
	if _, err := s.ingester.Ingest(ctx, []json.RawMessage{item}); err != nil {
		s.logger.Warn("block notification not stored",
			logpkg.Str("audit_id", rec.ID), logpkg.Err(err))
	}
}
