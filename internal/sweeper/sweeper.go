// Package sweeper evicts event records older than the retention horizon.
package sweeper

import (
	"context"
	"time"

	"github.com/CyNexa/InSOC/internal/eventlog"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

const (
	// DefaultHorizon keeps one hour of events.
	DefaultHorizon = time.Hour
	// DefaultInterval between sweeps.
	DefaultInterval = time.Minute

	batchLimit = 1024
	throttle   = 5 * time.Millisecond
)

// Sweeper periodically trims the event log by timestamp. Identifier
// assignment is untouched; reads simply stop returning evicted records.
type Sweeper struct {
	log      *eventlog.Log
	horizon  time.Duration
	interval time.Duration
	logger   logpkg.Logger
}

func New(log *eventlog.Log, horizon, interval time.Duration, logger logpkg.Logger) *Sweeper {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		log:      log,
		horizon:  horizon,
		interval: interval,
		logger:   logger.With(logpkg.Component("sweeper")),
	}
}

// Run sweeps on a ticker until the context is canceled. One failed sweep is
// logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started",
		logpkg.Dur("horizon", s.horizon), logpkg.Dur("interval", s.interval))
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-t.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", logpkg.Err(err))
			}
		}
	}
}

// SweepOnce deletes every record with ts older than now minus the horizon
// and returns the number removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoffMs := time.Now().Add(-s.horizon).UnixMilli()
	deleted, lastSeq, err := s.log.TrimOlderThan(ctx, cutoffMs, batchLimit, throttle)
	if err != nil {
		return deleted, err
	}
	if deleted > 0 {
		s.logger.Info("swept expired events",
			logpkg.Int("deleted", deleted), logpkg.Int64("last_id", lastSeq))
	}
	return deleted, nil
}
