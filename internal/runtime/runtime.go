package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/CyNexa/InSOC/internal/auditlog"
	cfgpkg "github.com/CyNexa/InSOC/internal/config"
	"github.com/CyNexa/InSOC/internal/eventlog"
	pebblestore "github.com/CyNexa/InSOC/internal/storage/pebble"
)

// EventLogName is the single durable event log of an InSOC node.
const EventLogName = "events"

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Runtime owns the storage handle for a single-node instance. It is
// constructed once at startup and passed by reference to every component;
// there is no global store state.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{db: db, config: opts.Config}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage round trip.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// OpenEventLog opens the node's event log.
func (r *Runtime) OpenEventLog() (*eventlog.Log, error) {
	return eventlog.Open(r.db, EventLogName)
}

// OpenAuditTrail opens the action-audit trail.
func (r *Runtime) OpenAuditTrail() *auditlog.Trail {
	return auditlog.Open(r.db)
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
