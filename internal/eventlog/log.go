package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pebblestore "github.com/CyNexa/InSOC/internal/storage/pebble"
)

// ErrUnavailable reports a storage-layer failure. Batch appends either
// commit fully or leave nothing behind; callers must not assume partial
// success when they observe this error.
var ErrUnavailable = errors.New("eventlog: store unavailable")

// Log provides append-only operations for one named log.
type Log struct {
	db   *pebblestore.DB
	name string

	mu      sync.Mutex
	lastSeq uint64
}

// Open initializes a Log and loads the last sequence from metadata (if any).
func Open(db *pebblestore.DB, name string) (*Log, error) {
	l := &Log{db: db, name: name}
	meta, err := db.Get(KeyMeta(name))
	if err == nil && len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	} else if err != nil && !errors.Is(err, pebblestore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l, nil
}

// Name returns the log name.
func (l *Log) Name() string { return l.name }

// LastID returns the highest assigned identifier so far.
func (l *Log) LastID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(l.lastSeq)
}

// Append persists the events as a single atomic batch, assigning each a
// strictly increasing identifier. It returns stored copies with IDs set,
// in assignment order. On failure nothing is persisted and no ID is
// consumed: either the whole batch is visible to readers or none of it.
func (l *Log) Append(ctx context.Context, events []Event) ([]Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	stored := make([]Event, len(events))
	seq := l.lastSeq
	for i, ev := range events {
		seq++
		ev.ID = int64(seq)
		if ev.TS == 0 {
			ev.TS = time.Now().Unix()
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("eventlog: encode event: %w", err)
		}
		if err := b.Set(KeyEntry(l.name, seq), encodeEntry(ev.TS*1000, payload), nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		stored[i] = ev
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(KeyMeta(l.name), meta[:], nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	l.lastSeq = seq
	return stored, nil
}
