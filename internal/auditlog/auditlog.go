// Package auditlog implements the append-only action-audit trail.
//
// Audit records are written once per accepted block action, before the
// action executes, and are never mutated or swept. They live in their own
// keyspace, keyed by a time-sortable 128-bit id:
//   - audit/e/{id16}
//
// The trail is independent of the event log: it is not part of the
// catch-up protocol and has no retention horizon.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/CyNexa/InSOC/internal/storage/pebble"
	"github.com/CyNexa/InSOC/pkg/id"
)

// ErrUnavailable reports a storage-layer failure while writing or reading
// the audit trail.
var ErrUnavailable = errors.New("auditlog: store unavailable")

// Record is one immutable audit entry. Who is the action target (an
// address, typically); Actor is whoever or whatever triggered it.
type Record struct {
	ID     string `json:"id"`
	Who    string `json:"who"`
	WhenTS int64  `json:"when_ts"`
	Reason string `json:"reason,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

var (
	entryPrefix = []byte("audit/e/")
)

func entryKey(rid id.ID) []byte {
	k := make([]byte, 0, len(entryPrefix)+16)
	k = append(k, entryPrefix...)
	k = append(k, rid.Bytes()...)
	return k
}

// Trail is the append-only audit store.
type Trail struct {
	db  *pebblestore.DB
	gen *id.Generator
}

// Open returns a Trail over the shared database handle.
func Open(db *pebblestore.DB) *Trail {
	return &Trail{db: db, gen: id.NewGenerator()}
}

// Append persists one audit record, assigning its id and timestamp from the
// generator. Returns the stored record.
func (t *Trail) Append(ctx context.Context, rec Record) (Record, error) {
	rid := t.gen.Next()
	rec.ID = rid.String()
	if rec.WhenTS == 0 {
		rec.WhenTS = rid.TimeMs() / 1000
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("auditlog: encode record: %w", err)
	}

	b := t.db.NewBatch()
	defer b.Close()
	if err := b.Set(entryKey(rid), val, nil); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := t.db.CommitBatch(ctx, b); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}

// ReadLatest returns up to limit newest records, newest first.
func (t *Trail) ReadLatest(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	low := append([]byte(nil), entryPrefix...)
	hi := append(append([]byte(nil), entryPrefix...), 0xff)

	iter, err := t.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()

	out := make([]Record, 0, limit)
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}
