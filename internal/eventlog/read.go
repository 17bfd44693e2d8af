package eventlog

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// MaxReadLimit is the hard ceiling applied to every read regardless of the
// caller-requested limit. It bounds response size and replay memory.
const MaxReadLimit = 2000

// DefaultReadLimit applies when a caller passes a non-positive limit.
const DefaultReadLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultReadLimit
	}
	if limit > MaxReadLimit {
		return MaxReadLimit
	}
	return limit
}

func (l *Log) bounds() (low, hi []byte) {
	low = KeyEntry(l.name, 0)
	hi = append(KeyEntry(l.name, ^uint64(0)), 0x00)
	return low, hi
}

// ReadAfter returns up to limit events with id > afterID in ascending id
// order. The result is a point-in-time snapshot: appends racing the scan are
// not included.
func (l *Log) ReadAfter(afterID int64, limit int) ([]Event, error) {
	limit = clampLimit(limit)
	low, hi := l.bounds()
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()

	events := make([]Event, 0, limit)
	var start uint64
	if afterID > 0 {
		start = uint64(afterID) + 1
	}
	if !iter.SeekGE(KeyEntry(l.name, start)) {
		return events, nil
	}
	for iter.Valid() && len(events) < limit {
		seq := seqFromEntryKey(iter.Key())
		if ev, ok := decodeEvent(seq, iter.Value()); ok {
			events = append(events, ev)
		}
		if !iter.Next() {
			break
		}
	}
	return events, nil
}

// ReadBefore returns up to limit events with id < beforeID in descending id
// order. A beforeID <= 0 means "start from the newest".
func (l *Log) ReadBefore(beforeID int64, limit int) ([]Event, error) {
	limit = clampLimit(limit)
	low, hi := l.bounds()
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()

	events := make([]Event, 0, limit)
	if beforeID <= 0 {
		if !iter.Last() {
			return events, nil
		}
	} else {
		if !iter.SeekLT(KeyEntry(l.name, uint64(beforeID))) {
			return events, nil
		}
	}
	for iter.Valid() && len(events) < limit {
		seq := seqFromEntryKey(iter.Key())
		if ev, ok := decodeEvent(seq, iter.Value()); ok {
			events = append(events, ev)
		}
		if !iter.Prev() {
			break
		}
	}
	return events, nil
}

// ReadLatest returns up to limit newest events in descending id order.
func (l *Log) ReadLatest(limit int) ([]Event, error) {
	return l.ReadBefore(0, limit)
}
