package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// TrimOlderThan deletes entries whose header timestamp is < cutoffMs.
// Because collector timestamps may arrive out of order, the whole range is
// scanned rather than stopping at the first newer entry. Deletes are
// committed in batches of up to batchLimit keys with an optional throttle
// between commits so ingestion never stalls behind a long sweep.
// Returns the number of deleted entries and the highest deleted sequence
// (0 if none). Sequences are never renumbered or reused.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, throttle time.Duration) (int, int64, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	low, hi := l.bounds()
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()

	deleted := 0
	var lastSeq uint64
	ok := iter.First()
	for ok {
		if err := ctx.Err(); err != nil {
			return deleted, int64(lastSeq), err
		}
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			tsMs, _, okDec := decodeEntry(iter.Value())
			if okDec && tsMs < cutoffMs {
				if err := b.Delete(iter.Key(), nil); err != nil {
					b.Close()
					return deleted, int64(lastSeq), fmt.Errorf("%w: %v", ErrUnavailable, err)
				}
				seq := seqFromEntryKey(iter.Key())
				if seq > lastSeq {
					lastSeq = seq
				}
				n++
			}
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, int64(lastSeq), fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			b.Close()
			deleted += n
			if throttle > 0 {
				time.Sleep(throttle)
			}
		} else {
			b.Close()
		}
	}
	return deleted, int64(lastSeq), nil
}

// TrimBefore deletes every entry with id < beforeID as one atomic range
// tombstone and returns the number of entries removed. Identifier
// assignment is unaffected: freed ids are never reused.
func (l *Log) TrimBefore(ctx context.Context, beforeID int64) (int, error) {
	if beforeID <= 0 {
		return 0, nil
	}
	low, _ := l.bounds()
	end := KeyEntry(l.name, uint64(beforeID))

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: end})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	count := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		count++
		if err := ctx.Err(); err != nil {
			iter.Close()
			return 0, err
		}
	}
	iter.Close()
	if count == 0 {
		return 0, nil
	}

	if err := l.db.DeleteRange(low, end); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}
