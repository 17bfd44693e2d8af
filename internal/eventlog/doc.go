// Package eventlog implements InSOC's append-only event store.
//
// # Overview
//
// Events are persisted in Pebble under a named log. Keys are
// lexicographically ordered so range scans walk records in id order:
//   - log/{name}/m           (log metadata: last assigned sequence)
//   - log/{name}/e/{seq_be8} (entries)
//
// Entries are stored framed as: varint headerLen | header | payload |
// crc32c(header|payload). The header carries the event timestamp in
// milliseconds so retention trims can run without decoding payloads; the
// payload is the JSON-encoded event.
//
// The store-assigned sequence is the sole ordering authority. Identifiers
// are strictly increasing, never reused, and gap-free while no deletion
// runs; the event timestamp is advisory only (collectors backfill and
// clocks skew) and is never used for sequencing.
//
// API surface (internal)
//
//	l, _ := eventlog.Open(db, "events")
//	stored, _ := l.Append(ctx, []eventlog.Event{{Msg: "sshd: failed password"}})
//
//	// Catch-up and paging
//	newer, _ := l.ReadAfter(lastSeen, 2000)   // ascending
//	page, _ := l.ReadBefore(beforeID, 100)    // descending
//	latest, _ := l.ReadLatest(100)            // descending from the tail
//
//	// Retention
//	n, _, _ := l.TrimOlderThan(ctx, cutoffMs, 1024, 0)
//	n, _ = l.TrimBefore(ctx, thresholdID)
package eventlog
