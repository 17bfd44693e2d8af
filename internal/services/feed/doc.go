// Package feed drives viewer subscriptions: catch-up replay from the
// event log, the switch to live hub delivery, and stateless paged reads
// of history.
//
// A subscriber session moves CONNECTING → REPLAYING → LIVE, with
// DISCONNECTED reachable from anywhere. The session is registered with
// the hub before the replay snapshot is read, and every delivery is
// deduplicated against the watermark (highest id already sent), so an
// append racing the replay read can produce a duplicate on the live
// queue but never a gap and never a double delivery to the viewer.
package feed
