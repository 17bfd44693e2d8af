// Package hub implements live fan-out of stored events to subscribers.
//
// Every subscription owns a private bounded queue, so a slow viewer never
// blocks Publish, the ingestion path, or any other viewer. When a queue
// fills, the subscriber is dropped (its channel is closed and Overflowed
// reports true); it is expected to reconnect and catch up by watermark.
// The hub never persists anything: a subscriber that is not attached at
// publish time must use the catch-up read path instead.
package hub
