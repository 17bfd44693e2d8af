// Package runtime wires storage and config into a single-node InSOC
// instance. It exposes Open/Close, a basic health check, and helpers to
// open the event log and audit trail used by higher-level services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	events, _ := rt.OpenEventLog()
//	_, _ = events.Append(context.Background(), []eventlog.Event{{Msg: "hello"}})
package runtime
