// Package serverrun wires the runtime, services, HTTP server and retention
// sweeper into a running InSOC node.
package serverrun
