package log

import (
	"io"
	"log"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to stderr (errors) or stdout.
type ConsoleOutput struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

// NewConsoleOutput returns an output writing to stdout/stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{out: os.Stdout, err: os.Stderr}
}

// Write sends warn-and-above to stderr, the rest to stdout.
func (c *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.out
	if entry.Level >= WarnLevel {
		w = c.err
	}
	_, err := w.Write(formatted)
	return err
}

// Close is a no-op for console output.
func (c *ConsoleOutput) Close() error { return nil }

// WriterOutput adapts an arbitrary io.Writer (tests, files).
type WriterOutput struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *WriterOutput) Write(_ *Entry, formatted []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.W.Write(formatted)
	return err
}

func (w *WriterOutput) Close() error { return nil }

// RedirectStdLog points the stdlib global logger (used by Pebble and
// net/http internals) at the provided Logger, at info level.
func RedirectStdLog(logger Logger) {
	log.SetFlags(0)
	log.SetOutput(stdLogWriter{logger: logger})
}

type stdLogWriter struct{ logger Logger }

func (w stdLogWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Info(msg, Str("origin", "stdlog"))
	return len(p), nil
}
