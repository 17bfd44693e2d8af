package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(level Level, f Formatter) (*bytes.Buffer, Logger) {
	var buf bytes.Buffer
	return &buf, NewLogger(WithLevel(level), WithFormatter(f), WithOutput(&WriterOutput{W: &buf}))
}

func TestLevelFiltering(t *testing.T) {
	buf, logger := newBufferLogger(WarnLevel, &TextFormatter{})
	logger.Debug("debug-line")
	logger.Info("info-line")
	logger.Warn("warn-line")
	logger.Error("error-line")
	out := buf.String()
	if strings.Contains(out, "debug-line") || strings.Contains(out, "info-line") {
		t.Fatalf("filtered levels leaked: %s", out)
	}
	if !strings.Contains(out, "warn-line") || !strings.Contains(out, "error-line") {
		t.Fatalf("warn/error missing: %s", out)
	}
}

func TestTextFormatterFields(t *testing.T) {
	buf, logger := newBufferLogger(InfoLevel, &TextFormatter{})
	logger.Info("hello", Str("source", "auth.log"), Int("count", 3), Err(errors.New("boom")))
	out := buf.String()
	for _, want := range []string{" INFO hello", "source=auth.log", "count=3", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	buf, logger := newBufferLogger(InfoLevel, &JSONFormatter{})
	logger.Info("hello", Str("k", "v"))
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["k"] != "v" || rec["level"] != "INFO" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestWithAddsBaseFields(t *testing.T) {
	buf, logger := newBufferLogger(InfoLevel, &TextFormatter{})
	child := logger.With(Component("sweeper"))
	child.Info("tick")
	if !strings.Contains(buf.String(), "component=sweeper") {
		t.Fatalf("base field missing: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": DebugLevel, "info": InfoLevel, "warn": WarnLevel, "error": ErrorLevel} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestApplyConfig(t *testing.T) {
	if _, err := ApplyConfig(&Config{Level: "info", Format: "json"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := ApplyConfig(&Config{Level: "nope"}); err == nil {
		t.Fatalf("expected error for bad level")
	}
}
