package feed

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/CyNexa/InSOC/internal/eventlog"
)

// celFilter wraps a compiled CEL program shared by live subscriptions and
// historical reads. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("ts", cel.IntType),
		cel.Variable("source", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("msg", cel.StringType),
		// Raw submitted form as text, for substring matching
		cel.Variable("text", cel.StringType),
		// Structured collector metadata (ip, user, host, ...)
		cel.Variable("meta", cel.DynType),
		// Current unix seconds for windowed filters
		cel.Variable("now", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against an event. When disabled,
// returns true. Evaluation errors exclude the event rather than failing
// the stream.
func (f celFilter) Eval(ev eventlog.Event) bool {
	if !f.enabled {
		return true
	}
	meta := any(map[string]any{})
	if ev.Meta != nil {
		meta = ev.Meta
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":       ev.ID,
		"ts":       ev.TS,
		"source":   ev.Source,
		"severity": ev.Severity,
		"msg":      ev.Msg,
		"text":     string(ev.Raw),
		"meta":     meta,
		"now":      time.Now().Unix(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
