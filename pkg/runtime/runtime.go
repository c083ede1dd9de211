// Package runtime provides the top-level ITMOScript runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thomasrohde/itmoscript/pkg/config"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
	"github.com/thomasrohde/itmoscript/pkg/formatter"
	"github.com/thomasrohde/itmoscript/pkg/parser"
	"github.com/thomasrohde/itmoscript/pkg/stdlib"
	"github.com/thomasrohde/itmoscript/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value      evaluator.Value
	Iterations int64
	Elapsed    time.Duration
}

// Runtime wires together all ITMOScript components for program execution.
type Runtime struct {
	stdlib *stdlib.Registry
	stdin  io.Reader
	stdout io.Writer
	seed   int64
	budget evaluator.Budget
	runID  string
	trace  func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the builtin registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithIO sets the streams read() and print/println use. A nil stream
// keeps the process default.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdin = in
		rt.stdout = out
	}
}

// WithSeed fixes the rnd seed. Zero picks a time-based seed.
func WithSeed(seed int64) Option {
	return func(rt *Runtime) {
		rt.seed = seed
	}
}

// WithBudget sets execution limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithConfig applies the seed and budget from loaded settings.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg == nil {
			return
		}
		rt.seed = cfg.Seed
		rt.budget = cfg.Budget
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default the standard builtins are registered and no budget applies.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.Default(),
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses and executes an ITMOScript program. Syntax errors are
// returned as *DiagnosticError before anything runs; runtime errors are
// *evaluator.RuntimeError, and output written before the failure stays
// written.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	result, err := evaluator.Execute(ctx, program, rt.buildExecOptions())
	return toResult(result), err
}

// Check parses and lints an ITMOScript program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program, rt.stdlib.Names())
}

// Format parses and formats an ITMOScript program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Session evaluates successive snippets against one global environment.
type Session struct {
	session *evaluator.Session
}

// NewSession starts a session with the runtime's builtins, streams and
// limits. Budgets apply to each Eval separately.
func (rt *Runtime) NewSession() *Session {
	return &Session{session: evaluator.NewSession(rt.buildExecOptions())}
}

// Eval parses and runs one snippet. Bindings made before a runtime error
// stay in place.
func (s *Session) Eval(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	result, err := s.session.Run(ctx, program)
	return toResult(result), err
}

// Globals returns the session's global environment.
func (s *Session) Globals() *evaluator.Env {
	return s.session.Globals()
}

// Interpret runs source as a whole program reading from in and printing to
// out. On failure it writes a single "Error: ..." line to out and returns
// false.
func Interpret(source string, in io.Reader, out io.Writer) bool {
	rt := New(WithIO(in, out))
	if _, err := rt.Run(context.Background(), source, ""); err != nil {
		diags := Diagnostics(err)
		fmt.Fprintf(out, "Error: %s\n", diagnostics.OneLine(diags[0]))
		return false
	}
	return true
}

// Diagnostics converts an error returned by Run, Format or Eval into
// diagnostics.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return diagErr.Diagnostics
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return []diagnostics.Diagnostic{rtErr.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Builtins: rt.stdlib.Builtins(),
		Stdin:    rt.stdin,
		Stdout:   rt.stdout,
		Seed:     rt.seed,
		Budget:   rt.budget,
		Trace:    rt.trace,
		RunID:    rt.runID,
	}
}

func toResult(r *evaluator.ExecResult) *Result {
	if r == nil {
		return nil
	}
	return &Result{Value: r.Value, Iterations: r.Iterations, Elapsed: r.Elapsed}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
