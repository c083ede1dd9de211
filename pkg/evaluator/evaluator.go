package evaluator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceCallStart      TraceEventType = "call_start"
	TraceCallEnd        TraceEventType = "call_end"
	TraceLoopStart      TraceEventType = "loop_start"
	TraceLoopEnd        TraceEventType = "loop_end"
	TraceBudgetExceeded TraceEventType = "budget_exceeded"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// Host is the part of the outside world visible to builtins.
type Host struct {
	In   *bufio.Reader
	Out  io.Writer
	Rand *rand.Rand
}

// BuiltinFn defines a native function callable from ITMOScript.
// Soft failures return Nil; a non-nil error aborts the run.
type BuiltinFn struct {
	Name    string
	Execute func(h *Host, args []Value) (Value, error)
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Builtins map[string]*BuiltinFn
	Stdin    io.Reader
	Stdout   io.Writer
	// Seed initializes the PRNG behind rnd; zero picks a time-based seed.
	Seed   int64
	Budget Budget
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Value      Value
	Iterations int64
	Elapsed    time.Duration
}

// RuntimeError represents a runtime error during execution.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// frame is the per-call execution state. Control-flow signals live here,
// so a call never sees its caller's break, continue or return.
type frame struct {
	env        *Env
	returning  bool
	breaking   bool
	continuing bool
	retVal     Value
}

func (f *frame) signaled() bool {
	return f.returning || f.breaking || f.continuing
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	host    *Host
	globals *Env
	budget  Budget
	tracker BudgetTracker
}

// Session keeps global bindings alive across runs, as the REPL needs.
type Session struct {
	ev *evaluator
}

// NewSession creates the global environment with one Builtin binding per
// registered function.
func NewSession(opts ExecOptions) *Session {
	in := opts.Stdin
	if in == nil {
		in = os.Stdin
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	globals := NewEnv(nil)
	for name := range opts.Builtins {
		globals.Declare(name, Builtin{Name: name})
	}

	return &Session{ev: &evaluator{
		ctx:  context.Background(),
		opts: opts,
		host: &Host{
			In:   bufio.NewReader(in),
			Out:  out,
			Rand: rand.New(rand.NewSource(seed)),
		},
		globals: globals,
		budget:  opts.Budget,
	}}
}

// Globals returns the session's global environment.
func (s *Session) Globals() *Env {
	return s.ev.globals
}

// Run executes program against the session's globals. Budgets apply per run.
func (s *Session) Run(ctx context.Context, program *ast.Program) (*ExecResult, error) {
	ev := s.ev
	if ev.budget.TimeMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ev.budget.TimeMs)*time.Millisecond)
		defer cancel()
	}
	ev.ctx = ctx
	ev.tracker = BudgetTracker{Start: time.Now()}

	span := program.Span
	ev.emit(TraceRunStart, &span, budgetData(ev.budget))

	f := &frame{env: ev.globals}
	val, err := ev.evalBlock(program.Body, f)
	if f.returning {
		val = f.retVal
	}

	ev.emit(TraceRunEnd, &span, nil)

	result := &ExecResult{
		Value:      val,
		Iterations: ev.tracker.Iterations,
		Elapsed:    time.Since(ev.tracker.Start),
	}
	if err != nil {
		result.Value = NewNil()
		return result, err
	}
	return result, nil
}

// budgetData describes the active limits for the run_start event; nil when
// the run is unlimited.
func budgetData(b Budget) map[string]string {
	if b.IsZero() {
		return nil
	}
	return map[string]string{
		"maxIterations": strconv.FormatInt(b.MaxIterations, 10),
		"maxCallDepth":  strconv.Itoa(b.MaxCallDepth),
		"timeMs":        strconv.FormatInt(b.TimeMs, 10),
	}
}

// Execute runs a program in a fresh session and returns the result.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return NewSession(opts).Run(ctx, program)
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]string) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// withSpan attaches span to runtime errors that do not carry one yet.
func withSpan(err error, span ast.Span) error {
	if rtErr, ok := err.(*RuntimeError); ok && rtErr.Span == nil {
		rtErr.Span = &span
	}
	return err
}

func (ev *evaluator) evalBlock(block *ast.Block, f *frame) (Value, error) {
	var last Value = NewNil()
	if block == nil {
		return last, nil
	}
	for _, stmt := range block.Statements {
		val, err := ev.eval(stmt, f)
		if err != nil {
			return nil, err
		}
		last = val
		if f.signaled() {
			break
		}
	}
	return last, nil
}

func (ev *evaluator) eval(node ast.Node, f *frame) (Value, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return NewNumber(n.Value), nil

	case *ast.StringLiteral:
		return NewString(n.Value), nil

	case *ast.NilLiteral:
		return NewNil(), nil

	case *ast.ListLiteral:
		items := make([]Value, 0, len(n.Elements))
		for _, elem := range n.Elements {
			val, err := ev.eval(elem, f)
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		}
		return NewList(items), nil

	case *ast.FunctionLiteral:
		return &Function{Params: n.Params, Body: n.Body, Env: f.env.Child()}, nil

	case *ast.Identifier:
		val, ok := f.env.Get(n.Name)
		if !ok {
			span := n.Span
			return nil, &RuntimeError{
				Code:    diagnostics.EUnbound,
				Message: fmt.Sprintf("undefined variable: %s", n.Name),
				Span:    &span,
			}
		}
		return val, nil

	case *ast.Assignment:
		val, err := ev.eval(n.Value, f)
		if err != nil {
			return nil, err
		}
		f.env.Set(n.Name, val)
		return val, nil

	case *ast.BinaryExpr:
		left, err := ev.eval(n.Left, f)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(n.Right, f)
		if err != nil {
			return nil, err
		}
		val, err := binaryOp(n.Op, left, right)
		if err != nil {
			return nil, withSpan(err, n.Span)
		}
		return val, nil

	case *ast.UnaryExpr:
		operand, err := ev.eval(n.Operand, f)
		if err != nil {
			return nil, err
		}
		val, err := unaryOp(n.Op, operand)
		if err != nil {
			return nil, withSpan(err, n.Span)
		}
		return val, nil

	case *ast.IndexExpr:
		return ev.evalIndex(n, f)

	case *ast.CallExpr:
		return ev.evalCall(n, f)

	case *ast.IfStmt:
		cond, err := ev.eval(n.Cond, f)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return ev.evalBlock(n.Then, f)
		}
		return ev.evalBlock(n.Else, f)

	case *ast.WhileStmt:
		return ev.evalWhile(n, f)

	case *ast.ForStmt:
		return ev.evalFor(n, f)

	case *ast.ReturnStmt:
		var val Value = NewNil()
		if n.Value != nil {
			v, err := ev.eval(n.Value, f)
			if err != nil {
				return nil, err
			}
			val = v
		}
		f.returning = true
		f.retVal = val
		return val, nil

	case *ast.BreakStmt:
		f.breaking = true
		return NewNil(), nil

	case *ast.ContinueStmt:
		f.continuing = true
		return NewNil(), nil

	case *ast.PrintStmt:
		val, err := ev.eval(n.Value, f)
		if err != nil {
			return nil, err
		}
		text := Format(val)
		if n.Newline {
			text += "\n"
		}
		if _, err := io.WriteString(ev.host.Out, text); err != nil {
			span := n.Span
			return nil, &RuntimeError{Code: diagnostics.EIO, Message: fmt.Sprintf("write failed: %v", err), Span: &span}
		}
		return NewNil(), nil

	case *ast.Block:
		return ev.evalBlock(n, f)

	default:
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unsupported node type: %T", node),
		}
	}
}

func (ev *evaluator) evalIndex(n *ast.IndexExpr, f *frame) (Value, error) {
	target, err := ev.eval(n.Target, f)
	if err != nil {
		return nil, err
	}

	var start, end Value
	if n.Start != nil {
		if start, err = ev.eval(n.Start, f); err != nil {
			return nil, err
		}
	}
	if n.End != nil {
		if end, err = ev.eval(n.End, f); err != nil {
			return nil, err
		}
	}

	var val Value
	if n.Slice {
		val, err = slice(target, start, end)
	} else {
		val, err = index(target, start)
	}
	if err != nil {
		return nil, withSpan(err, n.Span)
	}
	return val, nil
}

// runBody executes one loop iteration and reports whether the loop should
// stop. break is consumed here; return stays set for the caller.
func (ev *evaluator) runBody(body *ast.Block, f *frame) (bool, error) {
	f.breaking = false
	f.continuing = false
	if _, err := ev.evalBlock(body, f); err != nil {
		return true, err
	}
	if f.returning {
		return true, nil
	}
	if f.breaking {
		f.breaking = false
		return true, nil
	}
	f.continuing = false
	return false, nil
}

func (ev *evaluator) evalWhile(n *ast.WhileStmt, f *frame) (Value, error) {
	span := n.Span
	ev.emit(TraceLoopStart, &span, map[string]string{"kind": "while"})
	defer ev.emit(TraceLoopEnd, &span, nil)

	for {
		if err := ev.tickIteration(); err != nil {
			return nil, withSpan(err, span)
		}
		cond, err := ev.eval(n.Cond, f)
		if err != nil {
			return nil, err
		}
		if !Truthy(cond) {
			return NewNil(), nil
		}
		stop, err := ev.runBody(n.Body, f)
		if err != nil {
			return nil, err
		}
		if stop {
			return NewNil(), nil
		}
	}
}

// evalFor iterates over a snapshot of the list, so mutating the list in
// the body does not change the iteration.
func (ev *evaluator) evalFor(n *ast.ForStmt, f *frame) (Value, error) {
	iterable, err := ev.eval(n.Iterable, f)
	if err != nil {
		return nil, err
	}
	span := n.Span
	list, ok := iterable.(*List)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("for loop requires a list, got %s", TypeName(iterable)),
			Span:    &span,
		}
	}
	items := append([]Value(nil), list.Items...)

	ev.emit(TraceLoopStart, &span, map[string]string{"kind": "for", "var": n.Var})
	defer ev.emit(TraceLoopEnd, &span, nil)

	for _, item := range items {
		if err := ev.tickIteration(); err != nil {
			return nil, withSpan(err, span)
		}
		f.env.Set(n.Var, item)
		stop, err := ev.runBody(n.Body, f)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}
	return NewNil(), nil
}

func calleeName(n ast.Node) string {
	if id, ok := n.(*ast.Identifier); ok {
		return id.Name
	}
	return "<anonymous>"
}

func (ev *evaluator) evalCall(n *ast.CallExpr, f *frame) (Value, error) {
	callee, err := ev.eval(n.Callee, f)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(n.Args))
	for _, arg := range n.Args {
		val, err := ev.eval(arg, f)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	span := n.Span
	switch fn := callee.(type) {
	case *Function:
		return ev.callFunction(fn, args, calleeName(n.Callee), span)

	case Builtin:
		def, ok := ev.opts.Builtins[fn.Name]
		if !ok {
			return nil, &RuntimeError{
				Code:    diagnostics.EUnknownBuiltin,
				Message: fmt.Sprintf("unknown builtin: %s", fn.Name),
				Span:    &span,
			}
		}
		val, err := def.Execute(ev.host, args)
		if err != nil {
			if _, ok := err.(*RuntimeError); !ok {
				err = &RuntimeError{Code: diagnostics.EIO, Message: fmt.Sprintf("%s: %v", fn.Name, err)}
			}
			return nil, withSpan(err, span)
		}
		if val == nil {
			val = NewNil()
		}
		return val, nil

	default:
		return nil, &RuntimeError{
			Code:    diagnostics.ENotCallable,
			Message: fmt.Sprintf("cannot call %s", TypeName(callee)),
			Span:    &span,
		}
	}
}

// callFunction runs fn in a fresh frame whose environment is a child of
// the captured one. The result is the return value if one was set, else
// the value of the last statement.
func (ev *evaluator) callFunction(fn *Function, args []Value, name string, span ast.Span) (Value, error) {
	if len(args) != len(fn.Params) {
		return nil, &RuntimeError{
			Code:    diagnostics.EArity,
			Message: fmt.Sprintf("incorrect number of arguments: %s expects %d, got %d", name, len(fn.Params), len(args)),
			Span:    &span,
		}
	}
	if err := ev.enterCall(); err != nil {
		return nil, withSpan(err, span)
	}
	defer ev.leaveCall()

	env := fn.Env.Child()
	for i, param := range fn.Params {
		env.Declare(param, args[i])
	}

	ev.emit(TraceCallStart, &span, map[string]string{"fn": name})
	callFrame := &frame{env: env}
	val, err := ev.evalBlock(fn.Body, callFrame)
	ev.emit(TraceCallEnd, &span, map[string]string{"fn": name})
	if err != nil {
		return nil, err
	}
	if callFrame.returning {
		return callFrame.retVal, nil
	}
	return val, nil
}
