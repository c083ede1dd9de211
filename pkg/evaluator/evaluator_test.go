package evaluator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
	"github.com/thomasrohde/itmoscript/pkg/parser"
	"github.com/thomasrohde/itmoscript/pkg/stdlib"
)

// --- helpers ---

// defaultOpts returns ExecOptions with every builtin registered and output
// captured in out.
func defaultOpts(out *strings.Builder) evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Builtins: stdlib.Default().Builtins(),
		Stdin:    strings.NewReader(""),
		Stdout:   out,
		Seed:     1,
	}
}

// runWith parses and executes source, failing the test on parse errors.
func runWith(t *testing.T, src string, opts evaluator.ExecOptions) (*evaluator.ExecResult, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.its")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return evaluator.Execute(context.Background(), prog, opts)
}

// output runs source and returns everything it printed.
func output(t *testing.T, src string) string {
	t.Helper()
	var out strings.Builder
	if _, err := runWith(t, src, defaultOpts(&out)); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return out.String()
}

// expectOutput asserts that source prints exactly want.
func expectOutput(t *testing.T, src, want string) {
	t.Helper()
	if got := output(t, src); got != want {
		t.Errorf("output mismatch\n got: %q\nwant: %q", got, want)
	}
}

// runtimeError runs source and returns the runtime error it must raise.
func runtimeError(t *testing.T, src string) *evaluator.RuntimeError {
	t.Helper()
	var out strings.Builder
	_, err := runWith(t, src, defaultOpts(&out))
	if err == nil {
		t.Fatalf("expected runtime error, got output %q", out.String())
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	return rtErr
}

// --- programs ---

func TestMaxFunction(t *testing.T) {
	src := `
max = function(arr)
    if len(arr) == 0 then
        return nil
    end if
    m = arr[0]
    for i in arr
        if i > m then m = i end if
    end for
    return m
end function
print(max([10, -1, 0, 2, 2025, 239]))`
	expectOutput(t, src, "2025")
}

func TestIncrementCall(t *testing.T) {
	src := `
incr = function(value)
    return value + 1
end function
x = incr(2)
print(x)`
	expectOutput(t, src, "3")
}

func TestFibonacciLoop(t *testing.T) {
	src := `
fib = function(n)
    if n == 0 then return 0 end if
    a = 0
    b = 1
    for i in range(n - 1)
        c = a + b
        a = b
        b = c
    end for
    return b
end function
print(fib(10))`
	expectOutput(t, src, "55")
}

func TestRecursion(t *testing.T) {
	src := `
fact = function(n)
    if n <= 1 then return 1 end if
    return n * fact(n - 1)
end function
println(fact(10))`
	expectOutput(t, src, "3628800\n")
}

func TestFizzBuzz(t *testing.T) {
	src := `
fizzBuzz = function(n)
    for i in range(1, n)
        s = i
        if i % 15 == 0 then
            s = "FizzBuzz"
        else if i % 3 == 0 then
            s = "Fizz"
        else if i % 5 == 0 then
            s = "Buzz"
        end if
        print(s)
    end for
end function
fizzBuzz(10)`
	expectOutput(t, src, "12Fizz4BuzzFizz78Fizz")
}

func TestListAliasing(t *testing.T) {
	src := `
a = [1, 2, 3]
b = a
b[0]
push(b, 9)
println(a[-1])
println(len(a) * 3)
mutate = function(xs)
    xs[0]
    push(xs, 100)
end function
mutate(a)
println(a[-1])
println(b[-1])`
	expectOutput(t, src, "9\n12\n100\n100\n")
}

func TestSlicing(t *testing.T) {
	src := `
s = "ITMO239"
println(s[:])
println(s[-1])
println(s[0])
println(s[4:])
println(s[:-3])
println(s[2:100])
println(s[5:2])
xs = [1, 2, 3, 4]
println(xs[1:3])
println(xs[-2:])`
	expectOutput(t, src, "ITMO239\n9\nI\n239\nITMO\nMO239\n\n[2, 3]\n[3, 4]\n")
}

func TestSliceIsCopy(t *testing.T) {
	src := `
a = [1, 2, 3]
b = a[:]
push(b, 4)
println(len(a))
println(len(b))`
	expectOutput(t, src, "3\n4\n")
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"2 ^ 2 ^ 2", "16"},
		{"2 ^ 3 ^ 2", "512"},
		{"-2 ^ 2", "4"},
		{"10 / 4", "2.500000"},
		{"10 % 3", "1"},
		{"-7 % 3", "-1"},
		{"1 / 0", "nil"},
		{"0 / 0", "nil"},
		{"5 % 0", "nan"},
		{"-5 % 0", "nan"},
		{"1e3 + 1", "1001"},
		{"+5", "5"},
		{"3 * true", "3"},
		{"3 * false", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expectOutput(t, "print("+tt.expr+")", tt.want)
		})
	}
}

func TestStringOperators(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{`"ab" + "cd"`, "abcd"},
		{`"hello.txt" - ".txt"`, "hello"},
		{`"hello" - "xyz"`, "hello"},
		{`"ab" * 3`, "ababab"},
		{`"ab" * 2.1`, "ababab"},
		{`"ab" * 0`, ""},
		{`"ab" * -1`, ""},
		{`"ab" * true`, "ab"},
		{`"abc" < "abd"`, "true"},
		{`"b" >= "a"`, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expectOutput(t, "print("+tt.expr+")", tt.want)
		})
	}
}

func TestListConcat(t *testing.T) {
	src := `
a = [1]
b = [2, 3]
c = a + b
push(a, 9)
println(c)
println(a)`
	expectOutput(t, src, "[1, 2, 3]\n[1, 9]\n")
}

func TestComparisonAndLogic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 < 2", "true"},
		{"2 <= 1", "false"},
		{"1 == 1", "true"},
		{`1 == "1"`, "false"},
		{"nil == nil", "true"},
		{"[1, [2]] == [1, [2]]", "true"},
		{"[1] != [2]", "true"},
		{"true == 1", "true"},
		{"1 and 0", "false"},
		{`"" or [1]`, "true"},
		{"not nil", "true"},
		{"!1", "false"},
		{"len == len", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expectOutput(t, "print("+tt.expr+")", tt.want)
		})
	}
}

func TestLogicEvaluatesBothSides(t *testing.T) {
	src := `
calls = []
mark = function(v)
    push(calls, v)
    return v
end function
x = mark(0) and mark(1)
y = mark(1) or mark(0)
println(len(calls))`
	expectOutput(t, src, "4\n")
}

func TestTruthyConditions(t *testing.T) {
	src := `
if "" then println("a") else println("b") end if
if [0] then println("c") end if
n = 3
while n
    n -= 1
end while
println(n)`
	expectOutput(t, src, "b\nc\n0\n")
}

func TestCompoundAssignment(t *testing.T) {
	src := `
x = 10
x += 5
x -= 3
x *= 2
x /= 4
x ^= 2
x %= 7
println(x)
s = "ab"
s *= 2
println(s)`
	expectOutput(t, src, "1\nabab\n")
}

func TestBreakContinue(t *testing.T) {
	src := `
for i in range(10)
    if i == 5 then break end if
    if i % 2 == 0 then continue end if
    print(i)
end for
n = 0
while 1
    n += 1
    if n < 3 then continue end if
    break
end while
println("")
println(n)`
	expectOutput(t, src, "13\n3\n")
}

func TestNestedLoopBreak(t *testing.T) {
	src := `
for i in [1, 2]
    for j in [1, 2, 3]
        if j == 2 then break end if
        print(i * 10 + j)
    end for
end for`
	expectOutput(t, src, "1121")
}

func TestReturnFromLoop(t *testing.T) {
	src := `
find = function(xs, v)
    i = 0
    for x in xs
        if x == v then return i end if
        i += 1
    end for
    return -1
end function
println(find([5, 6, 7], 7))
println(find([5, 6, 7], 8))`
	expectOutput(t, src, "2\n-1\n")
}

func TestSignalsDoNotLeakAcrossCalls(t *testing.T) {
	src := `
f = function()
    break
end function
for i in [1, 2, 3]
    f()
    print(i)
end for`
	expectOutput(t, src, "123")
}

func TestForIteratesSnapshot(t *testing.T) {
	src := `
xs = [1, 2]
for x in xs
    push(xs, x)
end for
println(xs)
println(x)`
	expectOutput(t, src, "[1, 2, 1, 2]\n2\n")
}

func TestLastStatementValue(t *testing.T) {
	src := `
f = function(a)
    a * 2
end function
g = function()
end function
println(f(21))
println(g())`
	expectOutput(t, src, "42\nnil\n")
}

func TestBareReturn(t *testing.T) {
	src := `
f = function()
    return
    println("unreachable")
end function
println(f())`
	expectOutput(t, src, "nil\n")
}

func TestScoping(t *testing.T) {
	src := `
x = 1
setX = function(v)
    x = v
end function
setX(5)
println(x)
local = function()
    y = 10
    return y
end function
local()
println(y == nil)`
	// y is never bound globally, so reading it is an error.
	var out strings.Builder
	_, err := runWith(t, src, defaultOpts(&out))
	if out.String() != "5\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EUnbound {
		t.Errorf("expected %s, got %v", diagnostics.EUnbound, err)
	}
}

func TestParametersShadowGlobals(t *testing.T) {
	src := `
n = 100
f = function(n)
    n = n + 1
    return n
end function
println(f(1))
println(n)`
	expectOutput(t, src, "2\n100\n")
}

func TestClosures(t *testing.T) {
	src := `
adder = function(n)
    return function(m)
        return n + m
    end function
end function
add2 = adder(2)
add5 = adder(5)
println(add2(1))
println(add5(1))
println(adder(10)(1))`
	expectOutput(t, src, "3\n6\n11\n")
}

func TestFunctionsAreValues(t *testing.T) {
	src := `
apply = function(f, x)
    return f(x)
end function
println(apply(abs, -3))
println(apply(function(v) return v * v end function, 4))
fs = [len, upper]
println(fs[1]("hi"))
println(apply)`
	expectOutput(t, src, "3\n16\nHI\n<function>\n")
}

func TestBuiltinShadowing(t *testing.T) {
	src := `
len = function(x) return 42 end function
println(len([1]))`
	expectOutput(t, src, "42\n")
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		line int
	}{
		{"undefined variable", "x = 1\nprint(y)", diagnostics.EUnbound, 2},
		{"bad operands", `x = 1 + "a"`, diagnostics.EType, 1},
		{"bad comparison", `x = 1 < "a"`, diagnostics.EType, 1},
		{"negate string", `x = -"a"`, diagnostics.EType, 1},
		{"list minus", "x = [1] - [1]", diagnostics.EType, 1},
		{"number times string", `x = 2 * "a"`, diagnostics.EType, 1},
		{"arity", "f = function(a) return a end function\nf(1, 2)", diagnostics.EArity, 2},
		{"not callable", "x = 5\nx()", diagnostics.ENotCallable, 2},
		{"index out of range", "xs = [1]\nx = xs[1]", diagnostics.EIndex, 2},
		{"negative index out of range", `x = "ab"[-3]`, diagnostics.EIndex, 1},
		{"index non-number", `x = [1]["a"]`, diagnostics.EType, 1},
		{"index number", "x = 5[0]", diagnostics.EType, 1},
		{"for over number", "for i in 5 end for", diagnostics.EType, 1},
		{"range zero step", "x = range(0, 5, 0)", diagnostics.ERange, 1},
		{"range arity", "x = range()", diagnostics.EArity, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runtimeError(t, tt.src)
			if err.Code != tt.code {
				t.Errorf("expected %s, got %s (%s)", tt.code, err.Code, err.Message)
			}
			if err.Span == nil || err.Span.Line != tt.line {
				t.Errorf("expected line %d, got %+v", tt.line, err.Span)
			}
		})
	}
}

func TestErrorAbortsRun(t *testing.T) {
	var out strings.Builder
	_, err := runWith(t, "println(1)\nx = y\nprintln(2)", defaultOpts(&out))
	if err == nil {
		t.Fatal("expected error")
	}
	if out.String() != "1\n" {
		t.Errorf("execution should stop at the error, got %q", out.String())
	}
}

func TestUnknownBuiltin(t *testing.T) {
	opts := defaultOpts(&strings.Builder{})
	prog, _ := parser.Parse("f = len\nf([1])", "test.its")
	sess := evaluator.NewSession(opts)
	delete(opts.Builtins, "len")
	_, err := sess.Run(context.Background(), prog)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EUnknownBuiltin {
		t.Errorf("expected %s, got %v", diagnostics.EUnknownBuiltin, err)
	}
}

func TestReadBuiltin(t *testing.T) {
	var out strings.Builder
	opts := defaultOpts(&out)
	opts.Stdin = strings.NewReader("3\n4\n")
	src := `
a = parse_num(read())
b = parse_num(read())
println(a + b)
println(read())`
	if _, err := runWith(t, src, opts); err != nil {
		t.Fatal(err)
	}
	if out.String() != "7\nnil\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestResultValue(t *testing.T) {
	res, err := runWith(t, "x = 2\nx * 21", defaultOpts(&strings.Builder{}))
	if err != nil {
		t.Fatal(err)
	}
	if evaluator.Format(res.Value) != "42" {
		t.Errorf("expected 42, got %s", evaluator.Format(res.Value))
	}
}

func TestSessionKeepsGlobals(t *testing.T) {
	var out strings.Builder
	sess := evaluator.NewSession(defaultOpts(&out))
	for _, src := range []string{"x = 20", "f = function() return x + 1 end function", "println(f() * 2)"} {
		prog, diags := parser.Parse(src, "repl")
		if len(diags) > 0 {
			t.Fatalf("parse error: %v", diags)
		}
		if _, err := sess.Run(context.Background(), prog); err != nil {
			t.Fatal(err)
		}
	}
	if out.String() != "42\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if _, ok := sess.Globals().Get("x"); !ok {
		t.Error("x should remain bound")
	}
}

// --- budget ---

func TestIterationBudget(t *testing.T) {
	opts := defaultOpts(&strings.Builder{})
	opts.Budget = evaluator.Budget{MaxIterations: 100}
	_, err := runWith(t, "while 1 end while", opts)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EBudget {
		t.Fatalf("expected %s, got %v", diagnostics.EBudget, err)
	}
	if !strings.Contains(rtErr.Message, "iteration") {
		t.Errorf("unexpected message %q", rtErr.Message)
	}
}

func TestCallDepthBudget(t *testing.T) {
	opts := defaultOpts(&strings.Builder{})
	opts.Budget = evaluator.Budget{MaxCallDepth: 50}
	src := `
f = function(n) return f(n + 1) end function
f(0)`
	_, err := runWith(t, src, opts)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EBudget {
		t.Fatalf("expected %s, got %v", diagnostics.EBudget, err)
	}

	// Depth is released on return, so sequential calls do not accumulate.
	res, err := runWith(t, "g = function() return 1 end function\nfor i in range(200) g() end for", opts)
	if err != nil || res == nil {
		t.Fatalf("sequential calls should stay within depth: %v", err)
	}
}

func TestTimeBudget(t *testing.T) {
	opts := defaultOpts(&strings.Builder{})
	opts.Budget = evaluator.Budget{TimeMs: 20}
	start := time.Now()
	_, err := runWith(t, "while 1 end while", opts)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EBudget {
		t.Fatalf("expected %s, got %v", diagnostics.EBudget, err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("time budget was not enforced promptly")
	}
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog, _ := parser.Parse("while 1 end while", "test.its")
	_, err := evaluator.Execute(ctx, prog, defaultOpts(&strings.Builder{}))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

// --- trace ---

func TestTraceEvents(t *testing.T) {
	var events []evaluator.TraceEvent
	opts := defaultOpts(&strings.Builder{})
	opts.RunID = "run-1"
	opts.Trace = func(ev evaluator.TraceEvent) { events = append(events, ev) }
	src := `
f = function(x) return x end function
for i in [1, 2]
    f(i)
end for`
	if _, err := runWith(t, src, opts); err != nil {
		t.Fatal(err)
	}

	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, string(ev.Event))
		if ev.RunID != "run-1" {
			t.Errorf("event %s missing run id", ev.Event)
		}
	}
	want := "run_start loop_start call_start call_end call_start call_end loop_end run_end"
	if got := strings.Join(kinds, " "); got != want {
		t.Errorf("unexpected trace\n got: %s\nwant: %s", got, want)
	}
	if events[2].Data["fn"] != "f" {
		t.Errorf("call event should name the function, got %v", events[2].Data)
	}
}
