package stdlib

import (
	"bufio"
	"math/rand"
	"strings"
	"testing"

	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// --- helpers ---

func num(x float64) evaluator.Value { return evaluator.NewNumber(x) }
func str(s string) evaluator.Value  { return evaluator.NewString(s) }

func list(items ...evaluator.Value) *evaluator.List {
	return evaluator.NewList(items)
}

func testHost(input string) *evaluator.Host {
	return &evaluator.Host{
		In:   bufio.NewReader(strings.NewReader(input)),
		Out:  &strings.Builder{},
		Rand: rand.New(rand.NewSource(1)),
	}
}

// call invokes a registered builtin and fails the test on a hard error.
func call(t *testing.T, name string, args ...evaluator.Value) evaluator.Value {
	t.Helper()
	return callWith(t, testHost(""), name, args...)
}

func callWith(t *testing.T, h *evaluator.Host, name string, args ...evaluator.Value) evaluator.Value {
	t.Helper()
	fn := Default().Get(name)
	if fn == nil {
		t.Fatalf("builtin %q not registered", name)
	}
	val, err := fn.Execute(h, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return val
}

func expectText(t *testing.T, val evaluator.Value, want string) {
	t.Helper()
	if got := evaluator.Format(val); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func expectNil(t *testing.T, val evaluator.Value) {
	t.Helper()
	if _, ok := val.(evaluator.Nil); !ok {
		t.Errorf("expected nil, got %s %s", evaluator.TypeName(val), evaluator.Format(val))
	}
}

// --- registry ---

func TestRegistryNames(t *testing.T) {
	want := []string{
		"abs", "ceil", "floor", "insert", "join", "len", "lower", "parse_num",
		"pop", "push", "range", "read", "remove", "replace", "rnd", "round",
		"sort", "split", "sqrt", "to_string", "upper",
	}
	got := Default().Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected builtins:\n got %v\nwant %v", got, want)
	}
}

func TestRegistryBuiltins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Fn{Name: "one", Execute: func(*evaluator.Host, []evaluator.Value) (evaluator.Value, error) {
		return num(1), nil
	}})
	fns := reg.Builtins()
	if len(fns) != 1 || fns["one"].Name != "one" {
		t.Fatalf("unexpected builtins map: %v", fns)
	}
	if reg.Get("missing") != nil {
		t.Error("expected nil for unregistered name")
	}
}

// --- math ---

func TestMath(t *testing.T) {
	tests := []struct {
		name string
		args []evaluator.Value
		want string
	}{
		{"abs", []evaluator.Value{num(-3)}, "3"},
		{"ceil", []evaluator.Value{num(1.2)}, "2"},
		{"floor", []evaluator.Value{num(-1.2)}, "-2"},
		{"round", []evaluator.Value{num(2.5)}, "3"},
		{"round", []evaluator.Value{num(-2.5)}, "-3"},
		{"sqrt", []evaluator.Value{num(16)}, "4"},
		{"to_string", []evaluator.Value{num(42)}, "42"},
		{"to_string", []evaluator.Value{num(3.14)}, "3.140000"},
		{"parse_num", []evaluator.Value{str("12.5")}, "12.500000"},
		{"parse_num", []evaluator.Value{str("  7")}, "7"},
		{"parse_num", []evaluator.Value{str("1e3")}, "1000"},
		{"parse_num", []evaluator.Value{str("0x10")}, "16"},
		{"parse_num", []evaluator.Value{str("-0X1f")}, "-31"},
		{"parse_num", []evaluator.Value{str("0x1.8p1")}, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectText(t, call(t, tt.name, tt.args...), tt.want)
		})
	}
}

func TestMathSoftFailures(t *testing.T) {
	tests := []struct {
		name string
		args []evaluator.Value
	}{
		{"abs", nil},
		{"abs", []evaluator.Value{str("x")}},
		{"ceil", []evaluator.Value{num(1), num(2)}},
		{"sqrt", []evaluator.Value{num(-1)}},
		{"rnd", []evaluator.Value{num(0)}},
		{"rnd", []evaluator.Value{num(-5)}},
		{"rnd", []evaluator.Value{str("5")}},
		{"parse_num", []evaluator.Value{str("12abc")}},
		{"parse_num", []evaluator.Value{str("")}},
		{"parse_num", []evaluator.Value{str("7 ")}},
		{"parse_num", []evaluator.Value{str("0x")}},
		{"parse_num", []evaluator.Value{str("0x1_0")}},
		{"parse_num", []evaluator.Value{str("1_000")}},
		{"parse_num", []evaluator.Value{num(7)}},
		{"to_string", []evaluator.Value{str("7")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectNil(t, call(t, tt.name, tt.args...))
		})
	}
}

func TestRnd(t *testing.T) {
	h := testHost("")
	for i := 0; i < 100; i++ {
		v, ok := callWith(t, h, "rnd", num(6)).(evaluator.Number)
		if !ok {
			t.Fatal("expected number")
		}
		if v.Value < 0 || v.Value >= 6 || v.Value != float64(int(v.Value)) {
			t.Fatalf("rnd(6) out of range: %v", v.Value)
		}
	}
}

func TestRndSeeded(t *testing.T) {
	a := callWith(t, testHost(""), "rnd", num(1000))
	b := callWith(t, testHost(""), "rnd", num(1000))
	if !evaluator.DeepEqual(a, b) {
		t.Errorf("same seed should give same value: %s vs %s", evaluator.Format(a), evaluator.Format(b))
	}
}

// --- strings ---

func TestStrings(t *testing.T) {
	tests := []struct {
		name string
		args []evaluator.Value
		want string
	}{
		{"len", []evaluator.Value{str("ITMO")}, "4"},
		{"len", []evaluator.Value{list(num(1), num(2))}, "2"},
		{"lower", []evaluator.Value{str("ItMo")}, "itmo"},
		{"upper", []evaluator.Value{str("ItMo")}, "ITMO"},
		{"split", []evaluator.Value{str("a,b,,c"), str(",")}, "[a, b, , c]"},
		{"split", []evaluator.Value{str("a--b"), str("--")}, "[a, b]"},
		{"split", []evaluator.Value{str("abc"), str("")}, "[a, b, c]"},
		{"join", []evaluator.Value{list(num(1), str("x"), num(2.5)), str("-")}, "1-x-2.500000"},
		{"join", []evaluator.Value{list(), str("-")}, ""},
		{"replace", []evaluator.Value{str("a.b.c"), str("."), str("::")}, "a::b::c"},
		{"replace", []evaluator.Value{str("abc"), str(""), str("x")}, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectText(t, call(t, tt.name, tt.args...), tt.want)
		})
	}
}

func TestStringSoftFailures(t *testing.T) {
	expectNil(t, call(t, "len", num(3)))
	expectNil(t, call(t, "len"))
	expectNil(t, call(t, "lower", num(1)))
	expectNil(t, call(t, "split", str("a")))
	expectNil(t, call(t, "join", str("ab"), str("")))
	expectNil(t, call(t, "replace", str("a"), str("b")))
}

// --- lists ---

func TestPushPop(t *testing.T) {
	xs := list(num(1))
	expectNil(t, call(t, "push", xs, num(2)))
	expectText(t, xs, "[1, 2]")

	expectText(t, call(t, "pop", xs), "2")
	expectText(t, call(t, "pop", xs), "1")
	expectNil(t, call(t, "pop", xs))
	expectText(t, xs, "[]")
}

func TestInsert(t *testing.T) {
	tests := []struct {
		idx  float64
		want string
	}{
		{0, "[x, a, b, c]"},
		{1, "[a, x, b, c]"},
		{3, "[a, b, c, x]"},
		{-1, "[a, b, x, c]"},
		{-3, "[x, a, b, c]"},
	}

	for _, tt := range tests {
		xs := list(str("a"), str("b"), str("c"))
		res := call(t, "insert", xs, num(tt.idx), str("x"))
		if res != evaluator.Value(xs) {
			t.Errorf("insert(%v) should return the same list", tt.idx)
		}
		expectText(t, xs, tt.want)
	}

	xs := list(str("a"))
	expectNil(t, call(t, "insert", xs, num(5), str("x")))
	expectNil(t, call(t, "insert", xs, num(-5), str("x")))
	expectText(t, xs, "[a]")
}

func TestRemove(t *testing.T) {
	xs := list(str("a"), str("b"), str("c"), str("d"))
	expectText(t, call(t, "remove", xs, num(1)), "b")
	expectText(t, call(t, "remove", xs, num(-1)), "d")
	expectText(t, xs, "[a, c]")
	expectNil(t, call(t, "remove", xs, num(2)))
	expectNil(t, call(t, "remove", xs, num(-3)))
	expectText(t, xs, "[a, c]")
}

func TestSortByTextualForm(t *testing.T) {
	xs := list(num(10), num(9), num(1), str("b"), str("a"))
	res := call(t, "sort", xs)
	expectText(t, xs, "[1, 10, 9, a, b]")
	if res != evaluator.Value(xs) {
		t.Error("sort should return the list it sorted")
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		args []evaluator.Value
		want string
	}{
		{[]evaluator.Value{num(5)}, "[0, 1, 2, 3, 4]"},
		{[]evaluator.Value{num(2), num(5)}, "[2, 3, 4]"},
		{[]evaluator.Value{num(0), num(10), num(3)}, "[0, 3, 6, 9]"},
		{[]evaluator.Value{num(5), num(0), num(-2)}, "[5, 3, 1]"},
		{[]evaluator.Value{num(5), num(0)}, "[]"},
		{[]evaluator.Value{num(0), num(1), num(0.5)}, "[0, 0.500000]"},
	}

	for _, tt := range tests {
		t.Run(evaluator.Format(list(tt.args...)), func(t *testing.T) {
			expectText(t, call(t, "range", tt.args...), tt.want)
		})
	}
}

func TestRangeErrors(t *testing.T) {
	fn := Default().Get("range")

	_, err := fn.Execute(testHost(""), []evaluator.Value{num(0), num(5), num(0)})
	rtErr, ok := err.(*evaluator.RuntimeError)
	if !ok || rtErr.Code != diagnostics.ERange {
		t.Errorf("zero step: expected %s, got %v", diagnostics.ERange, err)
	}

	_, err = fn.Execute(testHost(""), nil)
	rtErr, ok = err.(*evaluator.RuntimeError)
	if !ok || rtErr.Code != diagnostics.EArity {
		t.Errorf("no args: expected %s, got %v", diagnostics.EArity, err)
	}

	val, err := fn.Execute(testHost(""), []evaluator.Value{str("5")})
	if err != nil {
		t.Fatalf("non-number: unexpected error %v", err)
	}
	expectNil(t, val)
}

// --- input ---

func TestRead(t *testing.T) {
	h := testHost("first\r\nsecond\nlast")
	expectText(t, callWith(t, h, "read"), "first")
	expectText(t, callWith(t, h, "read"), "second")
	expectText(t, callWith(t, h, "read"), "last")
	expectNil(t, callWith(t, h, "read"))
	expectNil(t, callWith(t, h, "read"))
}

func TestReadEmptyLine(t *testing.T) {
	h := testHost("\n")
	v, ok := callWith(t, h, "read").(evaluator.Str)
	if !ok || v.Value != "" {
		t.Errorf("expected empty string, got %v", v)
	}
	expectNil(t, callWith(t, h, "read"))
}
