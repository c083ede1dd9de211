// Package evaluator implements the ITMOScript runtime evaluator.
package evaluator

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/ast"
)

// Value is the interface for all ITMOScript runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Nil represents the absence of a value.
type Nil struct{}

func (Nil) value() {}

// Bool is produced by comparisons and logical operators. The literals
// true and false are numbers.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Number represents a numeric value.
type Number struct {
	Value float64
}

func (Number) value() {}

// Str represents a string value.
type Str struct {
	Value string
}

func (Str) value() {}

// List is shared by reference: every copy observes mutation.
type List struct {
	Items []Value
}

func (*List) value() {}

// Function is a user function with the environment captured when its
// literal was evaluated.
type Function struct {
	Params []string
	Body   *ast.Block
	Env    *Env
}

func (*Function) value() {}

// Builtin refers to a registered native function by name.
type Builtin struct {
	Name string
}

func (Builtin) value() {}

// NewNil creates a nil value.
func NewNil() Value {
	return Nil{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return Str{Value: s}
}

// NewList creates a list value that owns items.
func NewList(items []Value) *List {
	if items == nil {
		items = []Value{}
	}
	return &List{Items: items}
}

// Truthy returns the boolean interpretation of a value.
// nil, false, 0, "" and [] are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Nil:
		return false
	case Bool:
		return val.Value
	case Number:
		return val.Value != 0
	case Str:
		return val.Value != ""
	case *List:
		return len(val.Items) > 0
	case nil:
		return false
	default:
		return true
	}
}

// FormatNumber renders integral numbers without a fraction and everything
// else with six decimals.
func FormatNumber(d float64) string {
	switch {
	case math.IsNaN(d):
		return "nan"
	case math.IsInf(d, 1):
		return "inf"
	case math.IsInf(d, -1):
		return "-inf"
	}
	if d == math.Trunc(d) {
		if d == 0 {
			return "0"
		}
		if d >= math.MinInt64 && d < math.MaxInt64 {
			return strconv.FormatInt(int64(d), 10)
		}
		return strconv.FormatFloat(d, 'f', 0, 64)
	}
	return strconv.FormatFloat(d, 'f', 6, 64)
}

// Format returns the textual form used by print, join and to_string.
func Format(v Value) string {
	var b strings.Builder
	writeValue(&b, v, nil)
	return b.String()
}

// writeValue renders v. active holds the lists currently being written, so
// a list that contains itself prints the inner occurrence as [...].
func writeValue(b *strings.Builder, v Value, active map[*List]bool) {
	switch val := v.(type) {
	case Number:
		b.WriteString(FormatNumber(val.Value))
	case Str:
		b.WriteString(val.Value)
	case Bool:
		if val.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *List:
		if active[val] {
			b.WriteString("[...]")
			return
		}
		if active == nil {
			active = make(map[*List]bool)
		}
		active[val] = true
		b.WriteByte('[')
		for i, item := range val.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item, active)
		}
		b.WriteByte(']')
		delete(active, val)
	case *Function:
		b.WriteString("<function>")
	case Builtin:
		b.WriteString("<builtin>")
	default:
		b.WriteString("nil")
	}
}

// TypeName returns the type name used in error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case Str:
		return "string"
	case *List:
		return "list"
	case *Function:
		return "function"
	case Builtin:
		return "builtin"
	default:
		return "unknown"
	}
}

// DeepEqual compares two values. Lists compare element-wise, functions by
// identity, builtins by name. Values of different types are never equal.
func DeepEqual(a, b Value) bool {
	return deepEqual(a, b, nil)
}

type listPair struct{ a, b *List }

// deepEqual treats a pair of lists already under comparison as equal, which
// terminates on self-referencing lists.
func deepEqual(a, b Value, active map[listPair]bool) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok

	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value

	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value

	case Str:
		bv, ok := b.(Str)
		return ok && av.Value == bv.Value

	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		if av == bv {
			return true
		}
		pair := listPair{av, bv}
		if active[pair] {
			return true
		}
		if active == nil {
			active = make(map[listPair]bool)
		}
		active[pair] = true
		defer delete(active, pair)
		for i := range av.Items {
			if !deepEqual(av.Items[i], bv.Items[i], active) {
				return false
			}
		}
		return true

	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv

	case Builtin:
		bv, ok := b.(Builtin)
		return ok && av.Name == bv.Name
	}

	return false
}
