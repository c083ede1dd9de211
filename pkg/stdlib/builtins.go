package stdlib

import (
	"math"

	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// RegisterDefaults adds all builtin functions.
func RegisterDefaults(r *Registry) {
	// Math
	r.Register(Fn{Name: "abs", Execute: numberFn(math.Abs)})
	r.Register(Fn{Name: "ceil", Execute: numberFn(math.Ceil)})
	r.Register(Fn{Name: "floor", Execute: numberFn(math.Floor)})
	r.Register(Fn{Name: "round", Execute: numberFn(math.Round)})
	r.Register(Fn{Name: "sqrt", Execute: stdlibSqrt})
	r.Register(Fn{Name: "rnd", Execute: stdlibRnd})
	r.Register(Fn{Name: "parse_num", Execute: stdlibParseNum})
	r.Register(Fn{Name: "to_string", Execute: stdlibToString})

	// String ops
	r.Register(Fn{Name: "len", Execute: stdlibLen})
	r.Register(Fn{Name: "lower", Execute: stdlibLower})
	r.Register(Fn{Name: "upper", Execute: stdlibUpper})
	r.Register(Fn{Name: "split", Execute: stdlibSplit})
	r.Register(Fn{Name: "join", Execute: stdlibJoin})
	r.Register(Fn{Name: "replace", Execute: stdlibReplace})

	// List ops
	r.Register(Fn{Name: "push", Execute: stdlibPush})
	r.Register(Fn{Name: "pop", Execute: stdlibPop})
	r.Register(Fn{Name: "insert", Execute: stdlibInsert})
	r.Register(Fn{Name: "remove", Execute: stdlibRemove})
	r.Register(Fn{Name: "sort", Execute: stdlibSort})
	r.Register(Fn{Name: "range", Execute: stdlibRange})

	// Input
	r.Register(Fn{Name: "read", Execute: stdlibRead})
}

var nilValue = evaluator.NewNil()

// argNumber returns args[i] as a float when it is a number.
func argNumber(args []evaluator.Value, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	num, ok := args[i].(evaluator.Number)
	return num.Value, ok
}

func argString(args []evaluator.Value, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(evaluator.Str)
	return s.Value, ok
}

func argList(args []evaluator.Value, i int) (*evaluator.List, bool) {
	if i >= len(args) {
		return nil, false
	}
	l, ok := args[i].(*evaluator.List)
	return l, ok
}

// listIndex truncates a numeric index and resolves negative values
// against n. The result may still be out of range.
func listIndex(x float64, n int) (int, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	idx := math.Trunc(x)
	if idx < 0 {
		idx += float64(n)
	}
	if idx < 0 || idx > float64(n) {
		return 0, false
	}
	return int(idx), true
}
