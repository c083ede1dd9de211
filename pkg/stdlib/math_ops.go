package stdlib

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// numberFn wraps a float function as a one-argument builtin.
func numberFn(f func(float64) float64) func(*evaluator.Host, []evaluator.Value) (evaluator.Value, error) {
	return func(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
		x, ok := argNumber(args, 0)
		if len(args) != 1 || !ok {
			return nilValue, nil
		}
		return evaluator.NewNumber(f(x)), nil
	}
}

// sqrt(x) → number, nil when x is negative
func stdlibSqrt(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	x, ok := argNumber(args, 0)
	if len(args) != 1 || !ok || x < 0 {
		return nilValue, nil
	}
	return evaluator.NewNumber(math.Sqrt(x)), nil
}

// rnd(n) → integer in [0, n), nil when n < 1
func stdlibRnd(h *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	x, ok := argNumber(args, 0)
	if len(args) != 1 || !ok {
		return nilValue, nil
	}
	n := math.Trunc(x)
	if !(n >= 1) {
		return nilValue, nil
	}
	if n > math.MaxInt64/2 {
		n = math.MaxInt64 / 2
	}
	return evaluator.NewNumber(float64(h.Rand.Int63n(int64(n)))), nil
}

// parse_num(str) → number, nil unless the whole string is a number.
// Leading whitespace is allowed.
func stdlibParseNum(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := argString(args, 0)
	if len(args) != 1 || !ok {
		return nilValue, nil
	}
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	if strings.Contains(s, "_") {
		return nilValue, nil
	}
	if isHexLiteral(s) && !strings.ContainsAny(s, "pP") {
		s += "p0"
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out-of-range literals still parse to ±Inf or 0.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return nilValue, nil
		}
	}
	return evaluator.NewNumber(x), nil
}

// isHexLiteral reports whether s starts with an optionally signed 0x prefix.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// to_string(number) → string in the same form print uses
func stdlibToString(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	x, ok := argNumber(args, 0)
	if len(args) != 1 || !ok {
		return nilValue, nil
	}
	return evaluator.NewString(evaluator.FormatNumber(x)), nil
}
