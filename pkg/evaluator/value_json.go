package evaluator

import (
	"encoding/json"
	"math"
)

// ValueToJSON marshals a value to JSON bytes. Integral numbers are written
// without a decimal point; functions and builtins become their textual form.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v, map[*List]bool{}))
}

func valueToRaw(v Value, seen map[*List]bool) any {
	switch val := v.(type) {
	case Bool:
		return val.Value

	case Number:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return FormatNumber(val.Value)
		}
		if val.Value == math.Trunc(val.Value) && val.Value >= math.MinInt64 && val.Value < math.MaxInt64 {
			return int64(val.Value)
		}
		return val.Value

	case Str:
		return val.Value

	case *List:
		// A list that contains itself is cut at the repeat.
		if seen[val] {
			return nil
		}
		seen[val] = true
		defer delete(seen, val)
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = valueToRaw(item, seen)
		}
		return items

	case *Function, Builtin:
		return Format(val)
	}

	return nil
}
