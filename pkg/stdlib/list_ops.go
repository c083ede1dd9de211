package stdlib

import (
	"fmt"
	"math"
	"sort"

	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// maxRangeLen bounds the list range may build.
const maxRangeLen = 1 << 26

// push(list, v) → nil; appends in place
func stdlibPush(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	list, ok := argList(args, 0)
	if len(args) != 2 || !ok {
		return nilValue, nil
	}
	list.Items = append(list.Items, args[1])
	return nilValue, nil
}

// pop(list) → last element, nil when empty
func stdlibPop(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	list, ok := argList(args, 0)
	if len(args) != 1 || !ok || len(list.Items) == 0 {
		return nilValue, nil
	}
	last := list.Items[len(list.Items)-1]
	list.Items = list.Items[:len(list.Items)-1]
	return last, nil
}

// insert(list, idx, v) → list; idx may be negative and may equal len
func stdlibInsert(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	list, ok1 := argList(args, 0)
	x, ok2 := argNumber(args, 1)
	if len(args) != 3 || !ok1 || !ok2 {
		return nilValue, nil
	}
	idx, ok := listIndex(x, len(list.Items))
	if !ok {
		return nilValue, nil
	}
	list.Items = append(list.Items, nil)
	copy(list.Items[idx+1:], list.Items[idx:])
	list.Items[idx] = args[2]
	return list, nil
}

// remove(list, idx) → removed element, nil when idx is out of range
func stdlibRemove(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	list, ok1 := argList(args, 0)
	x, ok2 := argNumber(args, 1)
	if len(args) != 2 || !ok1 || !ok2 {
		return nilValue, nil
	}
	idx, ok := listIndex(x, len(list.Items))
	if !ok || idx == len(list.Items) {
		return nilValue, nil
	}
	removed := list.Items[idx]
	list.Items = append(list.Items[:idx], list.Items[idx+1:]...)
	return removed, nil
}

// sort(list) → list, sorted in place by textual form
func stdlibSort(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	list, ok := argList(args, 0)
	if len(args) != 1 || !ok {
		return nilValue, nil
	}
	type keyed struct {
		key string
		val evaluator.Value
	}
	entries := make([]keyed, len(list.Items))
	for i, item := range list.Items {
		entries[i] = keyed{key: evaluator.Format(item), val: item}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})
	for i, e := range entries {
		list.Items[i] = e.val
	}
	return list, nil
}

// range(end) | range(start, end) | range(start, end, step) → list
func stdlibRange(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, &evaluator.RuntimeError{
			Code:    diagnostics.EArity,
			Message: fmt.Sprintf("range expects 1 to 3 arguments, got %d", len(args)),
		}
	}
	nums := make([]float64, len(args))
	for i := range args {
		x, ok := argNumber(args, i)
		if !ok {
			return nilValue, nil
		}
		nums[i] = x
	}

	start, end, step := 0.0, nums[0], 1.0
	if len(nums) >= 2 {
		start, end = nums[0], nums[1]
	}
	if len(nums) == 3 {
		step = nums[2]
	}
	if step == 0 {
		return nil, &evaluator.RuntimeError{
			Code:    diagnostics.ERange,
			Message: "range step cannot be zero",
		}
	}
	if math.IsNaN(start) || math.IsNaN(end) || math.IsNaN(step) {
		return evaluator.NewList(nil), nil
	}

	var items []evaluator.Value
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if (step > 0 && v >= end) || (step < 0 && v <= end) {
			break
		}
		if i >= maxRangeLen {
			return nil, &evaluator.RuntimeError{
				Code:    diagnostics.ERange,
				Message: fmt.Sprintf("range too large (more than %d elements)", maxRangeLen),
			}
		}
		items = append(items, evaluator.NewNumber(v))
	}
	return evaluator.NewList(items), nil
}
