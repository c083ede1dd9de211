package evaluator

import (
	"fmt"
	"math"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
)

const maxStringLen = 1 << 30

func operandError(op string, left, right Value) *RuntimeError {
	return &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("invalid types for operator '%s': %s and %s", op, TypeName(left), TypeName(right)),
	}
}

// binaryOp applies op to two evaluated operands. Both sides are always
// evaluated, including for `and` and `or`.
func binaryOp(op ast.BinaryOp, left, right Value) (Value, error) {
	switch op {
	case ast.OpAnd:
		return NewBool(Truthy(left) && Truthy(right)), nil
	case ast.OpOr:
		return NewBool(Truthy(left) || Truthy(right)), nil
	case ast.OpEqEq:
		return NewBool(DeepEqual(left, right)), nil
	case ast.OpNeq:
		return NewBool(!DeepEqual(left, right)), nil
	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		return compare(op, left, right)
	case ast.OpAdd:
		return add(left, right)
	case ast.OpSub:
		return subtract(left, right)
	case ast.OpMul:
		return multiply(left, right)
	}

	lNum, lOk := left.(Number)
	rNum, rOk := right.(Number)
	if !lOk || !rOk {
		return nil, operandError(string(op), left, right)
	}
	switch op {
	case ast.OpDiv:
		if rNum.Value == 0 {
			return NewNil(), nil
		}
		return NewNumber(lNum.Value / rNum.Value), nil
	case ast.OpMod:
		return NewNumber(math.Mod(lNum.Value, rNum.Value)), nil
	case ast.OpPow:
		return NewNumber(math.Pow(lNum.Value, rNum.Value)), nil
	}
	return nil, &RuntimeError{Code: diagnostics.EType, Message: fmt.Sprintf("unknown operator '%s'", op)}
}

func compare(op ast.BinaryOp, left, right Value) (Value, error) {
	if lNum, ok := left.(Number); ok {
		if rNum, ok := right.(Number); ok {
			switch op {
			case ast.OpGt:
				return NewBool(lNum.Value > rNum.Value), nil
			case ast.OpLt:
				return NewBool(lNum.Value < rNum.Value), nil
			case ast.OpGtEq:
				return NewBool(lNum.Value >= rNum.Value), nil
			default:
				return NewBool(lNum.Value <= rNum.Value), nil
			}
		}
	}
	if lStr, ok := left.(Str); ok {
		if rStr, ok := right.(Str); ok {
			switch op {
			case ast.OpGt:
				return NewBool(lStr.Value > rStr.Value), nil
			case ast.OpLt:
				return NewBool(lStr.Value < rStr.Value), nil
			case ast.OpGtEq:
				return NewBool(lStr.Value >= rStr.Value), nil
			default:
				return NewBool(lStr.Value <= rStr.Value), nil
			}
		}
	}
	return nil, operandError(string(op), left, right)
}

func add(left, right Value) (Value, error) {
	switch l := left.(type) {
	case Number:
		if r, ok := right.(Number); ok {
			return NewNumber(l.Value + r.Value), nil
		}
	case Str:
		if r, ok := right.(Str); ok {
			return NewString(l.Value + r.Value), nil
		}
	case *List:
		if r, ok := right.(*List); ok {
			items := make([]Value, 0, len(l.Items)+len(r.Items))
			items = append(items, l.Items...)
			items = append(items, r.Items...)
			return NewList(items), nil
		}
	}
	return nil, operandError("+", left, right)
}

// subtract on strings removes a trailing suffix when present.
func subtract(left, right Value) (Value, error) {
	switch l := left.(type) {
	case Number:
		if r, ok := right.(Number); ok {
			return NewNumber(l.Value - r.Value), nil
		}
	case Str:
		if r, ok := right.(Str); ok {
			return NewString(strings.TrimSuffix(l.Value, r.Value)), nil
		}
	}
	return nil, operandError("-", left, right)
}

// multiply accepts a boolean right operand as 0 or 1. A string times n
// repeats it ceil(n) times.
func multiply(left, right Value) (Value, error) {
	var factor float64
	switch r := right.(type) {
	case Number:
		factor = r.Value
	case Bool:
		if r.Value {
			factor = 1
		}
	default:
		return nil, operandError("*", left, right)
	}

	switch l := left.(type) {
	case Number:
		return NewNumber(l.Value * factor), nil
	case Str:
		return repeat(l.Value, factor)
	}
	return nil, operandError("*", left, right)
}

func repeat(s string, n float64) (Value, error) {
	if !(n > 0) || s == "" {
		return NewString(""), nil
	}
	count := math.Ceil(n)
	if count*float64(len(s)) > maxStringLen {
		return nil, &RuntimeError{
			Code:    diagnostics.ERange,
			Message: fmt.Sprintf("string repeat count too large: %s", FormatNumber(n)),
		}
	}
	return NewString(strings.Repeat(s, int(count))), nil
}

func unaryOp(op ast.UnaryOp, operand Value) (Value, error) {
	switch op {
	case ast.OpNot:
		return NewBool(!Truthy(operand)), nil
	case ast.OpPos:
		return operand, nil
	}
	if num, ok := operand.(Number); ok {
		return NewNumber(-num.Value), nil
	}
	return nil, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("invalid type for unary '-': %s", TypeName(operand)),
	}
}

// sequenceLen returns the length of an indexable value.
func sequenceLen(v Value) (int, bool) {
	switch val := v.(type) {
	case *List:
		return len(val.Items), true
	case Str:
		return len(val.Value), true
	}
	return 0, false
}

func indexNumber(v Value) (float64, error) {
	num, ok := v.(Number)
	if !ok || math.IsNaN(num.Value) {
		return 0, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("index must be a number, got %s", TypeName(v)),
		}
	}
	return math.Trunc(num.Value), nil
}

// index returns target[i]. Negative indexes count from the end.
func index(target, i Value) (Value, error) {
	n, ok := sequenceLen(target)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("cannot index %s", TypeName(target)),
		}
	}
	idx, err := indexNumber(i)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		idx += float64(n)
	}
	if idx < 0 || idx >= float64(n) {
		return nil, &RuntimeError{
			Code:    diagnostics.EIndex,
			Message: fmt.Sprintf("index out of range: %s (length %d)", FormatNumber(i.(Number).Value), n),
		}
	}

	switch t := target.(type) {
	case *List:
		return t.Items[int(idx)], nil
	default:
		s := t.(Str).Value
		return NewString(s[int(idx) : int(idx)+1]), nil
	}
}

// sliceBound normalizes a slice bound: negative values count from the end
// and the result is clamped to [0, n].
func sliceBound(v Value, def, n int) (int, error) {
	if v == nil {
		return def, nil
	}
	b, err := indexNumber(v)
	if err != nil {
		return 0, err
	}
	if b < 0 {
		b += float64(n)
	}
	switch {
	case b < 0:
		return 0, nil
	case b > float64(n):
		return n, nil
	}
	return int(b), nil
}

// slice returns target[start:end]; nil bounds take their defaults. A
// start past the end yields an empty result.
func slice(target, start, end Value) (Value, error) {
	n, ok := sequenceLen(target)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("cannot slice %s", TypeName(target)),
		}
	}
	lo, err := sliceBound(start, 0, n)
	if err != nil {
		return nil, err
	}
	hi, err := sliceBound(end, n, n)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		lo = hi
	}

	switch t := target.(type) {
	case *List:
		items := make([]Value, hi-lo)
		copy(items, t.Items[lo:hi])
		return NewList(items), nil
	default:
		return NewString(t.(Str).Value[lo:hi]), nil
	}
}
