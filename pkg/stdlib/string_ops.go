package stdlib

import (
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// len(string|list) → number; strings count bytes
func stdlibLen(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	if len(args) != 1 {
		return nilValue, nil
	}
	switch v := args[0].(type) {
	case evaluator.Str:
		return evaluator.NewNumber(float64(len(v.Value))), nil
	case *evaluator.List:
		return evaluator.NewNumber(float64(len(v.Items))), nil
	}
	return nilValue, nil
}

func stringFn(f func(string) string) func(*evaluator.Host, []evaluator.Value) (evaluator.Value, error) {
	return func(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
		s, ok := argString(args, 0)
		if len(args) != 1 || !ok {
			return nilValue, nil
		}
		return evaluator.NewString(f(s)), nil
	}
}

var (
	stdlibLower = stringFn(strings.ToLower)
	stdlibUpper = stringFn(strings.ToUpper)
)

// split(str, delim) → list of strings. An empty delimiter splits into
// single characters.
func stdlibSplit(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	s, ok1 := argString(args, 0)
	delim, ok2 := argString(args, 1)
	if len(args) != 2 || !ok1 || !ok2 {
		return nilValue, nil
	}
	parts := strings.Split(s, delim)
	items := make([]evaluator.Value, len(parts))
	for i, p := range parts {
		items[i] = evaluator.NewString(p)
	}
	return evaluator.NewList(items), nil
}

// join(list, delim) → string of each element's textual form
func stdlibJoin(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	list, ok1 := argList(args, 0)
	delim, ok2 := argString(args, 1)
	if len(args) != 2 || !ok1 || !ok2 {
		return nilValue, nil
	}
	parts := make([]string, len(list.Items))
	for i, item := range list.Items {
		parts[i] = evaluator.Format(item)
	}
	return evaluator.NewString(strings.Join(parts, delim)), nil
}

// replace(str, old, new) → string with every occurrence replaced
func stdlibReplace(_ *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	s, ok1 := argString(args, 0)
	old, ok2 := argString(args, 1)
	repl, ok3 := argString(args, 2)
	if len(args) != 3 || !ok1 || !ok2 || !ok3 {
		return nilValue, nil
	}
	if old == "" {
		return evaluator.NewString(s), nil
	}
	return evaluator.NewString(strings.ReplaceAll(s, old, repl)), nil
}
