// Package help holds the language reference printed by `itmoscript help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/stdlib"
)

// Version of the language reference.
const Version = "v1.0"

// QUICKREF is printed by `itmoscript help` with no topic.
var QUICKREF = `ITMOScript ` + Version + ` quick reference

  x = 1                      assignment (also += -= *= /= %= ^=)
  print(x) / println(x)      output, println adds a newline
  if c then ... else if d then ... else ... end if
  while c ... end while
  for v in list ... end for  break / continue
  f = function(a, b) ... return a + b end function
  xs = [1, "two", nil]       lists are shared by reference
  xs[0]  xs[-1]  xs[1:3]  s[:2]

Topics (itmoscript help <topic>):
  ` + strings.Join(TopicList, ", ") + `
`

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "types", "builtins", "flow", "budget", "diagnostics", "examples"}

// Topics maps each topic to its text.
var Topics = map[string]string{
	"syntax": `Syntax

Statements are separated by whitespace; there are no semicolons.
Comments run from // to the end of the line.

  name = expr          bind or rebind name
  name op= expr        same as name = name op expr
  print(expr)          write the textual form
  println(expr)        write it followed by a newline
  return [expr]        leave the current function

Operators, loosest first:
  or
  and
  == != < <= > >=
  + -
  * / %
  ^                    right-associative
  - + not              unary
  f(args)  t[i]  t[i:j]
`,

	"types": `Types

  nil          the absence of a value
  number       64-bit float; integral values print without decimals
  string       byte string; "..." with \" and \\ escapes
  list         ordered, mutable, shared by reference
  function     closure over the scope that created it
  builtin      one of the predeclared functions

true and false are the numbers 1 and 0. Comparisons produce booleans.
Falsy values: nil, false, 0, "" and [].
`,

	"builtins": `Builtins

Every builtin is bound as a global. Calls with the wrong argument types
return nil instead of failing.

Run 'itmoscript help builtins --index' for the full list.
`,

	"flow": `Control flow

  if cond then ... [else if cond then ...] [else ...] end if
  while cond ... end while
  for v in list ... end for

for iterates over a snapshot of the list taken when the loop starts.
break and continue apply to the innermost loop of the current function.
`,

	"budget": `Budgets

Limits are read from .itmoscript.yaml or ~/.itmoscript/config.yaml:

  budget:
    maxIterations: 100000   loop iterations per run
    maxCallDepth: 256       nested function calls
    timeMs: 1000            wall-clock time

Zero or absent means unlimited, except that nesting deeper than 10000
calls always fails. Exceeding a limit raises E_BUDGET.
`,

	"diagnostics": `Diagnostics

  E_LEX E_PARSE E_INCOMPLETE   syntax errors, nothing runs
  E_UNBOUND                    undefined variable
  E_TYPE                       invalid operand types
  E_ARITY                      wrong number of arguments
  E_NOT_CALLABLE               call of a non-function
  E_INDEX                      index out of range
  E_RANGE                      invalid range or repeat count
  E_UNKNOWN_BUILTIN            builtin missing from the registry
  E_BUDGET                     a budget limit was exceeded
  E_IO                         output could not be written
  E_LOOP_CONTROL E_DUP_PARAM   reported by 'itmoscript check'
`,

	"examples": `Examples

  fib = function(n)
    if n < 2 then return n end if
    return fib(n - 1) + fib(n - 2)
  end function
  println(fib(10))

  for i in range(1, 16)
    if i % 15 == 0 then println("FizzBuzz")
    else if i % 3 == 0 then println("Fizz")
    else if i % 5 == 0 then println("Buzz")
    else println(i)
    end if
  end for
`,
}

// signatures documents the builtins by name.
var signatures = map[string]string{
	"abs":       "abs(x)",
	"ceil":      "ceil(x)",
	"floor":     "floor(x)",
	"round":     "round(x)",
	"sqrt":      "sqrt(x)",
	"rnd":       "rnd(n)                  integer in [0, n)",
	"parse_num": "parse_num(s)            number or nil",
	"to_string": "to_string(x)",
	"len":       "len(s | list)",
	"lower":     "lower(s)",
	"upper":     "upper(s)",
	"split":     "split(s, sep)",
	"join":      "join(list, sep)",
	"replace":   "replace(s, old, new)",
	"push":      "push(list, x)",
	"pop":       "pop(list)               last element or nil",
	"insert":    "insert(list, i, x)",
	"remove":    "remove(list, i)         removed element or nil",
	"sort":      "sort(list)              in place, by textual form",
	"range":     "range([start,] stop [, step])",
	"read":      "read()                  one line of input or nil",
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}

// BuiltinIndex lists the builtins registered in reg, one per line.
func BuiltinIndex(reg *stdlib.Registry) string {
	names := reg.Names()
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sig, ok := signatures[name]
		if !ok {
			sig = name + "(...)"
		}
		sb.WriteString("  " + sig + "\n")
	}
	fmt.Fprintf(&sb, "\nTotal: %d functions\n", len(names))
	return sb.String()
}
