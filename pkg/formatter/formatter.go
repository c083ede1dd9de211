// Package formatter implements the ITMOScript source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/ast"
)

const indent = "  "

// Binding strength of each operator level, loosest first. Unary operators
// bind tighter than '^', so -2^2 is (-2)^2.
const (
	precOr = iota + 1
	precAnd
	precCompare
	precAdd
	precMul
	precPow
	precUnary
	precPostfix
)

var precedence = map[ast.BinaryOp]int{
	ast.OpOr: precOr, ast.OpAnd: precAnd,
	ast.OpEqEq: precCompare, ast.OpNeq: precCompare,
	ast.OpGt: precCompare, ast.OpLt: precCompare, ast.OpGtEq: precCompare, ast.OpLtEq: precCompare,
	ast.OpAdd: precAdd, ast.OpSub: precAdd,
	ast.OpMul: precMul, ast.OpDiv: precMul, ast.OpMod: precMul,
	ast.OpPow: precPow,
}

func exprPrec(e ast.Node) int {
	switch expr := e.(type) {
	case *ast.BinaryExpr:
		return precedence[expr.Op]
	case *ast.UnaryExpr:
		return precUnary
	}
	return precPostfix
}

func needsParens(child ast.Node, parentOp ast.BinaryOp, isRight bool) bool {
	childPrec := exprPrec(child)
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	if childPrec == parentPrec {
		// '^' groups to the right, everything else to the left.
		if parentOp == ast.OpPow {
			return !isRight
		}
		return isRight
	}
	return false
}

// Format pretty-prints an ITMOScript AST back to source code. The output
// parses back to the same tree, and formatting it again is a no-op.
func Format(program *ast.Program) string {
	if program == nil || program.Body == nil || len(program.Body.Statements) == 0 {
		return ""
	}
	return formatBlock(program.Body, 0) + "\n"
}

// HasComments reports whether the source contains a // comment outside
// of a string literal. Comments are not kept in the AST.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch {
		case inString && ch == '\\' && i+1 < len(source):
			i++
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func formatBlock(block *ast.Block, depth int) string {
	if block == nil {
		return ""
	}
	lines := make([]string, len(block.Statements))
	for i, s := range block.Statements {
		lines[i] = formatStmt(s, depth)
	}
	return strings.Join(lines, "\n")
}

// body renders a nested block followed by its terminator line. Empty
// blocks produce only the terminator.
func body(block *ast.Block, depth int, terminator string) string {
	prefix := strings.Repeat(indent, depth)
	inner := formatBlock(block, depth+1)
	if inner == "" {
		return prefix + terminator
	}
	return inner + "\n" + prefix + terminator
}

func formatStmt(s ast.Node, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.Assignment:
		return prefix + stmt.Name + " = " + formatExpr(stmt.Value, depth)
	case *ast.IfStmt:
		return prefix + formatIf(stmt, depth)
	case *ast.WhileStmt:
		return prefix + "while " + formatExpr(stmt.Cond, depth) + "\n" +
			body(stmt.Body, depth, "end while")
	case *ast.ForStmt:
		return prefix + "for " + stmt.Var + " in " + formatExpr(stmt.Iterable, depth) + "\n" +
			body(stmt.Body, depth, "end for")
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return"
		}
		return prefix + "return " + formatExpr(stmt.Value, depth)
	case *ast.BreakStmt:
		return prefix + "break"
	case *ast.ContinueStmt:
		return prefix + "continue"
	case *ast.PrintStmt:
		kw := "print"
		if stmt.Newline {
			kw = "println"
		}
		return prefix + kw + "(" + formatExpr(stmt.Value, depth) + ")"
	}
	return prefix + formatExpr(s, depth)
}

// formatIf emits an else branch holding a single if statement as an
// `else if` link, so the whole chain closes with one `end if`.
func formatIf(stmt *ast.IfStmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	var sb strings.Builder
	for {
		sb.WriteString("if " + formatExpr(stmt.Cond, depth) + " then")
		if then := formatBlock(stmt.Then, depth+1); then != "" {
			sb.WriteString("\n" + then)
		}
		if stmt.Else == nil {
			break
		}
		if len(stmt.Else.Statements) == 1 {
			if next, ok := stmt.Else.Statements[0].(*ast.IfStmt); ok {
				sb.WriteString("\n" + prefix + "else ")
				stmt = next
				continue
			}
		}
		sb.WriteString("\n" + prefix + "else")
		if els := formatBlock(stmt.Else, depth+1); els != "" {
			sb.WriteString("\n" + els)
		}
		break
	}
	sb.WriteString("\n" + prefix + "end if")
	return sb.String()
}

func formatExpr(e ast.Node, depth int) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		if expr.Text != "" {
			return expr.Text
		}
		return strconv.FormatFloat(expr.Value, 'g', -1, 64)
	case *ast.StringLiteral:
		return quote(expr.Value)
	case *ast.NilLiteral:
		return "nil"
	case *ast.Identifier:
		return expr.Name
	case *ast.ListLiteral:
		return formatList(expr, depth)
	case *ast.FunctionLiteral:
		return "function(" + strings.Join(expr.Params, ", ") + ")\n" +
			body(expr.Body, depth, "end function")
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a, depth)
		}
		return formatTarget(expr.Callee, depth) + "(" + strings.Join(args, ", ") + ")"
	case *ast.IndexExpr:
		out := formatTarget(expr.Target, depth) + "["
		if expr.Start != nil {
			out += formatExpr(expr.Start, depth)
		}
		if expr.Slice {
			out += ":"
			if expr.End != nil {
				out += formatExpr(expr.End, depth)
			}
		}
		return out + "]"
	case *ast.BinaryExpr:
		leftStr := formatExpr(expr.Left, depth)
		rightStr := formatExpr(expr.Right, depth)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.UnaryExpr:
		operandStr := formatExpr(expr.Operand, depth)
		if _, isBin := expr.Operand.(*ast.BinaryExpr); isBin {
			operandStr = "(" + operandStr + ")"
		}
		if expr.Op == ast.OpNot {
			return "not " + operandStr
		}
		// Keep "- -x" from becoming a single token.
		if inner, ok := expr.Operand.(*ast.UnaryExpr); ok && inner.Op != ast.OpNot {
			return string(expr.Op) + "(" + operandStr + ")"
		}
		return string(expr.Op) + operandStr
	}
	return ""
}

// formatTarget renders the callee of a call or the target of an index,
// wrapping operator expressions so the postfix applies to the whole.
func formatTarget(e ast.Node, depth int) string {
	out := formatExpr(e, depth)
	if exprPrec(e) < precPostfix {
		return "(" + out + ")"
	}
	return out
}

func formatList(list *ast.ListLiteral, depth int) string {
	if len(list.Elements) == 0 {
		return "[]"
	}

	// Try inline first
	inlineParts := make([]string, len(list.Elements))
	multiline := false
	for i, e := range list.Elements {
		inlineParts[i] = formatExpr(e, depth+1)
		if strings.Contains(inlineParts[i], "\n") {
			multiline = true
		}
	}
	inline := "[" + strings.Join(inlineParts, ", ") + "]"
	if !multiline && len(inline) <= 72 {
		return inline
	}

	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	parts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		parts[i] = inner + formatExpr(e, depth+1)
	}
	return "[\n" + strings.Join(parts, ",\n") + "\n" + outer + "]"
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
