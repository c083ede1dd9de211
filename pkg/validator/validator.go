// Package validator implements static checks of ITMOScript programs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

type validator struct {
	diags    []diagnostics.Diagnostic
	builtins map[string]bool
}

// Validate reports break/continue outside a loop, duplicate parameters,
// and reads of names that no enclosing scope ever binds. builtins lists
// the names predeclared in the global environment.
//
// A scope's names are collected before its reads are checked, so a
// function may refer to globals assigned after its definition.
func Validate(program *ast.Program, builtins []string) []diagnostics.Diagnostic {
	v := &validator{builtins: make(map[string]bool, len(builtins))}
	for _, name := range builtins {
		v.builtins[name] = true
	}

	global := newScope(nil)
	collectBindings(program.Body, global)
	v.validateBlock(program.Body, global, 0)

	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

// collectBindings adds every name the block assigns, including loop
// variables, without entering nested function bodies.
func collectBindings(block *ast.Block, sc *scope) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		switch s := stmt.(type) {
		case *ast.Assignment:
			sc.add(s.Name)
		case *ast.ForStmt:
			sc.add(s.Var)
			collectBindings(s.Body, sc)
		case *ast.WhileStmt:
			collectBindings(s.Body, sc)
		case *ast.IfStmt:
			collectBindings(s.Then, sc)
			collectBindings(s.Else, sc)
		}
	}
}

func (v *validator) validateBlock(block *ast.Block, sc *scope, loops int) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		v.validateNode(stmt, sc, loops)
	}
}

func (v *validator) validateNode(node ast.Node, sc *scope, loops int) {
	switch n := node.(type) {
	case nil:
		return

	case *ast.Identifier:
		if !sc.has(n.Name) && !v.builtins[n.Name] {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("undefined variable: %s", n.Name), n.Span)
		}

	case *ast.Assignment:
		v.validateNode(n.Value, sc, loops)

	case *ast.BinaryExpr:
		v.validateNode(n.Left, sc, loops)
		v.validateNode(n.Right, sc, loops)

	case *ast.UnaryExpr:
		v.validateNode(n.Operand, sc, loops)

	case *ast.CallExpr:
		v.validateNode(n.Callee, sc, loops)
		for _, arg := range n.Args {
			v.validateNode(arg, sc, loops)
		}

	case *ast.IndexExpr:
		v.validateNode(n.Target, sc, loops)
		v.validateNode(n.Start, sc, loops)
		v.validateNode(n.End, sc, loops)

	case *ast.ListLiteral:
		for _, elem := range n.Elements {
			v.validateNode(elem, sc, loops)
		}

	case *ast.FunctionLiteral:
		fnScope := newScope(sc)
		for _, param := range n.Params {
			if fnScope.bindings[param] {
				v.addDiag(diagnostics.EDupParam, fmt.Sprintf("duplicate parameter '%s'", param), n.Span)
			}
			fnScope.add(param)
		}
		collectBindings(n.Body, fnScope)
		// Loop control never crosses a function boundary.
		v.validateBlock(n.Body, fnScope, 0)

	case *ast.IfStmt:
		v.validateNode(n.Cond, sc, loops)
		v.validateBlock(n.Then, sc, loops)
		v.validateBlock(n.Else, sc, loops)

	case *ast.WhileStmt:
		v.validateNode(n.Cond, sc, loops)
		v.validateBlock(n.Body, sc, loops+1)

	case *ast.ForStmt:
		v.validateNode(n.Iterable, sc, loops)
		v.validateBlock(n.Body, sc, loops+1)

	case *ast.ReturnStmt:
		v.validateNode(n.Value, sc, loops)

	case *ast.BreakStmt:
		if loops == 0 {
			v.addDiag(diagnostics.ELoopControl, "'break' outside of a loop", n.Span)
		}

	case *ast.ContinueStmt:
		if loops == 0 {
			v.addDiag(diagnostics.ELoopControl, "'continue' outside of a loop", n.Span)
		}

	case *ast.PrintStmt:
		v.validateNode(n.Value, sc, loops)

	case *ast.Block:
		v.validateBlock(n, sc, loops)
	}
}
