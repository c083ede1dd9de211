package ast_test

import (
	"testing"

	"github.com/thomasrohde/itmoscript/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.NumberLiteral{Value: 42},
		&ast.NilLiteral{},
		&ast.StringLiteral{Value: "hello"},
		&ast.Identifier{Name: "x"},
		&ast.Assignment{Name: "x"},
		&ast.BinaryExpr{Op: ast.OpAdd},
		&ast.UnaryExpr{Op: ast.OpNeg},
		&ast.IfStmt{},
		&ast.WhileStmt{},
		&ast.ForStmt{},
		&ast.FunctionLiteral{},
		&ast.ReturnStmt{},
		&ast.BreakStmt{},
		&ast.ContinueStmt{},
		&ast.Block{},
		&ast.PrintStmt{Newline: true},
		&ast.CallExpr{},
		&ast.ListLiteral{},
		&ast.IndexExpr{Slice: true},
	}

	expected := []string{
		"NumberLiteral", "NilLiteral", "StringLiteral", "Identifier",
		"Assignment", "BinaryOp", "UnaryOp", "If", "While", "For",
		"FunctionLiteral", "Return", "Break", "Continue", "Block",
		"Print", "Call", "ListLiteral", "IndexOrSlice",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestNodeSpan(t *testing.T) {
	span := ast.Span{File: "main.its", Line: 7, Col: 3}
	n := &ast.ForStmt{Span: span, Var: "i"}
	if got := n.NodeSpan(); got != span {
		t.Errorf("got %+v, want %+v", got, span)
	}
}
