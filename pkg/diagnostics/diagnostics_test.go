package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &ast.Span{File: "test.its", Line: 1, Col: 1}
	d := diagnostics.MakeDiag(diagnostics.EParse, "unexpected token", span, "check syntax")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Message != "unexpected token" {
		t.Errorf("got Message = %q, want %q", d.Message, "unexpected token")
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	span := &ast.Span{File: "test.its", Line: 3, Col: 5}
	d := diagnostics.MakeDiag(diagnostics.EUnbound, "undefined variable: x", span, "did you mean 'y'?")

	out := diagnostics.FormatDiagnostic(d, true)
	if !strings.Contains(out, "error[E_UNBOUND]") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "test.its:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "bad token", nil, "")
	out := diagnostics.FormatDiagnostic(d, false)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		name string
		d    diagnostics.Diagnostic
		want string
	}{
		{"no span", diagnostics.MakeDiag(diagnostics.EType, "boom", nil, ""), "boom"},
		{"line only", diagnostics.MakeDiag(diagnostics.EType, "boom", &ast.Span{Line: 4}, ""), "line 4: boom"},
		{"with file", diagnostics.MakeDiag(diagnostics.EType, "boom", &ast.Span{File: "a.its", Line: 2, Col: 9}, ""), "a.its:2:9: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diagnostics.OneLine(tt.d); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsSyntax(t *testing.T) {
	for _, code := range []string{diagnostics.ELex, diagnostics.EParse, diagnostics.EIncomplete} {
		if !diagnostics.IsSyntax(code) {
			t.Errorf("%s should be a syntax code", code)
		}
	}
	if diagnostics.IsSyntax(diagnostics.EType) {
		t.Error("E_TYPE is not a syntax code")
	}
}
