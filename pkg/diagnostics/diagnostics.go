// Package diagnostics defines ITMOScript diagnostic types for lex, parse,
// lint and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex            = "E_LEX"
	EParse          = "E_PARSE"
	EIncomplete     = "E_INCOMPLETE"
	EUnbound        = "E_UNBOUND"
	EType           = "E_TYPE"
	EArity          = "E_ARITY"
	ENotCallable    = "E_NOT_CALLABLE"
	EIndex          = "E_INDEX"
	ERange          = "E_RANGE"
	EUnknownBuiltin = "E_UNKNOWN_BUILTIN"
	EBudget         = "E_BUDGET"
	EIO             = "E_IO"
	ELoopControl    = "E_LOOP_CONTROL"
	EDupParam       = "E_DUP_PARAM"
	EConfig         = "E_CONFIG"
)

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// IsSyntax reports whether the code belongs to the lexer or parser.
func IsSyntax(code string) bool {
	return code == ELex || code == EParse || code == EIncomplete
}

// Location renders the span as file:line:col, or "line N" when no file
// name is known.
func Location(span *ast.Span) string {
	if span == nil {
		return "<unknown>"
	}
	if span.File == "" {
		return fmt.Sprintf("line %d", span.Line)
	}
	return fmt.Sprintf("%s:%d:%d", span.File, span.Line, span.Col)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, Location(d.Span))
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// OneLine renders a diagnostic as a single human-readable line, the form
// the driver writes to the program's output on failure.
func OneLine(d Diagnostic) string {
	if d.Span == nil {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", Location(d.Span), d.Message)
}
