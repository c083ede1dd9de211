// Package lexer implements the ITMOScript tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokIf TokenType = iota
	TokThen
	TokElse
	TokWhile
	TokFor
	TokIn
	TokFunction
	TokReturn
	TokAnd
	TokOr
	TokNot
	TokNil
	TokPrint
	TokPrintln
	TokTrue
	TokFalse
	TokBreak
	TokContinue

	// Two-word terminators
	TokEndIf
	TokEndFor
	TokEndWhile
	TokEndFunction

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Assignment
	TokAssign        // =
	TokPlusAssign    // +=
	TokMinusAssign   // -=
	TokStarAssign    // *=
	TokSlashAssign   // /=
	TokPercentAssign // %=
	TokCaretAssign   // ^=

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokGtEq   // >=
	TokLt     // <
	TokLtEq   // <=

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %
	TokCaret   // ^

	// Punctuation
	TokLParen   // (
	TokRParen   // )
	TokLBracket // [
	TokRBracket // ]
	TokComma    // ,
	TokColon    // :

	// Special
	TokEOF
	TokUnknown
)

// Token represents a single lexer token. Number is set for TokNumber.
// Reason explains a TokUnknown token.
type Token struct {
	Type   TokenType
	Value  string
	Number float64
	Span   ast.Span
	Reason string
}

// Unterminated reports whether the token is a string literal that ran into
// the end of input.
func (t Token) Unterminated() bool {
	return t.Type == TokUnknown && t.Reason == reasonUnterminated
}

const reasonUnterminated = "unterminated string literal"

var keywords = map[string]TokenType{
	"if":       TokIf,
	"then":     TokThen,
	"else":     TokElse,
	"while":    TokWhile,
	"for":      TokFor,
	"in":       TokIn,
	"function": TokFunction,
	"return":   TokReturn,
	"and":      TokAnd,
	"or":       TokOr,
	"not":      TokNot,
	"nil":      TokNil,
	"print":    TokPrint,
	"println":  TokPrintln,
	"true":     TokTrue,
	"false":    TokFalse,
	"break":    TokBreak,
	"continue": TokContinue,
}

var terminators = map[string]TokenType{
	"if":       TokEndIf,
	"for":      TokEndFor,
	"while":    TokEndWhile,
	"function": TokEndFunction,
}

// compound maps an operator character to its single and `op=` forms.
var compound = map[byte][2]TokenType{
	'=': {TokAssign, TokEqEq},
	'!': {TokNot, TokBangEq},
	'+': {TokPlus, TokPlusAssign},
	'-': {TokMinus, TokMinusAssign},
	'*': {TokStar, TokStarAssign},
	'/': {TokSlash, TokSlashAssign},
	'%': {TokPercent, TokPercentAssign},
	'^': {TokCaret, TokCaretAssign},
	'>': {TokGt, TokGtEq},
	'<': {TokLt, TokLtEq},
}

var single = map[byte]TokenType{
	'(': TokLParen,
	')': TokRParen,
	'[': TokLBracket,
	']': TokRBracket,
	',': TokComma,
	':': TokColon,
}

// Lexer produces tokens on demand, one per call to Next.
type Lexer struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

// New creates a lexer over source. filename is only used in spans.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekAt(offset int) byte {
	p := l.pos + offset
	if p >= len(l.source) {
		return 0
	}
	return l.source[p]
}

func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) span(line, col int) ast.Span {
	return ast.Span{File: l.filename, Line: line, Col: col}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			l.advance()
		} else if ch == '/' && l.peekAt(1) == '/' {
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (l *Lexer) scanString() Token {
	line, col := l.line, l.col
	l.advance() // opening "

	var buf strings.Builder
	for !l.atEnd() {
		ch := l.advance()
		switch {
		case ch == '"':
			return Token{Type: TokString, Value: buf.String(), Span: l.span(line, col)}
		case ch == '\\' && (l.peek() == '"' || l.peek() == '\\'):
			buf.WriteByte(l.advance())
		default:
			buf.WriteByte(ch)
		}
	}
	return Token{
		Type:   TokUnknown,
		Value:  buf.String(),
		Span:   l.span(line, col),
		Reason: reasonUnterminated,
	}
}

func (l *Lexer) scanNumber() Token {
	line, col := l.line, l.col
	start := l.pos

	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' {
		l.advance()
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}

	// The exponent is only consumed when digits follow it, so `2else`
	// or `1e` never swallow a letter that belongs to the next token.
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for !l.atEnd() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	text := l.source[start:l.pos]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Only overflow can get here; ParseFloat still returns ±Inf.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return Token{Type: TokUnknown, Value: text, Span: l.span(line, col), Reason: fmt.Sprintf("malformed number %q", text)}
		}
	}
	return Token{Type: TokNumber, Value: text, Number: value, Span: l.span(line, col)}
}

func (l *Lexer) scanWord() string {
	start := l.pos
	for !l.atEnd() && isAlphaNumeric(l.peek()) {
		l.advance()
	}
	return l.source[start:l.pos]
}

func (l *Lexer) scanIdentOrKeyword() Token {
	line, col := l.line, l.col
	text := l.scanWord()

	if text == "end" {
		l.skipWhitespaceAndComments()
		second := ""
		if isAlpha(l.peek()) {
			second = l.scanWord()
		}
		value := "end " + second
		if typ, ok := terminators[second]; ok {
			return Token{Type: typ, Value: value, Span: l.span(line, col)}
		}
		return Token{
			Type:   TokUnknown,
			Value:  value,
			Span:   l.span(line, col),
			Reason: fmt.Sprintf("unknown terminator '%s'", strings.TrimSpace(value)),
		}
	}

	if typ, ok := keywords[text]; ok {
		return Token{Type: typ, Value: text, Span: l.span(line, col)}
	}
	return Token{Type: TokIdent, Value: text, Span: l.span(line, col)}
}

// Next returns the next token. At end of input it keeps returning TokEOF.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	if l.atEnd() {
		return Token{Type: TokEOF, Value: "", Span: l.span(l.line, l.col)}
	}

	ch := l.peek()
	line, col := l.line, l.col

	switch {
	case isDigit(ch):
		return l.scanNumber()
	case isAlpha(ch):
		return l.scanIdentOrKeyword()
	case ch == '"':
		return l.scanString()
	}

	if typ, ok := single[ch]; ok {
		l.advance()
		return Token{Type: typ, Value: string(ch), Span: l.span(line, col)}
	}

	if forms, ok := compound[ch]; ok {
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return Token{Type: forms[1], Value: string(ch) + "=", Span: l.span(line, col)}
		}
		return Token{Type: forms[0], Value: string(ch), Span: l.span(line, col)}
	}

	l.advance()
	return Token{
		Type:   TokUnknown,
		Value:  string(ch),
		Span:   l.span(line, col),
		Reason: fmt.Sprintf("unexpected character '%c'", ch),
	}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// ErrorFor converts an unknown token into a diagnostic. Unterminated
// strings are reported as incomplete input.
func ErrorFor(tok Token) diagnostics.Diagnostic {
	code := diagnostics.ELex
	if tok.Unterminated() {
		code = diagnostics.EIncomplete
	}
	span := tok.Span
	return diagnostics.MakeDiag(code, tok.Reason, &span, "")
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
// It stops at the first unknown token and returns it as a *LexError.
func Tokenize(source, filename string) ([]Token, error) {
	l := New(source, filename)
	var tokens []Token

	for {
		tok := l.Next()
		if tok.Type == TokUnknown {
			return nil, &LexError{Diag: ErrorFor(tok)}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}

// String returns a readable name for the token type, used in parse errors.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var tokenNames = map[TokenType]string{
	TokIf: "'if'", TokThen: "'then'", TokElse: "'else'", TokWhile: "'while'",
	TokFor: "'for'", TokIn: "'in'", TokFunction: "'function'", TokReturn: "'return'",
	TokAnd: "'and'", TokOr: "'or'", TokNot: "'not'", TokNil: "'nil'",
	TokPrint: "'print'", TokPrintln: "'println'", TokTrue: "'true'", TokFalse: "'false'",
	TokBreak: "'break'", TokContinue: "'continue'",
	TokEndIf: "'end if'", TokEndFor: "'end for'", TokEndWhile: "'end while'", TokEndFunction: "'end function'",
	TokNumber: "number", TokString: "string", TokIdent: "identifier",
	TokAssign: "'='", TokPlusAssign: "'+='", TokMinusAssign: "'-='", TokStarAssign: "'*='",
	TokSlashAssign: "'/='", TokPercentAssign: "'%='", TokCaretAssign: "'^='",
	TokEqEq: "'=='", TokBangEq: "'!='", TokGt: "'>'", TokGtEq: "'>='", TokLt: "'<'", TokLtEq: "'<='",
	TokPlus: "'+'", TokMinus: "'-'", TokStar: "'*'", TokSlash: "'/'", TokPercent: "'%'", TokCaret: "'^'",
	TokLParen: "'('", TokRParen: "')'", TokLBracket: "'['", TokRBracket: "']'",
	TokComma: "','", TokColon: "':'",
	TokEOF: "end of file", TokUnknown: "unknown token",
}
