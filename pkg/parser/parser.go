// Package parser implements the ITMOScript parser.
package parser

import (
	"fmt"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/lexer"
)

type parser struct {
	lex   *lexer.Lexer
	cur   lexer.Token
	diags []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into an AST. On failure it returns
// the first diagnostic; an error at end of input carries E_INCOMPLETE.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	p := &parser{lex: lexer.New(source, filename)}
	p.advance()

	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// IsIncomplete reports whether diags describe input that ended too early,
// such as an open block or an unterminated string.
func IsIncomplete(diags []diagnostics.Diagnostic) bool {
	return len(diags) > 0 && diags[0].Code == diagnostics.EIncomplete
}

func (p *parser) peek() lexer.TokenType {
	return p.cur.Type
}

// advance consumes the current token. Unknown tokens from the lexer are
// reported once and replaced by EOF so parsing unwinds quickly.
func (p *parser) advance() lexer.Token {
	tok := p.cur
	next := p.lex.Next()
	if next.Type == lexer.TokUnknown {
		p.addDiag(lexer.ErrorFor(next))
		next = lexer.Token{Type: lexer.TokEOF, Span: next.Span}
	}
	p.cur = next
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.cur
	if tok.Type != typ {
		p.unexpected(typ.String())
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addDiag(d diagnostics.Diagnostic) {
	if len(p.diags) > 0 {
		return
	}
	p.diags = append(p.diags, d)
}

func (p *parser) addError(msg string, span *ast.Span) {
	code := diagnostics.EParse
	if p.cur.Type == lexer.TokEOF {
		code = diagnostics.EIncomplete
	}
	p.addDiag(diagnostics.MakeDiag(code, msg, span, ""))
}

// unexpected reports the current token as out of place.
func (p *parser) unexpected(expected string) {
	tok := p.cur
	p.addError(fmt.Sprintf("unexpected %s, expected %s", describe(tok), expected), &tok.Span)
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokEOF:
		return "end of file"
	case lexer.TokString:
		return fmt.Sprintf("string %q", tok.Value)
	default:
		return fmt.Sprintf("'%s'", tok.Value)
	}
}

// atBlockEnd reports whether the current token closes a block.
func (p *parser) atBlockEnd() bool {
	switch p.peek() {
	case lexer.TokEOF, lexer.TokEndIf, lexer.TokEndFor, lexer.TokEndWhile,
		lexer.TokEndFunction, lexer.TokElse:
		return true
	}
	return false
}

var compoundOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokPlusAssign:    ast.OpAdd,
	lexer.TokMinusAssign:   ast.OpSub,
	lexer.TokStarAssign:    ast.OpMul,
	lexer.TokSlashAssign:   ast.OpDiv,
	lexer.TokPercentAssign: ast.OpMod,
	lexer.TokCaretAssign:   ast.OpPow,
}

// --- Program and blocks ---

func (p *parser) parseProgram() *ast.Program {
	start := p.cur.Span
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	if p.peek() != lexer.TokEOF {
		p.unexpected("end of file")
		return nil
	}
	return &ast.Program{Span: start, Body: body}
}

func (p *parser) parseBlock() *ast.Block {
	block := &ast.Block{Span: p.cur.Span}
	for !p.atBlockEnd() {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		block.Statements = append(block.Statements, stmt)
	}
	if len(p.diags) > 0 {
		return nil
	}
	return block
}

// --- Statements ---

func (p *parser) parseStmt() ast.Node {
	switch p.peek() {
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokWhile:
		return p.parseWhile()
	case lexer.TokFor:
		return p.parseFor()
	case lexer.TokReturn:
		return p.parseReturn()
	case lexer.TokBreak:
		tok := p.advance()
		return &ast.BreakStmt{Span: tok.Span}
	case lexer.TokContinue:
		tok := p.advance()
		return &ast.ContinueStmt{Span: tok.Span}
	case lexer.TokPrint, lexer.TokPrintln:
		return p.parsePrint()
	case lexer.TokIdent:
		return p.parseIdentStmt()
	default:
		return p.parseExpr()
	}
}

// parseIdentStmt handles `name = expr`, `name op= expr` and statements
// that start with a name, such as calls.
func (p *parser) parseIdentStmt() ast.Node {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}

	typ := p.peek()
	binop, isCompound := compoundOps[typ]
	if typ != lexer.TokAssign && !isCompound {
		return expr
	}

	ident, ok := expr.(*ast.Identifier)
	if !ok {
		tok := p.cur
		p.addError(fmt.Sprintf("cannot assign to %s", expr.Kind()), &tok.Span)
		return nil
	}
	p.advance()

	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if isCompound {
		value = &ast.BinaryExpr{
			Span:  ident.Span,
			Op:    binop,
			Left:  &ast.Identifier{Span: ident.Span, Name: ident.Name},
			Right: value,
		}
	}
	return &ast.Assignment{Span: ident.Span, Name: ident.Name, Value: value}
}

// startsExpr reports whether the current token can begin an expression.
func (p *parser) startsExpr() bool {
	switch p.peek() {
	case lexer.TokNumber, lexer.TokString, lexer.TokIdent, lexer.TokTrue,
		lexer.TokFalse, lexer.TokNil, lexer.TokFunction, lexer.TokLParen,
		lexer.TokLBracket, lexer.TokMinus, lexer.TokPlus, lexer.TokNot:
		return true
	}
	return false
}

// parseReturn treats `return` as bare when no expression can follow, as
// before `end function` or another statement keyword.
func (p *parser) parseReturn() ast.Node {
	start := p.advance() // consume 'return'
	if !p.startsExpr() {
		return &ast.ReturnStmt{Span: start.Span}
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.ReturnStmt{Span: start.Span, Value: value}
}

func (p *parser) parsePrint() ast.Node {
	start := p.advance() // consume 'print' or 'println'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return &ast.PrintStmt{
		Span:    start.Span,
		Value:   value,
		Newline: start.Type == lexer.TokPrintln,
	}
}

func (p *parser) parseIf() ast.Node {
	stmt := p.parseIfChain()
	if stmt == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokEndIf); !ok {
		return nil
	}
	return stmt
}

// parseIfChain parses `if cond then block [else block]` without the
// closing `end if`. An `else if` continues the chain, so the whole chain
// shares a single terminator.
func (p *parser) parseIfChain() *ast.IfStmt {
	start := p.advance() // consume 'if'

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokThen); !ok {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}

	stmt := &ast.IfStmt{Span: start.Span, Cond: cond, Then: then}
	if p.peek() != lexer.TokElse {
		return stmt
	}
	elseTok := p.advance()

	if p.peek() == lexer.TokIf {
		nested := p.parseIfChain()
		if nested == nil {
			return nil
		}
		stmt.Else = &ast.Block{Span: elseTok.Span, Statements: []ast.Node{nested}}
		return stmt
	}

	els := p.parseBlock()
	if els == nil {
		return nil
	}
	stmt.Else = els
	return stmt
}

func (p *parser) parseWhile() ast.Node {
	start := p.advance() // consume 'while'

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokEndWhile); !ok {
		return nil
	}
	return &ast.WhileStmt{Span: start.Span, Cond: cond, Body: body}
}

func (p *parser) parseFor() ast.Node {
	start := p.advance() // consume 'for'

	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokIn); !ok {
		return nil
	}
	iterable := p.parseExpr()
	if iterable == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokEndFor); !ok {
		return nil
	}
	return &ast.ForStmt{Span: start.Span, Var: name.Value, Iterable: iterable, Body: body}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Node {
	return p.parseOr()
}

func (p *parser) binary(op ast.BinaryOp, left, right ast.Node) ast.Node {
	return &ast.BinaryExpr{Span: left.NodeSpan(), Op: op, Left: left, Right: right}
}

func (p *parser) parseOr() ast.Node {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokOr {
		p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = p.binary(ast.OpOr, left, right)
	}
	return left
}

func (p *parser) parseAnd() ast.Node {
	left := p.parseComparison()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokAnd {
		p.advance()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = p.binary(ast.OpAnd, left, right)
	}
	return left
}

func (p *parser) parseComparison() ast.Node {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokGt:
			op = ast.OpGt
		case lexer.TokLt:
			op = ast.OpLt
		case lexer.TokGtEq:
			op = ast.OpGtEq
		case lexer.TokLtEq:
			op = ast.OpLtEq
		case lexer.TokEqEq:
			op = ast.OpEqEq
		case lexer.TokBangEq:
			op = ast.OpNeq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = p.binary(op, left, right)
	}
}

func (p *parser) parseAdditive() ast.Node {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = p.binary(op, left, right)
	}
}

func (p *parser) parseMultiplicative() ast.Node {
	left := p.parsePower()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parsePower()
		if right == nil {
			return nil
		}
		left = p.binary(op, left, right)
	}
}

// parsePower is right-associative: 2^3^2 is 2^(3^2).
func (p *parser) parsePower() ast.Node {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokCaret {
		return left
	}
	p.advance()
	right := p.parsePower()
	if right == nil {
		return nil
	}
	return p.binary(ast.OpPow, left, right)
}

func (p *parser) parseUnary() ast.Node {
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokPlus:
		op = ast.OpPos
	case lexer.TokNot:
		op = ast.OpNot
	default:
		return p.parsePostfix()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{Span: start.Span, Op: op, Operand: operand}
}

func (p *parser) parsePostfix() ast.Node {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	for {
		switch p.peek() {
		case lexer.TokLParen:
			expr = p.parseCall(expr)
		case lexer.TokLBracket:
			expr = p.parseIndex(expr)
		default:
			return expr
		}
		if expr == nil {
			return nil
		}
	}
}

func (p *parser) parseCall(callee ast.Node) ast.Node {
	start := p.advance() // consume '('
	call := &ast.CallExpr{Span: start.Span, Callee: callee}
	if p.peek() == lexer.TokRParen {
		p.advance()
		return call
	}
	for {
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return call
}

// parseIndex covers t[i], t[i:j], t[:j], t[i:] and t[:].
func (p *parser) parseIndex(target ast.Node) ast.Node {
	start := p.advance() // consume '['
	idx := &ast.IndexExpr{Span: start.Span, Target: target}

	if p.peek() != lexer.TokColon {
		idx.Start = p.parseExpr()
		if idx.Start == nil {
			return nil
		}
	}
	if p.peek() == lexer.TokColon {
		p.advance()
		idx.Slice = true
		if p.peek() != lexer.TokRBracket {
			idx.End = p.parseExpr()
			if idx.End == nil {
				return nil
			}
		}
	}
	if _, ok := p.expect(lexer.TokRBracket); !ok {
		return nil
	}
	return idx
}

func (p *parser) parsePrimary() ast.Node {
	switch p.peek() {
	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokLBracket:
		return p.parseList()

	case lexer.TokFunction:
		return p.parseFunction()

	case lexer.TokNumber:
		tok := p.advance()
		return &ast.NumberLiteral{Span: tok.Span, Value: tok.Number, Text: tok.Value}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.NumberLiteral{Span: tok.Span, Value: 1, Text: tok.Value}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.NumberLiteral{Span: tok.Span, Value: 0, Text: tok.Value}

	case lexer.TokString:
		tok := p.advance()
		return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokNil:
		tok := p.advance()
		return &ast.NilLiteral{Span: tok.Span}

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.Identifier{Span: tok.Span, Name: tok.Value}

	default:
		p.unexpected("expression")
		return nil
	}
}

// parseList allows a trailing comma: [1, 2,] has two elements.
func (p *parser) parseList() ast.Node {
	start := p.advance() // consume '['
	list := &ast.ListLiteral{Span: start.Span}

	for p.peek() != lexer.TokRBracket {
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		list.Elements = append(list.Elements, elem)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRBracket); !ok {
		return nil
	}
	return list
}

func (p *parser) parseFunction() ast.Node {
	start := p.advance() // consume 'function'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	fn := &ast.FunctionLiteral{Span: start.Span}
	if p.peek() != lexer.TokRParen {
		for {
			name, ok := p.expect(lexer.TokIdent)
			if !ok {
				return nil
			}
			fn.Params = append(fn.Params, name.Value)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokEndFunction); !ok {
		return nil
	}
	fn.Body = body
	return fn
}
