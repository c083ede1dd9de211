// Package ast defines the ITMOScript AST node types.
package ast

// Span represents a source location.
type Span struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
	node() // sealed marker
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
	OpPow  BinaryOp = "^"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpAnd  BinaryOp = "and"
	OpOr   BinaryOp = "or"
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpPos UnaryOp = "+"
	OpNot UnaryOp = "not"
)

// --- Literals ---

// NumberLiteral is a numeric literal. The keywords true and false also
// parse to NumberLiteral (1 and 0); Text keeps the source spelling.
type NumberLiteral struct {
	Span  Span
	Value float64
	Text  string
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) node()          {}

type NilLiteral struct {
	Span Span
}

func (n *NilLiteral) Kind() string   { return "NilLiteral" }
func (n *NilLiteral) NodeSpan() Span { return n.Span }
func (n *NilLiteral) node()          {}

type StringLiteral struct {
	Span  Span
	Value string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) node()          {}

type ListLiteral struct {
	Span     Span
	Elements []Node
}

func (n *ListLiteral) Kind() string   { return "ListLiteral" }
func (n *ListLiteral) NodeSpan() Span { return n.Span }
func (n *ListLiteral) node()          {}

// FunctionLiteral carries only parameter names and the body; the
// environment is captured when the literal is evaluated.
type FunctionLiteral struct {
	Span   Span
	Params []string
	Body   *Block
}

func (n *FunctionLiteral) Kind() string   { return "FunctionLiteral" }
func (n *FunctionLiteral) NodeSpan() Span { return n.Span }
func (n *FunctionLiteral) node()          {}

// --- Names ---

type Identifier struct {
	Span Span
	Name string
}

func (n *Identifier) Kind() string   { return "Identifier" }
func (n *Identifier) NodeSpan() Span { return n.Span }
func (n *Identifier) node()          {}

// Assignment binds Name using assign-or-declare. Compound operators such
// as `x += 1` are desugared to `x = x + 1` by the parser.
type Assignment struct {
	Span  Span
	Name  string
	Value Node
}

func (n *Assignment) Kind() string   { return "Assignment" }
func (n *Assignment) NodeSpan() Span { return n.Span }
func (n *Assignment) node()          {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Node
	Right Node
}

func (n *BinaryExpr) Kind() string   { return "BinaryOp" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) node()          {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Node
}

func (n *UnaryExpr) Kind() string   { return "UnaryOp" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) node()          {}

// CallExpr calls Callee with Args evaluated left to right.
type CallExpr struct {
	Span   Span
	Callee Node
	Args   []Node
}

func (n *CallExpr) Kind() string   { return "Call" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) node()          {}

// IndexExpr covers t[i] (Slice false) and t[i:j], t[:j], t[i:], t[:]
// (Slice true). Start and End are nil when omitted.
type IndexExpr struct {
	Span   Span
	Target Node
	Start  Node
	End    Node
	Slice  bool
}

func (n *IndexExpr) Kind() string   { return "IndexOrSlice" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) node()          {}

// --- Control flow ---

type IfStmt struct {
	Span Span
	Cond Node
	Then *Block
	Else *Block // nil when absent
}

func (n *IfStmt) Kind() string   { return "If" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) node()          {}

type WhileStmt struct {
	Span Span
	Cond Node
	Body *Block
}

func (n *WhileStmt) Kind() string   { return "While" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) node()          {}

type ForStmt struct {
	Span     Span
	Var      string
	Iterable Node
	Body     *Block
}

func (n *ForStmt) Kind() string   { return "For" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) node()          {}

// ReturnStmt with a nil Value returns nil.
type ReturnStmt struct {
	Span  Span
	Value Node
}

func (n *ReturnStmt) Kind() string   { return "Return" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) node()          {}

type BreakStmt struct {
	Span Span
}

func (n *BreakStmt) Kind() string   { return "Break" }
func (n *BreakStmt) NodeSpan() Span { return n.Span }
func (n *BreakStmt) node()          {}

type ContinueStmt struct {
	Span Span
}

func (n *ContinueStmt) Kind() string   { return "Continue" }
func (n *ContinueStmt) NodeSpan() Span { return n.Span }
func (n *ContinueStmt) node()          {}

type PrintStmt struct {
	Span    Span
	Value   Node
	Newline bool
}

func (n *PrintStmt) Kind() string   { return "Print" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) node()          {}

// Block is a statement sequence. Blocks do not open a scope.
type Block struct {
	Span       Span
	Statements []Node
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) node()          {}

// --- Program ---

// Program is a parsed source file: one top-level block.
type Program struct {
	Span Span
	Body *Block
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
func (n *Program) node()          {}
