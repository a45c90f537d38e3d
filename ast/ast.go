// Package ast defines the Minima syntax tree.
package ast

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Minima
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// Operator identifies a unary or binary operator.
type Operator int

const (
	OpMul Operator = iota
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpLt
	OpGt
	OpLte
	OpGte
	OpEq
	OpNotEq
	OpAnd
	OpOr
	OpPlus
	OpMinus
	OpNot
)

var operatorSymbols = [...]string{
	OpMul:   "*",
	OpDiv:   "/",
	OpMod:   "%",
	OpAdd:   "+",
	OpSub:   "-",
	OpLt:    "<",
	OpGt:    ">",
	OpLte:   "<=",
	OpGte:   ">=",
	OpEq:    "==",
	OpNotEq: "!=",
	OpAnd:   "&&",
	OpOr:    "||",
	OpPlus:  "+",
	OpMinus: "-",
	OpNot:   "!",
}

func (o Operator) String() string {
	if int(o) >= 0 && int(o) < len(operatorSymbols) {
		return operatorSymbols[o]
	}
	return "?"
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal with escapes already decoded.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// LValue names a storage location: a variable, optionally followed by a
// chain of index expressions (a[i][j]).
type LValue struct {
	SpanVal Span
	Name    string
	Indices []Expr
}

func (n *LValue) Span() Span { return n.SpanVal }
func (n *LValue) node()      {}
func (n *LValue) expr()      {}

// Indexed reports whether the lvalue addresses an array element.
func (n *LValue) Indexed() bool { return len(n.Indices) > 0 }

// Call represents a native function call.
type Call struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// Unary represents +x, -x and !x.
type Unary struct {
	SpanVal Span
	Op      Operator
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// Term represents the multiplicative tier: *, / and %.
type Term struct {
	SpanVal Span
	Op      Operator
	Left    Expr
	Right   Expr
}

func (n *Term) Span() Span { return n.SpanVal }
func (n *Term) node()      {}
func (n *Term) expr()      {}

// Sum represents the additive tier: + and -.
type Sum struct {
	SpanVal Span
	Op      Operator
	Left    Expr
	Right   Expr
}

func (n *Sum) Span() Span { return n.SpanVal }
func (n *Sum) node()      {}
func (n *Sum) expr()      {}

// Comparison represents <, >, <=, >=, == and !=.
type Comparison struct {
	SpanVal Span
	Op      Operator
	Left    Expr
	Right   Expr
}

func (n *Comparison) Span() Span { return n.SpanVal }
func (n *Comparison) node()      {}
func (n *Comparison) expr()      {}

// Logical represents && and ||. Both operands are always evaluated.
type Logical struct {
	SpanVal Span
	Op      Operator
	Left    Expr
	Right   Expr
}

func (n *Logical) Span() Span { return n.SpanVal }
func (n *Logical) node()      {}
func (n *Logical) expr()      {}

// ArrayLiteral is an initializer list [a, b, [c]]. It only appears on the
// right-hand side of an assignment or nested inside another initializer.
type ArrayLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ArrayLiteral) Span() Span { return n.SpanVal }
func (n *ArrayLiteral) node()      {}
func (n *ArrayLiteral) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Assign stores Value into Target.
type Assign struct {
	SpanVal Span
	Target  *LValue
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// If represents if (Cond) Then [else Else].
type If struct {
	SpanVal Span
	Cond    Expr
	Then    Stmt
	Else    Stmt // nil when absent
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// While represents while (Cond) Body.
type While struct {
	SpanVal Span
	Cond    Expr
	Body    Stmt
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// For represents for (Init; Cond; Update) Body. Any of the three
// header parts may be nil.
type For struct {
	SpanVal Span
	Init    *Assign
	Cond    Expr
	Update  *Assign
	Body    Stmt
}

func (n *For) Span() Span { return n.SpanVal }
func (n *For) node()      {}
func (n *For) stmt()      {}

// Return represents return [Value].
type Return struct {
	SpanVal Span
	Value   Expr // nil when absent
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// CallStmt is a function call evaluated for its effect.
type CallStmt struct {
	SpanVal Span
	Call    *Call
}

func (n *CallStmt) Span() Span { return n.SpanVal }
func (n *CallStmt) node()      {}
func (n *CallStmt) stmt()      {}

// Block is a braced statement list.
type Block struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) stmt()      {}

// Raw is template text emitted verbatim.
type Raw struct {
	SpanVal Span
	Text    string
}

func (n *Raw) Span() Span { return n.SpanVal }
func (n *Raw) node()      {}
func (n *Raw) stmt()      {}

// Break leaves the innermost loop.
type Break struct {
	SpanVal Span
}

func (n *Break) Span() Span { return n.SpanVal }
func (n *Break) node()      {}
func (n *Break) stmt()      {}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Program is the root of a parsed source file.
type Program struct {
	SpanVal Span
	Body    []Stmt
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}
