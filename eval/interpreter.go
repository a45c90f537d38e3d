// Package eval executes Minima syntax trees against a symbol table.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/runtime"
)

var log = commonlog.GetLogger("minima.eval")

// ---------------------------------------------------------------------------
// Completion: result of executing a statement
// ---------------------------------------------------------------------------

// Kind says how a statement finished.
type Kind int

const (
	Normal Kind = iota
	Break       // unwinds to the innermost loop
)

func (k Kind) String() string {
	if k == Break {
		return "break"
	}
	return "normal"
}

// Completion is the outcome of a statement that did not fail.
type Completion struct {
	Kind  Kind
	Value runtime.Value
}

func normal(v runtime.Value) Completion { return Completion{Kind: Normal, Value: v} }

// ---------------------------------------------------------------------------
// Error: a run-time error with its source location
// ---------------------------------------------------------------------------

// Error is a run-time error raised while evaluating a node. It unwraps to
// its runtime.ErrorCode, and to the native error that caused it if any.
type Error struct {
	Code  runtime.ErrorCode
	Span  ast.Span
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("line %d, column %d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Code.Name())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Code, e.Cause}
	}
	return []error{e.Code}
}

// raise attaches the location of n to err. Errors that already carry a
// location keep the innermost one.
func raise(n ast.Node, err error) error {
	var located *Error
	if errors.As(err, &located) {
		return err
	}
	var code runtime.ErrorCode
	if errors.As(err, &code) {
		return &Error{Code: code, Span: n.Span()}
	}
	return &Error{Code: runtime.ErrNativeFailure, Span: n.Span(), Cause: err}
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter walks a syntax tree. It is not safe for concurrent use.
type Interpreter struct {
	symbols *runtime.SymbolTable
	out     io.Writer
	ctx     context.Context
}

// New creates an interpreter over symbols. Raw template text is written to
// out; a nil out discards it.
func New(symbols *runtime.SymbolTable, out io.Writer) *Interpreter {
	if out == nil {
		out = io.Discard
	}
	return &Interpreter{symbols: symbols, out: out, ctx: context.Background()}
}

// Symbols returns the symbol table the interpreter evaluates against.
func (in *Interpreter) Symbols() *runtime.SymbolTable { return in.symbols }

// Run executes the top-level statements of prog in order. The first error
// stops execution. On success it returns the value of the last statement.
// Cancellation of ctx is honoured between statements and loop iterations.
func (in *Interpreter) Run(ctx context.Context, prog *ast.Program) (runtime.Value, error) {
	in.ctx = ctx
	defer func() { in.ctx = context.Background() }()

	last := runtime.Void
	for _, stmt := range prog.Body {
		if err := ctx.Err(); err != nil {
			return runtime.Void, fmt.Errorf("run interrupted: %w", err)
		}
		c, err := in.exec(stmt)
		if err != nil {
			log.Debugf("%s", err)
			return runtime.Void, err
		}
		// A break outside any loop only ends the statement list it was in.
		last = c.Value
	}
	return last, nil
}

// Exec executes a single statement outside of Run.
func (in *Interpreter) Exec(ctx context.Context, stmt ast.Stmt) (Completion, error) {
	in.ctx = ctx
	defer func() { in.ctx = context.Background() }()
	return in.exec(stmt)
}

// Eval evaluates a single expression.
func (in *Interpreter) Eval(ctx context.Context, e ast.Expr) (runtime.Value, error) {
	in.ctx = ctx
	defer func() { in.ctx = context.Background() }()
	return in.eval(e)
}

// Status maps the outcome of Run to a program exit status: the error code
// when it failed, the last value when it is an Int, and zero otherwise.
func Status(last runtime.Value, err error) int {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return -1
		}
		return int(runtime.CodeOf(err))
	}
	if last.Type() == runtime.TypeInt {
		return int(last.Int())
	}
	return 0
}
