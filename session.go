package minima

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/eval"
	"github.com/chazu/minima/parser"
	"github.com/chazu/minima/runtime"
)

// Session evaluates successive inputs against one symbol table, the way
// an interactive prompt does.
type Session struct {
	ID uuid.UUID

	opts    options
	symbols *runtime.SymbolTable
	interp  *eval.Interpreter
}

// NewSession creates a session with the builtins registered.
func NewSession(opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	symbols := runtime.NewSymbolTable()
	if o.builtins {
		RegisterBuiltins(symbols, o.out)
	}
	return &Session{
		ID:      uuid.New(),
		opts:    o,
		symbols: symbols,
		interp:  eval.New(symbols, o.out),
	}
}

// Symbols returns the session's symbol table.
func (s *Session) Symbols() *runtime.SymbolTable { return s.symbols }

// Eval runs src. A lone expression such as `x + 1` is evaluated and its
// value returned; anything else is run as statements and the value of the
// last one is returned. A template session always runs src as a template.
// A syntax error for which parser.IsIncomplete holds means src needs more
// lines.
func (s *Session) Eval(ctx context.Context, src string) (runtime.Value, error) {
	if !s.opts.template {
		if expr, err := parser.ParseExpression(src); err == nil {
			defer ast.Destroy(expr, nil)
			return s.interp.Eval(ctx, expr)
		}
	}

	tree, err := parser.Parse(src, s.opts.parserOptions()...)
	if err != nil {
		return runtime.Void, fmt.Errorf("parse: %w", err)
	}
	defer ast.Destroy(tree, nil)
	return s.interp.Run(ctx, tree)
}

// Seed assigns the variables of a snapshot into the session.
func (s *Session) Seed(snap *runtime.Snapshot) error {
	return snap.Restore(s.symbols)
}

// Snapshot captures the session's variables.
func (s *Session) Snapshot() (*runtime.Snapshot, error) {
	return runtime.TakeSnapshot(s.symbols, s.ID.String())
}
