package eval

import (
	"fmt"
	"io"

	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/runtime"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) exec(stmt ast.Stmt) (Completion, error) {
	switch n := stmt.(type) {
	case *ast.Assign:
		v, err := in.eval(n.Value)
		if err != nil {
			return Completion{}, err
		}
		if err := in.store(n.Target, v); err != nil {
			return Completion{}, err
		}
		return normal(v), nil

	case *ast.CallStmt:
		v, err := in.call(n.Call)
		if err != nil {
			return Completion{}, err
		}
		return normal(v), nil

	case *ast.Block:
		in.symbols.PushScope()
		defer in.symbols.PopScope()
		return in.execList(n.Stmts)

	case *ast.If:
		return in.execIf(n)

	case *ast.While:
		return in.execWhile(n)

	case *ast.For:
		return in.execFor(n)

	case *ast.Return:
		if n.Value != nil {
			if _, err := in.eval(n.Value); err != nil {
				return Completion{}, err
			}
		}
		return normal(runtime.Void), nil

	case *ast.Break:
		return Completion{Kind: Break}, nil

	case *ast.Raw:
		if _, err := io.WriteString(in.out, n.Text); err != nil {
			return Completion{}, fmt.Errorf("write template text: %w", err)
		}
		return normal(runtime.Void), nil
	}

	log.Errorf("cannot execute %T", stmt)
	return Completion{}, raise(stmt, runtime.ErrNotImplemented)
}

// execList runs statements until one fails or breaks. A list that runs to
// the end completes normally with Void.
func (in *Interpreter) execList(stmts []ast.Stmt) (Completion, error) {
	for _, stmt := range stmts {
		c, err := in.exec(stmt)
		if err != nil || c.Kind == Break {
			return c, err
		}
	}
	return normal(runtime.Void), nil
}

// scoped runs stmt in a fresh scope.
func (in *Interpreter) scoped(stmt ast.Stmt) (Completion, error) {
	in.symbols.PushScope()
	defer in.symbols.PopScope()
	return in.exec(stmt)
}

func (in *Interpreter) condition(e ast.Expr) (bool, error) {
	v, err := in.eval(e)
	if err != nil {
		return false, err
	}
	ok, err := truth(v)
	if err != nil {
		return false, raise(e, err)
	}
	return ok, nil
}

func (in *Interpreter) execIf(n *ast.If) (Completion, error) {
	ok, err := in.condition(n.Cond)
	if err != nil {
		return Completion{}, err
	}

	var c Completion
	switch {
	case ok:
		c, err = in.scoped(n.Then)
	case n.Else != nil:
		c, err = in.scoped(n.Else)
	}
	if err != nil || c.Kind == Break {
		return c, err
	}
	return normal(runtime.Void), nil
}

func (in *Interpreter) execWhile(n *ast.While) (Completion, error) {
	for {
		if err := in.ctx.Err(); err != nil {
			return Completion{}, fmt.Errorf("run interrupted: %w", err)
		}
		ok, err := in.condition(n.Cond)
		if err != nil {
			return Completion{}, err
		}
		if !ok {
			break
		}
		c, err := in.scoped(n.Body)
		if err != nil {
			return Completion{}, err
		}
		if c.Kind == Break {
			break
		}
	}
	return normal(runtime.Void), nil
}

// execFor runs the init assignment in a scope that stays open for the
// whole loop, so the loop variable is visible to condition, update and
// body but not after the loop.
func (in *Interpreter) execFor(n *ast.For) (Completion, error) {
	in.symbols.PushScope()
	defer in.symbols.PopScope()

	if n.Init != nil {
		if _, err := in.exec(n.Init); err != nil {
			return Completion{}, err
		}
	}

	for {
		if err := in.ctx.Err(); err != nil {
			return Completion{}, fmt.Errorf("run interrupted: %w", err)
		}
		if n.Cond != nil {
			ok, err := in.condition(n.Cond)
			if err != nil {
				return Completion{}, err
			}
			if !ok {
				break
			}
		}
		c, err := in.scoped(n.Body)
		if err != nil {
			return Completion{}, err
		}
		if c.Kind == Break {
			break
		}
		if n.Update != nil {
			if _, err := in.exec(n.Update); err != nil {
				return Completion{}, err
			}
		}
	}
	return normal(runtime.Void), nil
}
