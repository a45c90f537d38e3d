package eval

import (
	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/runtime"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) eval(e ast.Expr) (runtime.Value, error) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return runtime.FromInt(n.Value), nil

	case *ast.FloatLiteral:
		return runtime.FromFloat64(n.Value), nil

	case *ast.StringLiteral:
		return runtime.FromString(n.Value), nil

	case *ast.BoolLiteral:
		return runtime.FromBool(n.Value), nil

	case *ast.LValue:
		return in.load(n)

	case *ast.Call:
		return in.call(n)

	case *ast.Unary:
		v, err := in.eval(n.Operand)
		if err != nil {
			return runtime.Void, err
		}
		v, err = unary(n.Op, v)
		if err != nil {
			return runtime.Void, raise(n, err)
		}
		return v, nil

	case *ast.Term:
		return in.binary(n, n.Op, n.Left, n.Right, arithmetic)

	case *ast.Sum:
		return in.binary(n, n.Op, n.Left, n.Right, arithmetic)

	case *ast.Comparison:
		return in.binary(n, n.Op, n.Left, n.Right, compare)

	case *ast.Logical:
		return in.binary(n, n.Op, n.Left, n.Right, logical)

	case *ast.ArrayLiteral:
		return in.initializer(n)
	}

	log.Errorf("cannot evaluate %T", e)
	return runtime.Void, raise(e, runtime.ErrNotImplemented)
}

// binary evaluates both operands left to right, then applies apply.
func (in *Interpreter) binary(
	n ast.Node,
	op ast.Operator,
	left, right ast.Expr,
	apply func(ast.Operator, runtime.Value, runtime.Value) (runtime.Value, error),
) (runtime.Value, error) {
	l, err := in.eval(left)
	if err != nil {
		return runtime.Void, err
	}
	r, err := in.eval(right)
	if err != nil {
		return runtime.Void, err
	}
	v, err := apply(op, l, r)
	if err != nil {
		return runtime.Void, raise(n, err)
	}
	return v, nil
}

// initializer builds a fresh array from an array literal. Nested literals
// become nested arrays.
func (in *Interpreter) initializer(n *ast.ArrayLiteral) (runtime.Value, error) {
	arr := runtime.NewArray(len(n.Elements))
	for _, el := range n.Elements {
		v, err := in.eval(el)
		if err != nil {
			return runtime.Void, err
		}
		if err := arr.Append(v); err != nil {
			return runtime.Void, raise(el, err)
		}
	}
	return runtime.FromArray(arr), nil
}

// ---------------------------------------------------------------------------
// LValues
// ---------------------------------------------------------------------------

// slot is a resolved storage location: a variable, or an element of an
// array reached through the variable.
type slot struct {
	variable *runtime.Variable
	array    *runtime.Array // nil for a plain variable
	index    int64
}

func (s slot) get() runtime.Value {
	if s.array == nil {
		return s.variable.Value
	}
	v, _ := s.array.At(s.index)
	return v
}

// resolve walks the index chain of lv. Every index is evaluated left to
// right and must land inside an array.
func (in *Interpreter) resolve(lv *ast.LValue) (slot, error) {
	variable, ok := in.symbols.Variable(lv.Name)
	if !ok {
		return slot{}, raise(lv, runtime.ErrUninitializedVariableAccess)
	}

	s := slot{variable: variable}
	current := variable.Value
	for _, ixExpr := range lv.Indices {
		ixVal, err := in.eval(ixExpr)
		if err != nil {
			return slot{}, err
		}
		arr := current.Array()
		if arr == nil {
			return slot{}, raise(ixExpr, runtime.ErrIndexingNonArrayType)
		}
		i, err := index(ixVal)
		if err != nil {
			return slot{}, raise(ixExpr, err)
		}
		current, err = arr.At(i)
		if err != nil {
			return slot{}, raise(ixExpr, err)
		}
		s.array, s.index = arr, i
	}
	return s, nil
}

func (in *Interpreter) load(lv *ast.LValue) (runtime.Value, error) {
	s, err := in.resolve(lv)
	if err != nil {
		return runtime.Void, err
	}
	v := s.get()
	if v.IsVoid() {
		return runtime.Void, raise(lv, runtime.ErrUninitializedVariableAccess)
	}
	return v, nil
}

// store assigns v to the location named by lv. A plain name is created in
// the innermost scope when it is not visible.
func (in *Interpreter) store(lv *ast.LValue, v runtime.Value) error {
	if v.IsVoid() {
		return raise(lv, runtime.ErrUnsupportedOperation)
	}
	if !lv.Indexed() {
		in.symbols.Set(lv.Name, v)
		return nil
	}

	s, err := in.resolve(lv)
	if err != nil {
		return err
	}
	if err := s.array.Set(s.index, v); err != nil {
		return raise(lv, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (in *Interpreter) call(n *ast.Call) (runtime.Value, error) {
	fn, ok := in.symbols.Function(n.Name)
	if !ok {
		return runtime.Void, raise(n, runtime.ErrUndefinedFunction)
	}
	if !fn.Variadic && len(n.Args) != fn.Arity() {
		return runtime.Void, raise(n, runtime.ErrIncorrectArgumentCount)
	}

	args := make([]runtime.Value, 0, len(n.Args))
	for i, argExpr := range n.Args {
		v, err := in.eval(argExpr)
		if err != nil {
			return runtime.Void, err
		}
		if i < fn.Arity() {
			if want := fn.Params[i].Type; want != runtime.TypeAny && want != v.Type() {
				return runtime.Void, raise(argExpr, runtime.ErrIncorrectArgumentType)
			}
		}
		args = append(args, v)
	}

	if fn.Native == nil {
		log.Errorf("function %s has no implementation", fn.Name)
		return runtime.Void, raise(n, runtime.ErrNativeFailure)
	}
	result, err := fn.Native(args)
	if err != nil {
		log.Debugf("%s: %s", fn.Name, err)
		return runtime.Void, raise(n, err)
	}
	return result, nil
}
