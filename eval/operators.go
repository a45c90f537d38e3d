package eval

import (
	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/runtime"
)

// ---------------------------------------------------------------------------
// Operator semantics
// ---------------------------------------------------------------------------

// promote returns the result type of an arithmetic operation on l and r:
// String wins over Float, Float over Int. Bool counts as Int. Arrays and
// Void have no arithmetic.
func promote(l, r runtime.Value) (runtime.Type, bool) {
	rank := func(v runtime.Value) int {
		switch v.Type() {
		case runtime.TypeBool, runtime.TypeInt:
			return 1
		case runtime.TypeFloat:
			return 2
		case runtime.TypeString:
			return 3
		}
		return 0
	}
	lr, rr := rank(l), rank(r)
	if lr == 0 || rr == 0 {
		return runtime.TypeVoid, false
	}
	switch max(lr, rr) {
	case 3:
		return runtime.TypeString, true
	case 2:
		return runtime.TypeFloat, true
	}
	return runtime.TypeInt, true
}

// arithmetic applies * / % + -.
func arithmetic(op ast.Operator, l, r runtime.Value) (runtime.Value, error) {
	typ, ok := promote(l, r)
	if !ok {
		return runtime.Void, runtime.ErrUnsupportedOperation
	}

	if op == ast.OpMod {
		if typ == runtime.TypeString {
			return runtime.Void, runtime.ErrUnsupportedOperation
		}
		d := r.Int()
		if d == 0 {
			return runtime.Void, runtime.ErrDivideByZero
		}
		return runtime.FromInt(l.Int() % d), nil
	}

	switch typ {
	case runtime.TypeString:
		return runtime.Void, runtime.ErrNotImplemented

	case runtime.TypeFloat:
		a, b := l.Float64(), r.Float64()
		switch op {
		case ast.OpAdd:
			return runtime.FromFloat64(a + b), nil
		case ast.OpSub:
			return runtime.FromFloat64(a - b), nil
		case ast.OpMul:
			return runtime.FromFloat64(a * b), nil
		case ast.OpDiv:
			if b == 0 {
				return runtime.Void, runtime.ErrDivideByZero
			}
			return runtime.FromFloat64(a / b), nil
		}

	default:
		a, b := l.Int(), r.Int()
		switch op {
		case ast.OpAdd:
			return runtime.FromInt(a + b), nil
		case ast.OpSub:
			return runtime.FromInt(a - b), nil
		case ast.OpMul:
			return runtime.FromInt(a * b), nil
		case ast.OpDiv:
			if b == 0 {
				return runtime.Void, runtime.ErrDivideByZero
			}
			return runtime.FromInt(a / b), nil
		}
	}

	log.Errorf("unknown arithmetic operator %s", op)
	return runtime.Void, runtime.ErrNotImplemented
}

// compare applies the relational operators. Only numeric operands compare.
func compare(op ast.Operator, l, r runtime.Value) (runtime.Value, error) {
	if !l.IsNumeric() || !r.IsNumeric() {
		return runtime.Void, runtime.ErrUnsupportedOperation
	}

	var c int
	if l.Type() == runtime.TypeFloat || r.Type() == runtime.TypeFloat {
		a, b := l.Float64(), r.Float64()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		case a != b: // NaN
			return runtime.FromBool(op == ast.OpNotEq), nil
		}
	} else {
		a, b := l.Int(), r.Int()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	}

	switch op {
	case ast.OpLt:
		return runtime.FromBool(c < 0), nil
	case ast.OpGt:
		return runtime.FromBool(c > 0), nil
	case ast.OpLte:
		return runtime.FromBool(c <= 0), nil
	case ast.OpGte:
		return runtime.FromBool(c >= 0), nil
	case ast.OpEq:
		return runtime.FromBool(c == 0), nil
	case ast.OpNotEq:
		return runtime.FromBool(c != 0), nil
	}

	log.Errorf("unknown comparison operator %s", op)
	return runtime.Void, runtime.ErrNotImplemented
}

// logical applies && and ||. Both operands have already been evaluated.
func logical(op ast.Operator, l, r runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.OpAnd:
		return runtime.FromBool(l.IsTruthy() && r.IsTruthy()), nil
	case ast.OpOr:
		return runtime.FromBool(l.IsTruthy() || r.IsTruthy()), nil
	}
	log.Errorf("unknown logical operator %s", op)
	return runtime.Void, runtime.ErrNotImplemented
}

// unary applies prefix + - and !.
func unary(op ast.Operator, v runtime.Value) (runtime.Value, error) {
	if op == ast.OpNot {
		return runtime.FromBool(!v.IsTruthy()), nil
	}
	if !v.IsNumeric() {
		return runtime.Void, runtime.ErrUnsupportedOperation
	}

	switch op {
	case ast.OpPlus:
		if v.Type() == runtime.TypeFloat {
			return v, nil
		}
		return runtime.FromInt(v.Int()), nil
	case ast.OpMinus:
		if v.Type() == runtime.TypeFloat {
			return runtime.FromFloat64(-v.Float64()), nil
		}
		return runtime.FromInt(-v.Int()), nil
	}

	log.Errorf("unknown unary operator %s", op)
	return runtime.Void, runtime.ErrNotImplemented
}

// index converts an index value to an int64.
func index(v runtime.Value) (int64, error) {
	switch v.Type() {
	case runtime.TypeInt, runtime.TypeBool:
		return v.Int(), nil
	}
	return 0, runtime.ErrArrayIndexType
}

// truth evaluates a loop or branch condition.
func truth(v runtime.Value) (bool, error) {
	if !v.IsNumeric() {
		return false, runtime.ErrUnsupportedOperation
	}
	return v.IsTruthy(), nil
}
