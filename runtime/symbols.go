package runtime

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("minima.runtime")

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

// Variable is a named value declared at some scope level.
type Variable struct {
	Name  string
	Value Value
	Scope int // 0 is the global scope
}

// NativeFunc is the Go implementation of a Minima function. A returned
// error that is an ErrorCode keeps its code; any other error surfaces as
// ErrNativeFailure.
type NativeFunc func(args []Value) (Value, error)

// Param is a declared function parameter.
type Param struct {
	Name string
	Type Type
}

// Function is a registered native function.
type Function struct {
	Name     string
	Params   []Param
	Variadic bool // skips the argument count and type checks
	Native   NativeFunc
}

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Params) }

// SetParam declares the name and type of parameter index.
func (f *Function) SetParam(index int, name string, t Type) error {
	if index < 0 || index >= len(f.Params) {
		return fmt.Errorf("function %s: parameter index %d out of range (arity %d)", f.Name, index, len(f.Params))
	}
	f.Params[index] = Param{Name: name, Type: t}
	return nil
}

// Signature renders the function as name(type name, ...).
func (f *Function) Signature() string {
	s := f.Name + "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Type.String()
		if p.Name != "" {
			s += " " + p.Name
		}
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			s += ", "
		}
		s += "..."
	}
	return s + ")"
}

// ---------------------------------------------------------------------------
// SymbolTable
// ---------------------------------------------------------------------------

// SymbolTable maps names to variables and native functions. Variables live
// in a stack of scopes; functions are global.
type SymbolTable struct {
	scopes    []map[string]*Variable
	functions map[string]*Function
}

// NewSymbolTable creates a table with an empty global scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		scopes:    []map[string]*Variable{make(map[string]*Variable)},
		functions: make(map[string]*Function),
	}
}

// Scope returns the current scope level; 0 is global.
func (st *SymbolTable) Scope() int { return len(st.scopes) - 1 }

// PushScope opens a new innermost scope.
func (st *SymbolTable) PushScope() {
	st.scopes = append(st.scopes, make(map[string]*Variable))
}

// PopScope closes the innermost scope, discarding the variables declared in
// it. The global scope is never popped.
func (st *SymbolTable) PopScope() {
	if len(st.scopes) == 1 {
		log.Warning("attempt to pop the global scope")
		return
	}
	st.scopes[len(st.scopes)-1] = nil
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Create declares name in the innermost scope with a Void value. An
// existing declaration in that scope is returned unchanged.
func (st *SymbolTable) Create(name string) *Variable {
	inner := st.scopes[len(st.scopes)-1]
	if v, ok := inner[name]; ok {
		return v
	}
	v := &Variable{Name: name, Scope: st.Scope()}
	inner[name] = v
	return v
}

// Variable finds the innermost visible variable called name.
func (st *SymbolTable) Variable(name string) (*Variable, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if v, ok := st.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set assigns value to the visible variable called name, declaring it in
// the innermost scope when there is none.
func (st *SymbolTable) Set(name string, value Value) *Variable {
	v, ok := st.Variable(name)
	if !ok {
		v = st.Create(name)
	}
	v.Value = value
	return v
}

// SetBool assigns a Bool to name.
func (st *SymbolTable) SetBool(name string, b bool) *Variable { return st.Set(name, FromBool(b)) }

// SetInt assigns an Int to name.
func (st *SymbolTable) SetInt(name string, n int64) *Variable { return st.Set(name, FromInt(n)) }

// SetFloat assigns a Float to name.
func (st *SymbolTable) SetFloat(name string, f float64) *Variable {
	return st.Set(name, FromFloat64(f))
}

// SetString assigns a String to name.
func (st *SymbolTable) SetString(name string, s string) *Variable {
	return st.Set(name, FromString(s))
}

// SetArray assigns an Array handle to name.
func (st *SymbolTable) SetArray(name string, a *Array) *Variable {
	return st.Set(name, FromArray(a))
}

// Variables returns the visible variables sorted by name. Inner
// declarations shadow outer ones.
func (st *SymbolTable) Variables() []*Variable {
	seen := make(map[string]*Variable)
	for i := len(st.scopes) - 1; i >= 0; i-- {
		for name, v := range st.scopes[i] {
			if _, ok := seen[name]; !ok {
				seen[name] = v
			}
		}
	}
	out := make([]*Variable, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateFunction registers fn under name with arity parameters of type
// Any. Use SetParam to declare parameter names and types. Registering a
// name again replaces the previous function.
func (st *SymbolTable) CreateFunction(fn NativeFunc, name string, arity int, variadic bool) *Function {
	if arity < 0 {
		arity = 0
	}
	f := &Function{
		Name:     name,
		Params:   make([]Param, arity),
		Variadic: variadic,
		Native:   fn,
	}
	for i := range f.Params {
		f.Params[i].Type = TypeAny
	}
	if _, ok := st.functions[name]; ok {
		log.Debugf("function %s redefined", name)
	}
	st.functions[name] = f
	return f
}

// Function finds the function called name.
func (st *SymbolTable) Function(name string) (*Function, bool) {
	f, ok := st.functions[name]
	return f, ok
}

// Functions returns the registered functions sorted by name.
func (st *SymbolTable) Functions() []*Function {
	out := make([]*Function, 0, len(st.functions))
	for _, f := range st.functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Destroy empties every array held by a visible variable.
func (st *SymbolTable) Destroy() {
	for _, v := range st.Variables() {
		if a := v.Value.Array(); a != nil {
			a.Destroy()
		}
	}
}
