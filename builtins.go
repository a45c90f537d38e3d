package minima

import (
	"fmt"
	"io"

	"github.com/chazu/minima/runtime"
)

// Builtin describes a native function every program starts with.
type Builtin struct {
	Name   string
	Params []runtime.Param
	Doc    string
}

// Builtins lists the standard native functions.
var Builtins = []Builtin{
	{
		Name:   "print",
		Params: []runtime.Param{{Name: "value", Type: runtime.TypeAny}},
		Doc: "Writes value without a trailing newline. Floats print with six " +
			"decimals; arrays print one element per line.",
	},
	{
		Name:   "array_size",
		Params: []runtime.Param{{Name: "array", Type: runtime.TypeArray}},
		Doc:    "Returns the number of elements in array.",
	},
	{
		Name: "array_append",
		Params: []runtime.Param{
			{Name: "array", Type: runtime.TypeArray},
			{Name: "element", Type: runtime.TypeAny},
		},
		Doc: "Appends element to array in place. Arrays are appended by reference.",
	},
}

// LookupBuiltin finds a builtin by name.
func LookupBuiltin(name string) (Builtin, bool) {
	for _, b := range Builtins {
		if b.Name == name {
			return b, true
		}
	}
	return Builtin{}, false
}

// RegisterBuiltins adds the standard native functions to st. print writes
// to out.
func RegisterBuiltins(st *runtime.SymbolTable, out io.Writer) {
	impls := map[string]runtime.NativeFunc{
		"print":        printFunc(out),
		"array_size":   arraySize,
		"array_append": arrayAppend,
	}
	for _, b := range Builtins {
		f := st.CreateFunction(impls[b.Name], b.Name, len(b.Params), false)
		copy(f.Params, b.Params)
	}
}

func printFunc(out io.Writer) runtime.NativeFunc {
	return func(args []runtime.Value) (runtime.Value, error) {
		var err error
		if a := args[0].Array(); a != nil {
			err = a.Fprint(out)
		} else {
			_, err = io.WriteString(out, args[0].String())
		}
		if err != nil {
			return runtime.Void, fmt.Errorf("print: %w", err)
		}
		return runtime.Void, nil
	}
}

func arraySize(args []runtime.Value) (runtime.Value, error) {
	return runtime.FromInt(int64(args[0].Array().Len())), nil
}

func arrayAppend(args []runtime.Value) (runtime.Value, error) {
	if err := args[0].Array().Append(args[1]); err != nil {
		return runtime.Void, err
	}
	return runtime.Void, nil
}
