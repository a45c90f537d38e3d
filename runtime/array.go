package runtime

import (
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// Array: growable heterogeneous buffer
// ---------------------------------------------------------------------------

// Array is a growable buffer of tagged values. Nested arrays are stored by
// handle, so one array may appear in several places.
type Array struct {
	elems []Value
}

// NewArray creates an empty array with the given initial capacity.
func NewArray(capacity int) *Array {
	if capacity < 0 {
		capacity = 0
	}
	return &Array{elems: make([]Value, 0, capacity)}
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// Cap returns the current capacity.
func (a *Array) Cap() int { return cap(a.elems) }

// grow doubles the capacity when the array is full, starting at 1.
func (a *Array) grow() {
	if len(a.elems) < cap(a.elems) {
		return
	}
	n := cap(a.elems) * 2
	if n < 1 {
		n = 1
	}
	elems := make([]Value, len(a.elems), n)
	copy(elems, a.elems)
	a.elems = elems
}

// Append adds v to the end of the array. Void cannot be stored.
func (a *Array) Append(v Value) error {
	if v.IsVoid() || v.typ == TypeAny {
		return ErrUnsupportedOperation
	}
	a.grow()
	a.elems = append(a.elems, v)
	return nil
}

// AddBool appends a Bool.
func (a *Array) AddBool(b bool) { _ = a.Append(FromBool(b)) }

// AddInt appends an Int.
func (a *Array) AddInt(n int64) { _ = a.Append(FromInt(n)) }

// AddFloat appends a Float.
func (a *Array) AddFloat(f float64) { _ = a.Append(FromFloat64(f)) }

// AddString appends a String.
func (a *Array) AddString(s string) { _ = a.Append(FromString(s)) }

// AddArray appends a handle to sub. A nil sub is ignored.
func (a *Array) AddArray(sub *Array) {
	if sub != nil {
		_ = a.Append(FromArray(sub))
	}
}

// At returns the element at index i.
func (a *Array) At(i int64) (Value, error) {
	if i < 0 || i >= int64(len(a.elems)) {
		return Void, ErrArrayIndexOutOfBounds
	}
	return a.elems[i], nil
}

// Set replaces the element at index i.
func (a *Array) Set(i int64, v Value) error {
	if i < 0 || i >= int64(len(a.elems)) {
		return ErrArrayIndexOutOfBounds
	}
	if v.IsVoid() || v.typ == TypeAny {
		return ErrUnsupportedOperation
	}
	a.elems[i] = v
	return nil
}

// Values returns a copy of the elements.
func (a *Array) Values() []Value {
	out := make([]Value, len(a.elems))
	copy(out, a.elems)
	return out
}

// Destroy empties the array and every array reachable from it. The array
// may still be used afterwards and is empty.
func (a *Array) Destroy() {
	elems := a.elems
	a.elems = nil
	for _, v := range elems {
		if v.typ == TypeArray {
			v.a.Destroy()
		}
	}
}

// Fprint writes one line per element, descending into sub-arrays.
func (a *Array) Fprint(w io.Writer) error {
	return a.fprint(w, make(map[*Array]bool))
}

func (a *Array) fprint(w io.Writer, path map[*Array]bool) error {
	path[a] = true
	defer delete(path, a)

	for _, v := range a.elems {
		var err error
		switch v.typ {
		case TypeBool:
			_, err = fmt.Fprintf(w, "BOOL: %t\n", v.i != 0)
		case TypeInt:
			_, err = fmt.Fprintf(w, "INT: %d\n", v.i)
		case TypeFloat:
			_, err = fmt.Fprintf(w, "FLOAT: %.2f\n", v.f)
		case TypeString:
			_, err = fmt.Fprintf(w, "STRING: %s\n", v.s)
		case TypeArray:
			if path[v.a] {
				_, err = fmt.Fprintln(w, "SUB-ARRAY: (cycle)")
				break
			}
			if _, err = fmt.Fprintln(w, "SUB-ARRAY:"); err == nil {
				err = v.a.fprint(w, path)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
