package runtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshots: CBOR encoding of global variables
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("runtime: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// ErrCyclicArray is returned when a snapshot meets an array that contains
// itself.
var ErrCyclicArray = errors.New("cyclic array cannot be snapshotted")

// Snapshot is a serialized view of the visible variables of a symbol
// table. Shared arrays are copied per reference.
type Snapshot struct {
	Version   int           `cbor:"1,keyasint"`
	RunID     string        `cbor:"2,keyasint,omitempty"`
	Taken     time.Time     `cbor:"3,keyasint"`
	Variables []SnapshotVar `cbor:"4,keyasint"`
}

// SnapshotVar is one named variable in a snapshot.
type SnapshotVar struct {
	Name  string        `cbor:"1,keyasint"`
	Value SnapshotValue `cbor:"2,keyasint"`
}

// SnapshotValue is the wire form of a Value.
type SnapshotValue struct {
	Type     Type            `cbor:"1,keyasint"`
	Int      int64           `cbor:"2,keyasint,omitempty"`
	Float    float64         `cbor:"3,keyasint,omitempty"`
	String   string          `cbor:"4,keyasint,omitempty"`
	Elements []SnapshotValue `cbor:"5,keyasint,omitempty"`
}

// TakeSnapshot captures the visible variables of st.
func TakeSnapshot(st *SymbolTable, runID string) (*Snapshot, error) {
	s := &Snapshot{
		Version: SnapshotVersion,
		RunID:   runID,
		Taken:   time.Now().UTC().Truncate(time.Second),
	}
	for _, v := range st.Variables() {
		sv, err := encodeValue(v.Value, make(map[*Array]bool))
		if err != nil {
			return nil, fmt.Errorf("snapshot variable %s: %w", v.Name, err)
		}
		s.Variables = append(s.Variables, SnapshotVar{Name: v.Name, Value: sv})
	}
	return s, nil
}

func encodeValue(v Value, path map[*Array]bool) (SnapshotValue, error) {
	sv := SnapshotValue{Type: v.typ}
	switch v.typ {
	case TypeBool, TypeInt:
		sv.Int = v.i
	case TypeFloat:
		sv.Float = v.f
	case TypeString:
		sv.String = v.s
	case TypeArray:
		if path[v.a] {
			return sv, ErrCyclicArray
		}
		path[v.a] = true
		defer delete(path, v.a)
		sv.Elements = make([]SnapshotValue, 0, v.a.Len())
		for _, el := range v.a.elems {
			esv, err := encodeValue(el, path)
			if err != nil {
				return sv, err
			}
			sv.Elements = append(sv.Elements, esv)
		}
	}
	return sv, nil
}

// Value rebuilds the runtime value, allocating fresh arrays.
func (sv SnapshotValue) Value() (Value, error) {
	switch sv.Type {
	case TypeVoid:
		return Void, nil
	case TypeBool:
		return FromBool(sv.Int != 0), nil
	case TypeInt:
		return FromInt(sv.Int), nil
	case TypeFloat:
		return FromFloat64(sv.Float), nil
	case TypeString:
		return FromString(sv.String), nil
	case TypeArray:
		a := NewArray(len(sv.Elements))
		for i, el := range sv.Elements {
			v, err := el.Value()
			if err != nil {
				return Void, err
			}
			if err := a.Append(v); err != nil {
				return Void, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return FromArray(a), nil
	}
	return Void, fmt.Errorf("unknown value type %d", int(sv.Type))
}

// Restore assigns every snapshot variable into st.
func (s *Snapshot) Restore(st *SymbolTable) error {
	for _, sv := range s.Variables {
		v, err := sv.Value.Value()
		if err != nil {
			return fmt.Errorf("restore variable %s: %w", sv.Name, err)
		}
		st.Set(sv.Name, v)
	}
	log.Debugf("restored %d variables from snapshot %s", len(s.Variables), s.RunID)
	return nil
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("runtime: unmarshal snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("runtime: unsupported snapshot version %d", s.Version)
	}
	return &s, nil
}
