package ecs

import "github.com/moddio/lockstep/fixedpoint"

// FieldType enumerates the scalar storage types a component field can use.
// Fixed-point values are stored as I32 (a fixedpoint.Q is just an int32),
// there is no separate float field type: floats never touch the snapshot or
// the state hash.
type FieldType int

const (
	I8 FieldType = iota
	I16
	I32
	U8
	U16
	U32
)

// FieldSpec declares one column of a component: its name (for diagnostics
// and interning) and its storage type.
type FieldSpec struct {
	Name string
	Type FieldType
}

// Schema describes a component type: an ordered list of fields. Field order
// is significant — it is the order fields are walked when folding a
// component into the state hash and when writing it to the snapshot wire
// format, so two builds of the same schema must declare fields identically.
type Schema struct {
	Name   string
	Fields []FieldSpec
}

// Field is a single column's storage for one component, indexed by entity
// slot index. Values are stored as raw int32 regardless of declared width;
// FieldSpec.Type only describes what range of values are valid; the wire
// codec writes every value as a 4-byte int32 whatever its Type.
type Field struct {
	spec FieldSpec
	data []int32
}

func newField(spec FieldSpec, capacity int) *Field {
	return &Field{spec: spec, data: make([]int32, capacity)}
}

func (f *Field) ensure(index uint32) {
	for uint32(len(f.data)) <= index {
		f.data = append(f.data, 0)
	}
}

// Get returns the raw int32 stored for the given slot index.
func (f *Field) Get(index uint32) int32 {
	if uint32(len(f.data)) <= index {
		return 0
	}
	return f.data[index]
}

// Set stores a raw int32 for the given slot index, growing the column if
// necessary.
func (f *Field) Set(index uint32, v int32) {
	f.ensure(index)
	f.data[index] = v
}

// Fixed interprets the stored value as a Q16.16 fixed-point number.
func (f *Field) Fixed(index uint32) fixedpoint.Q {
	return fixedpoint.Q(f.Get(index))
}

// SetFixed stores a Q16.16 fixed-point number.
func (f *Field) SetFixed(index uint32, v fixedpoint.Q) {
	f.Set(index, int32(v))
}
