package ecs

// ActionKind distinguishes the shape of a single input action.
type ActionKind int

const (
	ActionButton ActionKind = iota // 0 or 1
	ActionAxis                     // signed fixed-point scalar, e.g. a throttle
	ActionVector2                  // a pair of fixed-point fields, e.g. a stick
)

// ActionSpec declares one named action a client can report per frame.
type ActionSpec struct {
	Name string
	Kind ActionKind
}

// ActionSchema is the ordered set of actions a game declares up front. It
// replaces a free-form "any JSON blob" input shape with a fixed, validated
// layout — INPUT-HIST can then diff two frames' worth of input with a plain
// field comparison instead of a deep structural one.
type ActionSchema struct {
	Actions []ActionSpec
	index   map[string]int
}

// NewActionSchema builds a schema from its ordered action list.
func NewActionSchema(actions []ActionSpec) *ActionSchema {
	idx := make(map[string]int, len(actions))
	for i, a := range actions {
		idx[a.Name] = i
	}
	return &ActionSchema{Actions: actions, index: idx}
}

// ActionFrame is one client's full input for one frame: a fixed-size slot
// per declared action. ActionVector2 occupies two consecutive slots (x, y).
type ActionFrame struct {
	schema *ActionSchema
	values []int32
}

func (s *ActionSchema) slotCount() int {
	n := 0
	for _, a := range s.Actions {
		if a.Kind == ActionVector2 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// NewFrame returns a zero-valued ActionFrame for this schema.
func (s *ActionSchema) NewFrame() ActionFrame {
	return ActionFrame{schema: s, values: make([]int32, s.slotCount())}
}

func (s *ActionSchema) slotOf(name string) (int, ActionKind, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, 0, false
	}
	offset := 0
	for j := 0; j < i; j++ {
		if s.Actions[j].Kind == ActionVector2 {
			offset += 2
		} else {
			offset++
		}
	}
	return offset, s.Actions[i].Kind, true
}

// SetButton records a button action's state.
func (f *ActionFrame) SetButton(name string, pressed bool) {
	offset, _, ok := f.schema.slotOf(name)
	if !ok {
		return
	}
	v := int32(0)
	if pressed {
		v = 1
	}
	f.values[offset] = v
}

// Button reads a button action's state.
func (f *ActionFrame) Button(name string) bool {
	offset, _, ok := f.schema.slotOf(name)
	return ok && f.values[offset] != 0
}

// SetAxis records an axis action's raw fixed-point value.
func (f *ActionFrame) SetAxis(name string, v int32) {
	offset, _, ok := f.schema.slotOf(name)
	if ok {
		f.values[offset] = v
	}
}

// Axis reads an axis action's raw fixed-point value.
func (f *ActionFrame) Axis(name string) int32 {
	offset, _, ok := f.schema.slotOf(name)
	if !ok {
		return 0
	}
	return f.values[offset]
}

// SetVector2 records a two-axis action's raw fixed-point components.
func (f *ActionFrame) SetVector2(name string, x, y int32) {
	offset, kind, ok := f.schema.slotOf(name)
	if !ok || kind != ActionVector2 {
		return
	}
	f.values[offset] = x
	f.values[offset+1] = y
}

// Vector2 reads a two-axis action's raw fixed-point components.
func (f *ActionFrame) Vector2(name string) (x, y int32) {
	offset, kind, ok := f.schema.slotOf(name)
	if !ok || kind != ActionVector2 {
		return 0, 0
	}
	return f.values[offset], f.values[offset+1]
}

// Equal reports whether two frames of the same schema carry identical
// values — the shallow-equality check INPUT-HIST uses to detect a
// misprediction once a confirmed input arrives.
func (f ActionFrame) Equal(other ActionFrame) bool {
	if len(f.values) != len(other.values) {
		return false
	}
	for i := range f.values {
		if f.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the frame.
func (f ActionFrame) Clone() ActionFrame {
	values := make([]int32, len(f.values))
	copy(values, f.values)
	return ActionFrame{schema: f.schema, values: values}
}
