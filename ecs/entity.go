// Package ecs implements the engine's entity-component store: entities are
// opaque 32-bit ids over a columnar, per-component store, queried in a fixed
// ascending order so that two participants iterating the same snapshot walk
// entities in the same sequence every time.
package ecs

// ID is an opaque entity identifier: the low 20 bits are a slot index into
// the store's columns, the high 12 bits are a generation counter that is
// bumped every time a slot is freed and reused. Comparing two IDs for
// equality is always enough to tell whether they name the same entity
// instance, even across a free/reallocate cycle of the same slot.
type ID uint32

const (
	indexBits = 20
	indexMask = (1 << indexBits) - 1
	genBits   = 32 - indexBits
	genMask   = (1 << genBits) - 1

	// MaxEntities is the largest number of live entities the store can hold
	// at once (the index space is indexBits wide).
	MaxEntities = 1 << indexBits

	// Nil is the zero ID: it never names a live entity, since index 0's
	// first generation is 1 (see Allocator.Allocate).
	Nil ID = 0
)

func makeID(index uint32, gen uint32) ID {
	return ID((gen&genMask)<<indexBits | (index & indexMask))
}

// Index returns the slot index encoded in the ID.
func (id ID) Index() uint32 { return uint32(id) & indexMask }

// Generation returns the generation counter encoded in the ID.
func (id ID) Generation() uint32 { return uint32(id) >> indexBits & genMask }

// IsNil reports whether id is the Nil sentinel.
func (id ID) IsNil() bool { return id == Nil }
