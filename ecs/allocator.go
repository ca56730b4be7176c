package ecs

// Allocator hands out and recycles entity slot indices. Freed indices are
// reused through a LIFO free list, and each reuse bumps that slot's
// generation so a stale ID captured before a Free can never alias the new
// occupant of the same slot.
type Allocator struct {
	generations []uint32 // generation currently live at each index
	alive       []bool
	free        []uint32 // LIFO free list of reusable indices
	liveCount   int
}

// NewAllocator returns an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate returns a fresh ID, reusing the most recently freed slot if one
// is available.
func (a *Allocator) Allocate() ID {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
		a.generations[index]++
	} else {
		index = uint32(len(a.generations))
		a.generations = append(a.generations, 1)
		a.alive = append(a.alive, false)
	}
	a.alive[index] = true
	a.liveCount++
	return makeID(index, a.generations[index])
}

// Free releases id's slot back to the free list. Freeing an ID that is not
// currently alive (already freed, or stale from a prior generation) is a
// no-op.
func (a *Allocator) Free(id ID) {
	if !a.IsAlive(id) {
		return
	}
	index := id.Index()
	a.alive[index] = false
	a.free = append(a.free, index)
	a.liveCount--
}

// IsAlive reports whether id names a currently-live entity: its slot must be
// marked alive and its generation must match the slot's current generation.
func (a *Allocator) IsAlive(id ID) bool {
	index := id.Index()
	if int(index) >= len(a.generations) {
		return false
	}
	return a.alive[index] && a.generations[index] == id.Generation()
}

// Capacity returns the number of slots ever allocated (alive or freed).
func (a *Allocator) Capacity() int { return len(a.generations) }

// LiveCount returns the number of currently-alive entities.
func (a *Allocator) LiveCount() int { return a.liveCount }

// Reset clears all allocations, as though the Allocator were freshly
// constructed. Used when loading a snapshot wholesale.
func (a *Allocator) Reset() {
	a.generations = a.generations[:0]
	a.alive = a.alive[:0]
	a.free = a.free[:0]
	a.liveCount = 0
}

// restoreSlot is used by snapshot loading to recreate a specific (index,
// generation) pair without going through the normal allocate path.
func (a *Allocator) restoreSlot(index, gen uint32) {
	for uint32(len(a.generations)) <= index {
		a.generations = append(a.generations, 0)
		a.alive = append(a.alive, false)
	}
	a.generations[index] = gen
	a.alive[index] = true
	a.liveCount++
}

// AllocatorState is the allocator's full internal state: every slot's
// generation and liveness, plus the free list. Unlike a sparse entity
// snapshot (which only needs currently-alive entities to reproduce visible
// state), reusing a freed slot after a snapshot reload must still bump the
// same generation on every participant — so a wire format that cares about
// long-run determinism, not just the next few frames, has to carry this
// too.
type AllocatorState struct {
	Generations []uint32
	Alive       []bool
	Free        []uint32
}

// SaveState captures the allocator's full internal state.
func (a *Allocator) SaveState() AllocatorState {
	gens := make([]uint32, len(a.generations))
	copy(gens, a.generations)
	alive := make([]bool, len(a.alive))
	copy(alive, a.alive)
	free := make([]uint32, len(a.free))
	copy(free, a.free)
	return AllocatorState{Generations: gens, Alive: alive, Free: free}
}

// LoadState replaces the allocator's internal state wholesale.
func (a *Allocator) LoadState(st AllocatorState) {
	a.generations = append([]uint32(nil), st.Generations...)
	a.alive = append([]bool(nil), st.Alive...)
	a.free = append([]uint32(nil), st.Free...)
	a.liveCount = 0
	for _, v := range a.alive {
		if v {
			a.liveCount++
		}
	}
}
