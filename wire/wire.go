// Package wire is the binary codec for the engine's portable state: a
// sparse entity snapshot, the allocator's free-list bookkeeping, and the
// PRNG stream, all as one self-describing byte blob a participant can send
// to a late joiner or restore from after a resync. It deliberately inlines
// component and field names per entity rather than requiring the reader to
// already share a schema registry, trading a few bytes of repetition for a
// format that never gets out of sync with the two ends' code.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/moddio/lockstep/ecs"
	"github.com/moddio/lockstep/rng"
)

// Version is the wire format's version tag, bumped whenever the layout
// changes incompatibly.
const Version uint8 = 1

// State is everything needed to resume a simulation bit-for-bit: the entity
// snapshot, the allocator's full bookkeeping, and the RNG stream.
type State struct {
	Snapshot  ecs.Snapshot
	Allocator ecs.AllocatorState
	RNG       rng.State
}

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("wire: truncated input, need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// Encode serializes a State into a single byte slice.
func Encode(st State) []byte {
	w := &writer{}
	w.u8(Version)
	w.u32(st.Snapshot.Frame)
	postTick := uint8(0)
	if st.Snapshot.PostTick {
		postTick = 1
	}
	w.u8(postTick)

	w.u32(uint32(len(st.Snapshot.Entities)))
	for _, e := range st.Snapshot.Entities {
		w.u32(uint32(e.ID))
		w.str(e.TypeName)
		w.i32(e.ClientID)
		w.u16(uint16(len(e.Fields)))
		for component, fields := range e.Fields {
			w.str(component)
			w.u16(uint16(len(fields)))
			for field, value := range fields {
				w.str(field)
				w.i32(value)
			}
		}
	}

	w.u32(uint32(len(st.Allocator.Generations)))
	for _, g := range st.Allocator.Generations {
		w.u32(g)
	}
	w.u32(uint32(len(st.Allocator.Alive)))
	for _, a := range st.Allocator.Alive {
		if a {
			w.u8(1)
		} else {
			w.u8(0)
		}
	}
	w.u32(uint32(len(st.Allocator.Free)))
	for _, f := range st.Allocator.Free {
		w.u32(f)
	}

	w.u32(st.RNG.S0)
	w.u32(st.RNG.S1)

	return w.buf
}

// Decode parses a byte slice produced by Encode. A truncated or malformed
// buffer is reported as a plain returned error (not an engineerr kind) and
// never panics — it almost always
// means the two ends are on different wire versions or the transport
// corrupted the payload.
func Decode(data []byte) (State, error) {
	r := &reader{buf: data}
	var st State

	version, err := r.u8()
	if err != nil {
		return st, err
	}
	if version != Version {
		return st, fmt.Errorf("wire: version %d, want %d", version, Version)
	}

	frame, err := r.u32()
	if err != nil {
		return st, err
	}
	postTick, err := r.u8()
	if err != nil {
		return st, err
	}
	st.Snapshot.Frame = frame
	st.Snapshot.PostTick = postTick != 0

	entityCount, err := r.u32()
	if err != nil {
		return st, err
	}
	st.Snapshot.Entities = make([]ecs.SnapshotEntity, 0, entityCount)
	for i := uint32(0); i < entityCount; i++ {
		var e ecs.SnapshotEntity
		idRaw, err := r.u32()
		if err != nil {
			return st, err
		}
		e.ID = ecs.ID(idRaw)
		if e.TypeName, err = r.str(); err != nil {
			return st, err
		}
		if e.ClientID, err = r.i32(); err != nil {
			return st, err
		}
		componentCount, err := r.u16()
		if err != nil {
			return st, err
		}
		e.Fields = make(map[string]map[string]int32, componentCount)
		for c := uint16(0); c < componentCount; c++ {
			component, err := r.str()
			if err != nil {
				return st, err
			}
			fieldCount, err := r.u16()
			if err != nil {
				return st, err
			}
			fields := make(map[string]int32, fieldCount)
			for f := uint16(0); f < fieldCount; f++ {
				name, err := r.str()
				if err != nil {
					return st, err
				}
				value, err := r.i32()
				if err != nil {
					return st, err
				}
				fields[name] = value
			}
			e.Fields[component] = fields
		}
		st.Snapshot.Entities = append(st.Snapshot.Entities, e)
	}

	genCount, err := r.u32()
	if err != nil {
		return st, err
	}
	st.Allocator.Generations = make([]uint32, genCount)
	for i := range st.Allocator.Generations {
		if st.Allocator.Generations[i], err = r.u32(); err != nil {
			return st, err
		}
	}

	aliveCount, err := r.u32()
	if err != nil {
		return st, err
	}
	st.Allocator.Alive = make([]bool, aliveCount)
	for i := range st.Allocator.Alive {
		v, err := r.u8()
		if err != nil {
			return st, err
		}
		st.Allocator.Alive[i] = v != 0
	}

	freeCount, err := r.u32()
	if err != nil {
		return st, err
	}
	st.Allocator.Free = make([]uint32, freeCount)
	for i := range st.Allocator.Free {
		if st.Allocator.Free[i], err = r.u32(); err != nil {
			return st, err
		}
	}

	if st.RNG.S0, err = r.u32(); err != nil {
		return st, err
	}
	if st.RNG.S1, err = r.u32(); err != nil {
		return st, err
	}

	return st, nil
}
