// Package xhash implements the engine's streaming 32-bit state hash: a
// "combine" primitive, grounded on github.com/cespare/xxhash/v2, with the
// property that folding in a zero value still changes the running digest —
// so STORE's state hash can't be spoofed by padding a sequence with zeros.
package xhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/holiman/uint256"
)

// Seed is the initial hash state STORE.GetStateHash starts folding from.
// It is nonzero so the very first Combine call always perturbs the digest.
const Seed uint32 = 2166136261 // FNV-1a offset basis, reused as a nonzero seed

// Combine folds v into the running digest h and returns the new digest.
// combine(h, 0) != h for effectively all h (the zero value is hashed, not
// skipped), so zero-padding a sequence changes the final digest — this is
// what lets STORE distinguish "field omitted" from "field is its zero
// value" when folding component columns into the state hash.
func Combine(h, v uint32) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], h)
	binary.LittleEndian.PutUint32(buf[4:8], v)
	return uint32(xxhash.Sum64(buf[:]))
}

// CombineBytes folds an arbitrary byte string (an interned string, a raw
// component column slice) into the running digest.
func CombineBytes(h uint32, b []byte) uint32 {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], h)
	d := xxhash.New()
	d.Write(prefix[:])
	d.Write(b)
	return uint32(d.Sum64())
}

// CombineFields folds a pair of fixed-point fields (e.g. a Transform2D's x
// and y) into the digest in one step: x, then the product of x and y (both
// taken as unsigned 32-bit values), then y. The product is formed in a
// 256-bit intermediate, but only its low 32 bits are folded in; its high
// bits do not contribute to the digest.
func CombineFields(h uint32, x, y int32) uint32 {
	a := uint256.NewInt(uint64(uint32(x)))
	b := uint256.NewInt(uint64(uint32(y)))
	var prod uint256.Int
	prod.Mul(a, b)
	folded := uint32(prod.Uint64())

	h = Combine(h, uint32(x))
	h = Combine(h, folded)
	h = Combine(h, uint32(y))
	return h
}
