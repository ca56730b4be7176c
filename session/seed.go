package session

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// expandRoomSeed turns an arbitrary-length room identifier into a 64-bit RNG
// seed via blake2b, so two participants joining the same named room (rather
// than exchanging a raw integer seed) still start their PRNG streams
// identically.
func expandRoomSeed(roomSeed []byte) uint64 {
	sum := blake2b.Sum256(roomSeed)
	return binary.BigEndian.Uint64(sum[:8])
}
