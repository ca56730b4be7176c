package consensusync

import (
	"encoding/binary"

	"github.com/moddio/lockstep/ecs"
)

// encodeDiffs/decodeDiffs give a []ecs.FieldDiff list a compact, fixed-layout wire
// form so it can live in fastcache's []byte-keyed store without the cost of
// a general-purpose serializer for what is, in the common case, a handful
// of fields.

func encodeDiffs(diffs []ecs.FieldDiff) []byte {
	buf := make([]byte, 0, 4+len(diffs)*32)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(diffs)))
	buf = append(buf, countBuf[:]...)
	for _, d := range diffs {
		buf = appendDiff(buf, d)
	}
	return buf
}

func appendDiff(buf []byte, d ecs.FieldDiff) []byte {
	var head [12]byte
	binary.BigEndian.PutUint32(head[0:4], uint32(d.Entity))
	binary.BigEndian.PutUint32(head[4:8], uint32(d.Want))
	binary.BigEndian.PutUint32(head[8:12], uint32(d.Got))
	buf = append(buf, head[:]...)
	buf = appendString(buf, d.Component)
	buf = appendString(buf, d.Field)
	return buf
}

func appendString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

func decodeDiffs(raw []byte) []ecs.FieldDiff {
	if len(raw) < 4 {
		return nil
	}
	count := binary.BigEndian.Uint32(raw[0:4])
	raw = raw[4:]
	out := make([]ecs.FieldDiff, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(raw) < 12 {
			break
		}
		entity := binary.BigEndian.Uint32(raw[0:4])
		want := int32(binary.BigEndian.Uint32(raw[4:8]))
		got := int32(binary.BigEndian.Uint32(raw[8:12]))
		raw = raw[12:]

		component, rest := readString(raw)
		raw = rest
		field, rest2 := readString(raw)
		raw = rest2

		out = append(out, ecs.FieldDiff{
			Entity:    ecs.ID(entity),
			Component: component,
			Field:     field,
			Want:      want,
			Got:       got,
		})
	}
	return out
}

func readString(raw []byte) (string, []byte) {
	if len(raw) < 2 {
		return "", nil
	}
	n := binary.BigEndian.Uint16(raw[0:2])
	raw = raw[2:]
	if len(raw) < int(n) {
		return "", nil
	}
	s := string(raw[:n])
	return s, raw[n:]
}
