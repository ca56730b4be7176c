package ecs

import "github.com/moddio/lockstep/xhash"

// GetStateHash folds the entire synced portion of the store into a single
// 32-bit digest: every live, non-SyncNone entity in ascending ID order,
// every component it carries in schema-registration order, every field in
// declared field order. Two participants with the same digest after the
// same frame have, with overwhelming probability, identical simulation
// state — this is what SYNC compares across the network every tick.
func (s *Store) GetStateHash() uint32 {
	count := uint32(0)
	for index := 0; index < len(s.entityType); index++ {
		typeIdx := s.entityType[index]
		if typeIdx < 0 {
			continue
		}
		if s.types[typeIdx].SyncNone {
			continue
		}
		count++
	}

	h := xhash.Seed
	h = xhash.Combine(h, s.currentFrame)
	h = xhash.Combine(h, count)
	for _, id := range s.All() {
		index := id.Index()
		et := s.types[s.entityType[index]]
		if et.SyncNone {
			continue
		}
		h = xhash.Combine(h, uint32(id))
		for _, component := range et.Components {
			schema := s.schemas[component]
			cols := s.fields[component]
			for _, fspec := range schema.Fields {
				h = xhash.Combine(h, uint32(cols[fspec.Name].Get(index)))
			}
		}
	}
	return h
}
