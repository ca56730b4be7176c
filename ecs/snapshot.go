package ecs

import "github.com/moddio/lockstep/engineerr"

// SnapshotEntity is one entity's worth of sparse snapshot data: just enough
// to recreate it verbatim in an empty store.
type SnapshotEntity struct {
	ID       ID
	TypeName string
	ClientID int32
	Fields   map[string]map[string]int32 // component -> field -> raw value
}

// Snapshot is STORE's sparse, portable representation of its own state: only
// live, present data is included — there is no entry for a freed slot, and
// no zero-fill for MaxEntities worth of unused indices. PostTick records
// whether the snapshot was taken after the tick's systems ran (so a loader
// knows whether post-physics state is already reflected) or before.
type Snapshot struct {
	Frame    uint32
	PostTick bool
	Entities []SnapshotEntity
}

// SaveAllocatorState captures the entity allocator's full internal state,
// including freed slots — needed alongside a sparse snapshot whenever a
// future Spawn must reuse generations identically across participants.
func (s *Store) SaveAllocatorState() AllocatorState { return s.alloc.SaveState() }

// LoadAllocatorState replaces the entity allocator's internal state
// wholesale. Callers that also call LoadSparseSnapshot should do so first —
// LoadSparseSnapshot resets and rebuilds the allocator from the snapshot's
// entities alone, which would otherwise clobber freed-slot generations
// restored here.
func (s *Store) LoadAllocatorState(st AllocatorState) { s.alloc.LoadState(st) }

// GetSparseSnapshot captures every live, non-SyncNone entity in ascending ID
// order.
func (s *Store) GetSparseSnapshot(frame uint32, postTick bool) Snapshot {
	snap := Snapshot{Frame: frame, PostTick: postTick}
	for _, id := range s.All() {
		typeName, _ := s.TypeOf(id)
		et := s.types[s.typeIndex[typeName]]
		if et.SyncNone {
			continue
		}
		se := SnapshotEntity{
			ID:       id,
			TypeName: typeName,
			ClientID: s.ClientID(id),
			Fields:   make(map[string]map[string]int32, len(et.Components)),
		}
		for _, component := range et.Components {
			schema := s.schemas[component]
			cols := s.fields[component]
			values := make(map[string]int32, len(schema.Fields))
			for _, fspec := range schema.Fields {
				values[fspec.Name] = cols[fspec.Name].Get(id.Index())
			}
			se.Fields[component] = values
		}
		snap.Entities = append(snap.Entities, se)
	}
	return snap
}

// LoadSparseSnapshot replaces the store's entire entity/component state with
// snap's. Component and entity-type schemas must already be registered
// identically to when the snapshot was taken; a reference to an
// unregistered type or component is a programmer error, not a transient
// one — it means the two builds of the game disagree on schema.
func (s *Store) LoadSparseSnapshot(snap Snapshot) error {
	s.currentFrame = snap.Frame
	s.alloc.Reset()
	for i := range s.entityType {
		s.entityType[i] = -1
	}
	s.entityType = s.entityType[:0]
	s.clientID = s.clientID[:0]

	for _, se := range snap.Entities {
		typeIdx, ok := s.typeIndex[se.TypeName]
		if !ok {
			return engineerr.New(engineerr.Programmer, "ecs.LoadSparseSnapshot",
				"unknown entity type "+se.TypeName)
		}
		index := se.ID.Index()
		s.alloc.restoreSlot(index, se.ID.Generation())
		for uint32(len(s.entityType)) <= index {
			s.entityType = append(s.entityType, -1)
			s.clientID = append(s.clientID, -1)
		}
		s.entityType[index] = typeIdx
		s.clientID[index] = se.ClientID

		for component, values := range se.Fields {
			schema, ok := s.schemas[component]
			if !ok {
				return engineerr.New(engineerr.Programmer, "ecs.LoadSparseSnapshot",
					"unknown component "+component)
			}
			cols := s.fields[component]
			for _, fspec := range schema.Fields {
				cols[fspec.Name].Set(index, values[fspec.Name])
			}
		}
	}
	return nil
}
