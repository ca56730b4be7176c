package ecs

import (
	"sort"
	"strconv"
)

// EntityType is a declared archetype: a fixed set of component names every
// entity of that type carries. SyncNone marks an archetype whose entities
// are local-only — present in this participant's store but never written to
// a snapshot and never folded into the state hash (e.g. purely cosmetic
// particle entities).
type EntityType struct {
	Name       string
	Components []string
	SyncNone   bool
}

// EntityTypeBuilder builds an EntityType with a fluent, declaration-time API
// mirroring how the engine's embedding game code registers its schema once
// at startup.
type EntityTypeBuilder struct {
	store *Store
	et    EntityType
}

// DefineEntity starts building a new entity type on this Store.
func (s *Store) DefineEntity(name string) *EntityTypeBuilder {
	return &EntityTypeBuilder{store: s, et: EntityType{Name: name}}
}

// With attaches a component to the entity type under construction.
func (b *EntityTypeBuilder) With(componentName string) *EntityTypeBuilder {
	b.et.Components = append(b.et.Components, componentName)
	return b
}

// SyncNoneType marks the entity type as excluded from snapshots and the
// state hash.
func (b *EntityTypeBuilder) SyncNoneType() *EntityTypeBuilder {
	b.et.SyncNone = true
	return b
}

// Register finalizes the entity type, assigning it a stable type index in
// registration order.
func (b *EntityTypeBuilder) Register() int {
	return b.store.registerEntityType(b.et)
}

// Store is the engine's entity-component store: an entity-type registry, a
// slot allocator, and one columnar Field per declared component. All
// mutation happens through an explicit phase (see Scheduler) so concurrent
// access never needs locking — the store is single-threaded by contract.
type Store struct {
	alloc *Allocator

	types       []EntityType
	typeIndex   map[string]int
	entityType  []int // archetype index per slot, -1 if slot unused/freed

	schemas    map[string]*Schema
	schemaOrder []string
	fields     map[string]map[string]*Field // component name -> field name -> Field

	clientID []int32 // interned client id per slot, or -1 if not player-owned

	currentFrame uint32
	inputs       map[int32]ActionFrame
	inputOrder   []int32

	guard *DebugGuard
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		alloc:      NewAllocator(),
		typeIndex:  make(map[string]int),
		schemas:    make(map[string]*Schema),
		fields:     make(map[string]map[string]*Field),
	}
}

// SetGuard installs a DebugGuard that intercepts operations forbidden
// outside of the phase they belong to (e.g. spawning during render).
func (s *Store) SetGuard(g *DebugGuard) { s.guard = g }

// RegisterComponent declares a component schema. It must be called before
// any entity type references the component by name.
func (s *Store) RegisterComponent(schema Schema) {
	if _, exists := s.schemas[schema.Name]; exists {
		panic("ecs: component " + schema.Name + " already registered")
	}
	s.schemas[schema.Name] = &schema
	s.schemaOrder = append(s.schemaOrder, schema.Name)
	cols := make(map[string]*Field, len(schema.Fields))
	for _, f := range schema.Fields {
		cols[f.Name] = newField(f, 0)
	}
	s.fields[schema.Name] = cols
}

func (s *Store) registerEntityType(et EntityType) int {
	for _, name := range et.Components {
		if _, ok := s.schemas[name]; !ok {
			panic("ecs: entity type " + et.Name + " references unknown component " + name)
		}
	}
	idx := len(s.types)
	s.types = append(s.types, et)
	s.typeIndex[et.Name] = idx
	return idx
}

// Spawn creates a new entity of the given registered type.
func (s *Store) Spawn(typeName string) ID {
	if s.guard != nil {
		s.guard.checkSpawn()
	}
	typeIdx, ok := s.typeIndex[typeName]
	if !ok {
		panic("ecs: unknown entity type " + typeName)
	}
	id := s.alloc.Allocate()
	index := id.Index()
	for uint32(len(s.entityType)) <= index {
		s.entityType = append(s.entityType, -1)
		s.clientID = append(s.clientID, -1)
	}
	s.entityType[index] = typeIdx
	s.clientID[index] = -1
	return id
}

// Despawn frees id. A no-op if id is not currently alive.
func (s *Store) Despawn(id ID) {
	if s.guard != nil {
		s.guard.checkDespawn()
	}
	if !s.alloc.IsAlive(id) {
		return
	}
	s.alloc.Free(id)
	s.entityType[id.Index()] = -1
	s.clientID[id.Index()] = -1
}

// IsAlive reports whether id names a currently-live entity.
func (s *Store) IsAlive(id ID) bool { return s.alloc.IsAlive(id) }

// TypeOf returns the registered entity-type name for id.
func (s *Store) TypeOf(id ID) (string, bool) {
	if !s.alloc.IsAlive(id) {
		return "", false
	}
	idx := s.entityType[id.Index()]
	if idx < 0 {
		return "", false
	}
	return s.types[idx].Name, true
}

// SetClientID tags id as owned by the given interned client id (used by
// SESSION to derive the active-client set from Player-bearing entities).
func (s *Store) SetClientID(id ID, clientID int32) {
	if s.alloc.IsAlive(id) {
		s.clientID[id.Index()] = clientID
	}
}

// ClientID returns the interned client id owning id, or -1 if unowned.
func (s *Store) ClientID(id ID) int32 {
	if !s.alloc.IsAlive(id) {
		return -1
	}
	return s.clientID[id.Index()]
}

// Frame returns the frame number the store is currently ticking (or last
// ticked), part of the world-state tuple and folded into the state hash.
func (s *Store) Frame() uint32 { return s.currentFrame }

// SetFrame records the frame number the store is about to run — called by
// Scheduler.Tick at the start of each tick, and by LoadSparseSnapshot so a
// resumed store resumes counting from the loaded frame.
func (s *Store) SetFrame(frame uint32) { s.currentFrame = frame }

// clientIDKey is the sort key used to order input application: the
// client id's decimal string form, not its numeric value. Inputs are
// applied lexicographically on this string so two participants apply
// inputs in the same order regardless of how Go's map iteration happens
// to run.
func clientIDKey(id int32) string { return strconv.FormatInt(int64(id), 10) }

// SetInputs installs the per-client input table for the frame about to run.
// Entries are applied in ascending client-id order (lexicographic on the
// id's decimal string), matching the engine-wide rule that input
// application must not depend on Go's unordered map iteration.
func (s *Store) SetInputs(inputs map[int32]ActionFrame) {
	ids := make([]int32, 0, len(inputs))
	for id := range inputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return clientIDKey(ids[i]) < clientIDKey(ids[j]) })

	s.inputOrder = ids
	s.inputs = make(map[int32]ActionFrame, len(inputs))
	for _, id := range ids {
		s.inputs[id] = inputs[id]
	}
}

// Input returns the input recorded for clientID on the frame currently
// installed by SetInputs, if any. Systems call this to read per-client
// input instead of reaching into INPUT-HIST directly.
func (s *Store) Input(clientID int32) (ActionFrame, bool) {
	v, ok := s.inputs[clientID]
	return v, ok
}

// InputOrder returns the client ids present in the current input table, in
// the ascending order they were applied.
func (s *Store) InputOrder() []int32 { return s.inputOrder }

// Field returns the column for the given component/field pair, or nil if
// either name is unknown.
func (s *Store) Field(component, field string) *Field {
	cols, ok := s.fields[component]
	if !ok {
		return nil
	}
	return cols[field]
}

// Has reports whether id's entity type carries the named component.
func (s *Store) Has(id ID, component string) bool {
	typeName, ok := s.TypeOf(id)
	if !ok {
		return false
	}
	et := s.types[s.typeIndex[typeName]]
	for _, c := range et.Components {
		if c == component {
			return true
		}
	}
	return false
}

// Query returns every currently-alive entity carrying the named component,
// in strictly ascending ID order. The ascending order is a hard contract:
// two participants iterating the same store state must visit entities in
// the same sequence, or any per-entity side effects (spawning in system
// order, for instance) would themselves desync.
func (s *Store) Query(component string) []ID {
	var out []ID
	for index := 0; index < len(s.entityType); index++ {
		typeIdx := s.entityType[index]
		if typeIdx < 0 {
			continue
		}
		et := s.types[typeIdx]
		for _, c := range et.Components {
			if c == component {
				out = append(out, makeID(uint32(index), s.alloc.generations[index]))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every currently-alive entity, in ascending ID order.
func (s *Store) All() []ID {
	var out []ID
	for index := 0; index < len(s.entityType); index++ {
		if s.entityType[index] < 0 {
			continue
		}
		out = append(out, makeID(uint32(index), s.alloc.generations[index]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
