package ecs

// Phase identifies one of the scheduler's fixed stages. Every tick runs the
// phases in this exact order; a System registers for exactly one phase.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseUpdate
	PhasePrePhysics
	PhasePhysics
	PhasePostPhysics
	PhaseRender
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseUpdate:
		return "update"
	case PhasePrePhysics:
		return "pre-physics"
	case PhasePhysics:
		return "physics"
	case PhasePostPhysics:
		return "post-physics"
	case PhaseRender:
		return "render"
	default:
		return "unknown"
	}
}

var allPhases = [...]Phase{
	PhaseInput, PhaseUpdate, PhasePrePhysics, PhasePhysics, PhasePostPhysics, PhaseRender,
}

// simPhases are the phases Tick runs. Render is driven separately by the
// render loop and never mutates STORE.
var simPhases = [...]Phase{
	PhaseInput, PhaseUpdate, PhasePrePhysics, PhasePhysics, PhasePostPhysics,
}

// System is a single unit of per-tick logic bound to one phase.
type System struct {
	Name  string
	Phase Phase
	Run   func(s *Store, frame uint32)
}

// Scheduler orders and runs the registered systems phase by phase. Within a
// phase, systems run in registration order — another determinism contract,
// since two participants must register the same systems in the same order
// for a tick to play out identically.
type Scheduler struct {
	store   *Store
	systems [len(allPhases)][]System
}

// NewScheduler returns a Scheduler bound to store.
func NewScheduler(store *Store) *Scheduler {
	return &Scheduler{store: store}
}

// Add registers sys under its declared phase.
func (sc *Scheduler) Add(sys System) {
	sc.systems[sys.Phase] = append(sc.systems[sys.Phase], sys)
}

// Tick installs inputs as the frame's input-state table, then runs the
// input-through-post-physics phases, in order, for the given frame number.
// It never runs the render phase — render is driven by the render loop on
// its own cadence via RenderFrame, and must not mutate STORE.
func (sc *Scheduler) Tick(frame uint32, inputs map[int32]ActionFrame) {
	sc.store.SetFrame(frame)
	sc.store.SetInputs(inputs)
	for _, phase := range simPhases {
		if sc.store.guard != nil {
			sc.store.guard.setPhase(phase)
		}
		for _, sys := range sc.systems[phase] {
			sys.Run(sc.store, frame)
		}
	}
}

// RenderFrame runs only the render-phase systems, for the render loop to
// call on its own cadence, separate from Tick. Render systems may read
// STORE but must not mutate it.
func (sc *Scheduler) RenderFrame(frame uint32) {
	if sc.store.guard != nil {
		sc.store.guard.setPhase(PhaseRender)
	}
	for _, sys := range sc.systems[PhaseRender] {
		sys.Run(sc.store, frame)
	}
}
