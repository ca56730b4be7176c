package ecs

// DebugGuard intercepts store operations that are forbidden in the current
// scheduler phase (e.g. spawning or despawning during the render phase,
// which must be a pure read of simulation state). It is meant to be
// installed only in development and test builds; Scheduler keeps it updated
// as phases change.
type DebugGuard struct {
	phase        Phase
	forbidSpawn  map[Phase]bool
}

// NewDebugGuard returns a guard forbidding spawn/despawn during Render by
// default, matching the scheduler's contract that render is read-only.
func NewDebugGuard() *DebugGuard {
	return &DebugGuard{
		forbidSpawn: map[Phase]bool{PhaseRender: true},
	}
}

func (g *DebugGuard) setPhase(p Phase) { g.phase = p }

func (g *DebugGuard) checkSpawn() {
	if g.forbidSpawn[g.phase] {
		panic("ecs: spawn forbidden during " + g.phase.String() + " phase")
	}
}

func (g *DebugGuard) checkDespawn() {
	if g.forbidSpawn[g.phase] {
		panic("ecs: despawn forbidden during " + g.phase.String() + " phase")
	}
}
