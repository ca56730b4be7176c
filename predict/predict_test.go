package predict

import (
	"testing"

	"github.com/moddio/lockstep/ecs"
	"github.com/moddio/lockstep/inputhist"
)

func schema() *ecs.ActionSchema {
	return ecs.NewActionSchema([]ecs.ActionSpec{{Name: "Move", Kind: ecs.ActionAxis}})
}

func allowAnyClient(int32) bool { return true }

// newFixture builds a tiny store with one Player entity whose Transform2D.X
// advances by each client's Move axis value every tick — enough to make
// rollback/resimulation observable. The move system reads input through the
// store's input-state table, the same path any game system registered
// through the engine uses, rather than reaching into INPUT-HIST directly.
func newFixture(t *testing.T) (*ecs.Store, *ecs.Scheduler, *inputhist.History, ecs.ID) {
	t.Helper()
	store := ecs.NewStore()
	store.RegisterComponent(ecs.Schema{
		Name:   "Transform2D",
		Fields: []ecs.FieldSpec{{Name: "X", Type: ecs.I32}},
	})
	store.DefineEntity("Player").With("Transform2D").Register()
	id := store.Spawn("Player")
	store.SetClientID(id, 1)

	history := inputhist.New(schema(), 64, inputhist.Idle)
	history.SetLocalClient(1)
	history.AddClient(1)

	sched := ecs.NewScheduler(store)
	sched.Add(ecs.System{Name: "move", Phase: ecs.PhaseUpdate, Run: func(s *ecs.Store, frame uint32) {
		for _, eid := range s.Query("Transform2D") {
			clientID := s.ClientID(eid)
			if clientID < 0 {
				continue
			}
			input, ok := s.Input(clientID)
			if !ok {
				continue
			}
			x := s.Field("Transform2D", "X")
			x.Set(eid.Index(), x.Get(eid.Index())+input.Axis("Move"))
		}
	}})
	return store, sched, history, id
}

func TestAdvanceFrameThrottles(t *testing.T) {
	store, sched, history, _ := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 1, SnapshotRingCapacity: 8})

	if err := p.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame() 1: %v", err)
	}
	if err := p.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame() 2: %v", err)
	}
	if err := p.AdvanceFrame(); err == nil {
		t.Fatalf("expected throttling error on 3rd frame with MaxPredictionFrames=1 and no confirmation")
	}
}

func TestReceiveServerTickWithoutMispredictionDoesNotRollback(t *testing.T) {
	store, sched, history, id := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})
	p.SetClientIDResolver(allowAnyClient)

	input := schema().NewFrame()
	input.SetAxis("Move", 5)
	p.QueueLocalInput(0, input)
	p.AdvanceFrame()

	before := p.Stats().RollbackCount
	rolledBack, err := p.ReceiveServerTick(0, map[int32]ecs.ActionFrame{1: input}, nil)
	if err != nil {
		t.Fatalf("ReceiveServerTick: %v", err)
	}
	if rolledBack {
		t.Fatalf("reported rollback when prediction matched confirmation")
	}
	if p.Stats().RollbackCount != before {
		t.Fatalf("rollback triggered when prediction matched confirmation")
	}
	x := store.Field("Transform2D", "X").Get(id.Index())
	if x != 5 {
		t.Fatalf("X = %d, want 5", x)
	}
}

func TestReceiveServerTickWithoutResolverIsProgrammerError(t *testing.T) {
	store, sched, history, _ := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})

	input := schema().NewFrame()
	if _, err := p.ReceiveServerTick(0, map[int32]ecs.ActionFrame{1: input}, nil); err == nil {
		t.Fatalf("expected error confirming game input with no client-id resolver installed")
	}
}

func TestReceiveServerTickLifecycleOnlyNeedsNoResolver(t *testing.T) {
	store, sched, history, _ := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})

	var delivered []LifecycleEvent
	p.LifecycleHandler = func(ev LifecycleEvent) { delivered = append(delivered, ev) }

	lifecycle := []LifecycleEvent{{Kind: LifecycleJoin, ClientID: 2}}
	if _, err := p.ReceiveServerTick(0, nil, lifecycle); err != nil {
		t.Fatalf("lifecycle-only tick should not require a resolver: %v", err)
	}
	if len(delivered) != 1 || delivered[0] != lifecycle[0] {
		t.Fatalf("LifecycleHandler did not fire for the delivered event")
	}
}

func TestReceiveServerTickAheadOfLocalFrameDeliversOutOfBand(t *testing.T) {
	store, sched, history, _ := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})
	p.SetClientIDResolver(allowAnyClient)

	input := schema().NewFrame()
	input.SetAxis("Move", 3)
	rolledBack, err := p.ReceiveServerTick(5, map[int32]ecs.ActionFrame{1: input}, nil)
	if err != nil {
		t.Fatalf("ReceiveServerTick: %v", err)
	}
	if rolledBack {
		t.Fatalf("expected no rollback for a frame the local simulation hasn't reached")
	}
}

func TestRollbackCorrectsMisprediction(t *testing.T) {
	store, sched, history, id := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})
	p.SetClientIDResolver(allowAnyClient)

	// Frame 0: predict Move=0 for the (in this test, "remote") client.
	predicted := schema().NewFrame()
	history.AddClient(2)
	store.SetClientID(id, 2) // pretend entity belongs to the predicted client
	history.StorePredicted(0, 2, predicted)
	if err := p.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame: %v", err)
	}
	if got := store.Field("Transform2D", "X").Get(id.Index()); got != 0 {
		t.Fatalf("after predicted tick, X = %d, want 0", got)
	}

	// Server reveals the real input was Move=7 — a misprediction.
	real := schema().NewFrame()
	real.SetAxis("Move", 7)
	rolledBack, err := p.ReceiveServerTick(0, map[int32]ecs.ActionFrame{2: real}, nil)
	if err != nil {
		t.Fatalf("ReceiveServerTick: %v", err)
	}
	if !rolledBack {
		t.Fatalf("expected ReceiveServerTick to report a rollback")
	}
	if got := store.Field("Transform2D", "X").Get(id.Index()); got != 7 {
		t.Fatalf("after rollback, X = %d, want 7", got)
	}
	if p.Stats().RollbackCount != 1 {
		t.Fatalf("RollbackCount = %d, want 1", p.Stats().RollbackCount)
	}
	if p.Stats().FramesResimulated != 1 {
		t.Fatalf("FramesResimulated = %d, want 1", p.Stats().FramesResimulated)
	}
}

func TestRollbackOlderThanOldestSnapshotIsDeterminismError(t *testing.T) {
	store, sched, history, _ := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 100, SnapshotRingCapacity: 2})

	for i := 0; i < 5; i++ {
		p.AdvanceFrame()
	}
	// Frame 1's snapshot slot has long since been overwritten by a later frame.
	err := p.executeRollback(1)
	if err == nil {
		t.Fatalf("expected error rolling back past the retained snapshot window")
	}
}

func TestOnFrameResimulatedHookFires(t *testing.T) {
	store, sched, history, id := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})
	p.SetClientIDResolver(allowAnyClient)
	var fired []uint32
	p.OnFrameResimulated = func(frame uint32) { fired = append(fired, frame) }

	history.AddClient(2)
	store.SetClientID(id, 2)
	history.StorePredicted(0, 2, schema().NewFrame())
	p.AdvanceFrame()
	p.AdvanceFrame()

	real := schema().NewFrame()
	real.SetAxis("Move", 1)
	p.ReceiveServerTick(0, map[int32]ecs.ActionFrame{2: real}, nil)

	if len(fired) == 0 {
		t.Fatalf("expected OnFrameResimulated to fire during rollback")
	}
}

func TestRollbackUndoesAndReplaysLifecycleEvents(t *testing.T) {
	store, sched, history, id := newFixture(t)
	p := New(store, sched, history, Config{MaxPredictionFrames: 10, SnapshotRingCapacity: 16})
	p.SetClientIDResolver(allowAnyClient)

	history.AddClient(2)
	store.SetClientID(id, 2)
	history.StorePredicted(0, 2, schema().NewFrame())
	p.AdvanceFrame() // frame 0
	p.AdvanceFrame() // frame 1

	join := LifecycleEvent{Kind: LifecycleJoin, ClientID: 3}
	var undone, replayed []LifecycleEvent
	p.UndoHandler = func(ev LifecycleEvent) { undone = append(undone, ev) }
	p.ReplayHandler = func(ev LifecycleEvent) { replayed = append(replayed, ev) }

	// Deliver the join alongside frame 0 so it predates the rollback target.
	if _, err := p.ReceiveServerTick(0, nil, []LifecycleEvent{join}); err != nil {
		t.Fatalf("ReceiveServerTick: %v", err)
	}

	real := schema().NewFrame()
	real.SetAxis("Move", 9)
	rolledBack, err := p.ReceiveServerTick(0, map[int32]ecs.ActionFrame{2: real}, nil)
	if err != nil {
		t.Fatalf("ReceiveServerTick: %v", err)
	}
	if !rolledBack {
		t.Fatalf("expected a rollback")
	}
	if len(undone) != 1 || undone[0] != join {
		t.Fatalf("UndoHandler fired with %v, want [%v]", undone, join)
	}
	if len(replayed) != 1 || replayed[0] != join {
		t.Fatalf("ReplayHandler fired with %v, want [%v]", replayed, join)
	}
}
