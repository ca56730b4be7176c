// Package predict is the client-side prediction and rollback engine: it
// advances the simulation ahead of server confirmation using predicted
// remote input, keeps a ring buffer of pre-tick snapshots, and rewinds and
// resimulates whenever a server tick reveals a misprediction.
package predict

import (
	"github.com/moddio/lockstep/ecs"
	"github.com/moddio/lockstep/engineerr"
	"github.com/moddio/lockstep/inputhist"
	"github.com/moddio/lockstep/log"
	"github.com/moddio/lockstep/metrics"
)

// Stats accumulates rollback activity for diagnostics.
type Stats struct {
	RollbackCount     uint64
	MaxRollbackDepth  uint32
	FramesResimulated uint64
}

// Config configures a Predictor.
type Config struct {
	// MaxPredictionFrames throttles how far local simulation may run ahead
	// of the last server-confirmed frame.
	MaxPredictionFrames uint32
	// SnapshotRingCapacity bounds how many pre-tick snapshots are kept; a
	// rollback target older than the oldest retained snapshot cannot be
	// recovered locally and must escalate to a full resync.
	SnapshotRingCapacity uint32
}

// LifecycleKind distinguishes a join from a leave in a server tick's
// lifecycle log.
type LifecycleKind int

const (
	LifecycleJoin LifecycleKind = iota
	LifecycleLeave
)

func (k LifecycleKind) String() string {
	switch k {
	case LifecycleJoin:
		return "join"
	case LifecycleLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// LifecycleEvent is a join or leave delivered alongside a confirmed server
// tick. It is kept separate from game inputs: a rollback undoes and replays
// it through its own handler instead of running it through INPUT-HIST, and
// a tick carrying only lifecycle events never requires a client-id
// resolver.
type LifecycleEvent struct {
	Kind     LifecycleKind
	ClientID int32
}

// ClientIDResolver reports whether clientID names a participant currently
// known to the embedding session. ReceiveServerTick requires one installed
// whenever it is handed a non-empty game-input map, so a confirmed tick can
// never silently address a client the session has never heard of.
type ClientIDResolver func(clientID int32) bool

type snapshotEntry struct {
	frame uint32
	valid bool
	snap  ecs.Snapshot
}

// Predictor owns the store, the scheduler, and the input history, and
// coordinates rollback between them.
type Predictor struct {
	store     *ecs.Store
	scheduler *ecs.Scheduler
	history   *inputhist.History
	cfg       Config
	logger    *log.Logger
	resolver  ClientIDResolver

	ring         []snapshotEntry
	lifecycleLog map[uint32][]LifecycleEvent

	localFrame     uint32
	haveLocalFrame bool
	confirmedFrame uint32

	stats Stats

	// OnFrameResimulated, if set, is called once per frame replayed during
	// a rollback — hook for game code that needs to suppress one-shot
	// effects (sound, particles) during resimulation.
	OnFrameResimulated func(frame uint32)
	// UndoHandler, if set, is called once per lifecycle event being undone,
	// in reverse delivery order, before a rollback restores its snapshot.
	UndoHandler func(event LifecycleEvent)
	// ReplayHandler, if set, is called once per lifecycle event as its
	// frame is resimulated during a rollback, re-applying what UndoHandler
	// undid.
	ReplayHandler func(event LifecycleEvent)
	// LifecycleHandler, if set, is called once per lifecycle event as it is
	// first delivered by ReceiveServerTick.
	LifecycleHandler func(event LifecycleEvent)
}

// New returns a Predictor wired to the given store, scheduler, and shared
// input history.
func New(store *ecs.Store, scheduler *ecs.Scheduler, history *inputhist.History, cfg Config) *Predictor {
	if cfg.SnapshotRingCapacity == 0 {
		cfg.SnapshotRingCapacity = 1
	}
	return &Predictor{
		store:        store,
		scheduler:    scheduler,
		history:      history,
		cfg:          cfg,
		logger:       log.Module("predict"),
		ring:         make([]snapshotEntry, cfg.SnapshotRingCapacity),
		lifecycleLog: make(map[uint32][]LifecycleEvent),
	}
}

// SetClientIDResolver installs the resolver ReceiveServerTick uses to
// validate the client ids named in a confirmed tick's game input.
func (p *Predictor) SetClientIDResolver(fn ClientIDResolver) { p.resolver = fn }

// QueueLocalInput records this participant's own input for frame.
func (p *Predictor) QueueLocalInput(frame uint32, input ecs.ActionFrame) {
	p.history.StoreLocal(frame, input)
}

func (p *Predictor) snapshotBefore(frame uint32) {
	entry := &p.ring[frame%uint32(len(p.ring))]
	*entry = snapshotEntry{frame: frame, valid: true, snap: p.store.GetSparseSnapshot(frame, false)}
}

func (p *Predictor) findSnapshot(frame uint32) (ecs.Snapshot, bool) {
	entry := &p.ring[frame%uint32(len(p.ring))]
	if entry.valid && entry.frame == frame {
		return entry.snap, true
	}
	return ecs.Snapshot{}, false
}

// AdvanceFrame runs one predicted tick. It refuses to run ahead of the
// confirmed frame by more than cfg.MaxPredictionFrames, returning a
// Transient error so the caller can simply wait for more server
// confirmation rather than treat it as a bug. Missing input is filled in by
// INPUT-HIST's configured prediction strategy and threaded into the tick so
// systems can read it through the store's input-state table.
func (p *Predictor) AdvanceFrame() error {
	next := uint32(0)
	if p.haveLocalFrame {
		next = p.localFrame + 1
	}
	if p.haveLocalFrame && next-p.confirmedFrame > p.cfg.MaxPredictionFrames {
		return engineerr.New(engineerr.Transient, "predict.AdvanceFrame", "prediction window exhausted")
	}
	p.snapshotBefore(next)
	inputs, _ := p.history.GetFrameInputs(next)
	p.scheduler.Tick(next, inputs)
	p.localFrame = next
	p.haveLocalFrame = true
	metrics.PredictionDepth.Set(int64(p.localFrame - p.confirmedFrame))
	return nil
}

// ReceiveServerTick confirms a frame's input for every client named in
// inputs, and records any join/leave events delivered alongside it. If any
// confirmation contradicts a prediction already folded into local
// simulation, it triggers a rollback to that frame and reports rolledBack.
//
// A non-empty inputs map with no resolver installed is a programmer error:
// lifecycle-only ticks never require one. A frame the local simulation
// hasn't reached yet is confirmed and its lifecycle delivered immediately,
// out of band, with no rollback — there is nothing locally predicted to
// correct.
func (p *Predictor) ReceiveServerTick(frame uint32, inputs map[int32]ecs.ActionFrame, lifecycle []LifecycleEvent) (rolledBack bool, err error) {
	if len(inputs) > 0 && p.resolver == nil {
		return false, engineerr.New(engineerr.Programmer, "predict.ReceiveServerTick",
			"no client-id resolver configured for a tick carrying game input")
	}
	for clientID := range inputs {
		if p.resolver != nil && !p.resolver(clientID) {
			return false, engineerr.New(engineerr.Protocol, "predict.ReceiveServerTick",
				"confirmed input for unrecognized client id")
		}
	}

	misprediction := false
	for clientID, input := range inputs {
		if p.history.Confirm(frame, clientID, input) {
			misprediction = true
		}
	}

	if len(lifecycle) > 0 {
		p.lifecycleLog[frame] = append(p.lifecycleLog[frame], lifecycle...)
	}
	for _, ev := range lifecycle {
		if p.LifecycleHandler != nil {
			p.LifecycleHandler(ev)
		}
	}

	if frame > p.confirmedFrame || !p.haveLocalFrame {
		p.confirmedFrame = frame
	}

	if !p.haveLocalFrame || frame > p.localFrame {
		return false, nil
	}
	if !misprediction {
		return false, nil
	}
	if err := p.executeRollback(frame); err != nil {
		return false, err
	}
	return true, nil
}

// executeRollback restores state from the snapshot taken just before frame
// ran, then replays every frame up to the current local frame using
// now-confirmed (or freshly predicted) input. Lifecycle events delivered
// for the frames being rewound are undone, in reverse order, before the
// snapshot is restored, and replayed again as each frame is resimulated.
func (p *Predictor) executeRollback(frame uint32) error {
	snap, ok := p.findSnapshot(frame)
	if !ok {
		return engineerr.New(engineerr.Determinism, "predict.executeRollback",
			"rollback target older than oldest retained snapshot, resync required")
	}

	if p.UndoHandler != nil {
		for f := p.localFrame; ; f-- {
			events := p.lifecycleLog[f]
			for i := len(events) - 1; i >= 0; i-- {
				p.UndoHandler(events[i])
			}
			if f == frame {
				break
			}
		}
	}

	if err := p.store.LoadSparseSnapshot(snap); err != nil {
		return engineerr.Wrap(engineerr.Programmer, "predict.executeRollback", err)
	}

	depth := p.localFrame - frame + 1
	p.stats.RollbackCount++
	if depth > p.stats.MaxRollbackDepth {
		p.stats.MaxRollbackDepth = depth
	}
	metrics.RollbacksTotal.Inc()
	metrics.RollbackDepth.Observe(float64(depth))
	p.logger.Debug("rollback", "from_frame", frame, "to_frame", p.localFrame, "depth", depth)

	for f := frame; f <= p.localFrame; f++ {
		p.snapshotBefore(f)
		inputs, _ := p.history.GetFrameInputs(f)
		p.scheduler.Tick(f, inputs)
		if p.ReplayHandler != nil {
			for _, ev := range p.lifecycleLog[f] {
				p.ReplayHandler(ev)
			}
		}
		p.stats.FramesResimulated++
		metrics.FramesResimulated.Inc()
		if p.OnFrameResimulated != nil {
			p.OnFrameResimulated(f)
		}
	}
	return nil
}

// Stats returns a copy of the accumulated rollback statistics.
func (p *Predictor) Stats() Stats { return p.stats }

// LocalFrame returns the latest frame this participant has simulated,
// predicted or confirmed.
func (p *Predictor) LocalFrame() (uint32, bool) { return p.localFrame, p.haveLocalFrame }

// ConfirmedFrame returns the latest frame fully confirmed by the server.
func (p *Predictor) ConfirmedFrame() uint32 { return p.confirmedFrame }
