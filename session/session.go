// Package session orchestrates the engine end to end: it owns the entity
// store, the input history, the prediction engine, and the hash-consensus
// tracker, wires them together per Config, and exposes the lifecycle state
// machine (offline -> local -> connecting -> connected, any -> stopped)
// that embedding game code drives.
package session

import (
	"math/rand"

	"github.com/moddio/lockstep/consensusync"
	"github.com/moddio/lockstep/ecs"
	"github.com/moddio/lockstep/engineerr"
	"github.com/moddio/lockstep/inputhist"
	"github.com/moddio/lockstep/log"
	"github.com/moddio/lockstep/metrics"
	"github.com/moddio/lockstep/predict"
	"github.com/moddio/lockstep/rng"
)

// Callbacks are the capability set embedding game code supplies at Init,
// Start, or Connect time. Any field left nil is simply never called.
type Callbacks struct {
	OnRoomCreate func()
	OnConnect    func(clientID int32)
	OnDisconnect func(clientID int32)
	OnTick       func(frame uint32)
}

// Session is the engine's public entry point.
type Session struct {
	cfg    Config
	state  State
	logger *log.Logger

	store     *ecs.Store
	scheduler *ecs.Scheduler
	history   *inputhist.History
	predictor *predict.Predictor
	tracker   *consensusync.Tracker

	localClientID int32
	haveLocalID   bool
	actionSchema  *ecs.ActionSchema

	plugins   []func(*Session)
	callbacks Callbacks

	rngState rng.State
}

// New constructs an offline Session. Components and entity types must be
// registered (via DefineEntity/RegisterComponent) before Init.
func New(cfg Config, actionSchema *ecs.ActionSchema) *Session {
	store := ecs.NewStore()
	return &Session{
		cfg:           cfg,
		state:         Offline,
		logger:        log.Module("session"),
		store:         store,
		scheduler:     ecs.NewScheduler(store),
		history:       inputhist.New(actionSchema, cfg.InputHistoryCapacity, cfg.PredictionStrategy),
		actionSchema:  actionSchema,
		localClientID: -1,
	}
}

// RegisterComponent declares a component schema on the underlying store.
func (s *Session) RegisterComponent(schema ecs.Schema) { s.store.RegisterComponent(schema) }

// DefineEntity starts declaring an entity type on the underlying store.
func (s *Session) DefineEntity(name string) *ecs.EntityTypeBuilder { return s.store.DefineEntity(name) }

// AddSystem registers a per-phase system on the scheduler.
func (s *Session) AddSystem(sys ecs.System) { s.scheduler.Add(sys) }

// AddPlugin registers a setup hook run once, at Init, after entity/component
// registration but before the state machine leaves Offline. Plugins are run
// in registration order.
func (s *Session) AddPlugin(fn func(*Session)) { s.plugins = append(s.plugins, fn) }

func (s *Session) transition(to State) error {
	if !canTransition(s.state, to) {
		return engineerr.New(engineerr.Programmer, "session.transition",
			s.state.String()+" -> "+to.String()+" is not a valid transition")
	}
	s.logger.Info("state transition", "from", s.state.String(), "to", to.String())
	s.state = to
	return nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Init runs registered plugins and fires OnRoomCreate. Must be called
// before Start or Connect.
func (s *Session) Init(callbacks Callbacks) error {
	if s.state != Offline {
		return engineerr.New(engineerr.Programmer, "session.Init", "Init called outside Offline state")
	}
	s.callbacks = callbacks
	for _, plugin := range s.plugins {
		plugin(s)
	}
	if callbacks.OnRoomCreate != nil {
		callbacks.OnRoomCreate()
	}
	return nil
}

// Start begins a single-participant, offline simulation: no network, no
// hash consensus, local client id 0.
func (s *Session) Start(seed uint64) error {
	if err := s.transition(Local); err != nil {
		return err
	}
	s.rngState = rng.New(seed)
	s.localClientID = 0
	s.haveLocalID = true
	s.history.SetLocalClient(0)
	s.history.AddClient(0)
	s.predictor = predict.New(s.store, s.scheduler, s.history, predict.Config{
		MaxPredictionFrames:  s.cfg.MaxPredictionFrames,
		SnapshotRingCapacity: s.cfg.SnapshotRingCapacity,
	})
	s.wirePredictorLifecycle()
	return nil
}

// Connect begins joining a networked room. roomSeed, if non-empty, is
// expanded into the PRNG seed via blake2b so every joiner starts the same
// stream without exchanging a raw integer. localClientID is this
// participant's interned client id once assigned by the room.
func (s *Session) Connect(roomSeed []byte, localClientID int32, peerClientIDs []int32) error {
	if err := s.transition(Connecting); err != nil {
		return err
	}

	if len(roomSeed) == 0 {
		roomSeed = s.cfg.RoomSeed
	}
	var seed uint64
	if len(roomSeed) > 0 {
		seed = expandRoomSeed(roomSeed)
	} else {
		seed = uint64(rand.Int63())
	}
	s.rngState = rng.New(seed)

	s.localClientID = localClientID
	s.haveLocalID = true
	s.history.SetLocalClient(localClientID)
	s.history.AddClient(localClientID)

	s.tracker = consensusync.NewTracker(localClientID, s.cfg.HashWindow, s.cfg.DiagCacheBytes)
	for _, peer := range peerClientIDs {
		s.history.AddClient(peer)
		s.tracker.AddPeer(peer)
	}

	s.predictor = predict.New(s.store, s.scheduler, s.history, predict.Config{
		MaxPredictionFrames:  s.cfg.MaxPredictionFrames,
		SnapshotRingCapacity: s.cfg.SnapshotRingCapacity,
	})
	s.wirePredictorLifecycle()

	if err := s.transition(Connected); err != nil {
		return err
	}
	if s.callbacks.OnConnect != nil {
		s.callbacks.OnConnect(localClientID)
	}
	return nil
}

// wirePredictorLifecycle installs the predictor's client-id resolver and
// lifecycle hooks once a Predictor exists, so join/leave events delivered
// alongside a confirmed server tick update the same client bookkeeping as
// HandlePeerJoin/HandlePeerLeave, and are correctly undone and replayed
// across a rollback.
func (s *Session) wirePredictorLifecycle() {
	s.predictor.SetClientIDResolver(s.history.HasClient)
	s.predictor.UndoHandler = s.undoLifecycle
	s.predictor.ReplayHandler = s.applyLifecycle
	s.predictor.LifecycleHandler = func(ev predict.LifecycleEvent) {
		s.applyLifecycle(ev)
		switch ev.Kind {
		case predict.LifecycleJoin:
			if s.callbacks.OnConnect != nil {
				s.callbacks.OnConnect(ev.ClientID)
			}
		case predict.LifecycleLeave:
			if s.callbacks.OnDisconnect != nil {
				s.callbacks.OnDisconnect(ev.ClientID)
			}
		}
	}
}

func (s *Session) applyLifecycle(ev predict.LifecycleEvent) {
	switch ev.Kind {
	case predict.LifecycleJoin:
		s.history.AddClient(ev.ClientID)
		if s.tracker != nil {
			s.tracker.AddPeer(ev.ClientID)
		}
	case predict.LifecycleLeave:
		s.history.RemoveClient(ev.ClientID)
		if s.tracker != nil {
			s.tracker.RemovePeer(ev.ClientID)
		}
	}
}

func (s *Session) undoLifecycle(ev predict.LifecycleEvent) {
	switch ev.Kind {
	case predict.LifecycleJoin:
		s.history.RemoveClient(ev.ClientID)
		if s.tracker != nil {
			s.tracker.RemovePeer(ev.ClientID)
		}
	case predict.LifecycleLeave:
		s.history.AddClient(ev.ClientID)
		if s.tracker != nil {
			s.tracker.AddPeer(ev.ClientID)
		}
	}
}

// HandlePeerJoin admits a new participant mid-session, deriving the active
// client set incrementally rather than requiring a full snapshot reload.
func (s *Session) HandlePeerJoin(clientID int32) {
	s.history.AddClient(clientID)
	if s.tracker != nil {
		s.tracker.AddPeer(clientID)
	}
	if s.callbacks.OnConnect != nil {
		s.callbacks.OnConnect(clientID)
	}
}

// HandlePeerLeave removes a participant mid-session.
func (s *Session) HandlePeerLeave(clientID int32) {
	s.history.RemoveClient(clientID)
	if s.tracker != nil {
		s.tracker.RemovePeer(clientID)
	}
	if s.callbacks.OnDisconnect != nil {
		s.callbacks.OnDisconnect(clientID)
	}
}

// LoadSnapshot restores the store from snap and derives the active client
// set from every Player-bearing entity it contains (the join flow for a
// late joiner receiving the authoritative state for the first time).
func (s *Session) LoadSnapshot(snap ecs.Snapshot) error {
	if err := s.store.LoadSparseSnapshot(snap); err != nil {
		return err
	}
	for _, id := range s.store.All() {
		clientID := s.store.ClientID(id)
		if clientID < 0 || clientID == s.localClientID {
			continue
		}
		s.history.AddClient(clientID)
		if s.tracker != nil {
			s.tracker.AddPeer(clientID)
		}
	}
	return nil
}

// QueueLocalInput records this participant's input for the given frame,
// scheduled cfg.InputDelayFrames in the future by convention of the caller.
func (s *Session) QueueLocalInput(frame uint32, input ecs.ActionFrame) {
	s.predictor.QueueLocalInput(frame, input)
}

// Tick advances the simulation by one predicted frame and fires OnTick.
func (s *Session) Tick() error {
	if err := s.predictor.AdvanceFrame(); err != nil {
		return err
	}
	frame, _ := s.predictor.LocalFrame()
	if s.cfg.MetricsEnabled {
		metrics.SimFrame.Set(int64(frame))
		metrics.EntitiesAlive.Set(int64(len(s.store.All())))
	}
	if s.callbacks.OnTick != nil {
		s.callbacks.OnTick(frame)
	}
	return nil
}

// RenderFrame runs the render-phase systems for the current local frame, on
// whatever cadence the embedding game's render loop calls it at — separate
// from Tick, and never mutating the store.
func (s *Session) RenderFrame() {
	frame, _ := s.predictor.LocalFrame()
	s.scheduler.RenderFrame(frame)
}

// ReceiveServerTick confirms one frame's worth of input from the
// authoritative source, delivers any join/leave events carried alongside
// it, and resolves any resulting rollback.
func (s *Session) ReceiveServerTick(frame uint32, inputs map[int32]ecs.ActionFrame, lifecycle []predict.LifecycleEvent) error {
	if _, err := s.predictor.ReceiveServerTick(frame, inputs, lifecycle); err != nil {
		return err
	}
	if s.cfg.MetricsEnabled {
		metrics.InputsConfirmed.Add(int64(len(inputs)))
	}
	return nil
}

// ReceivePeerHash folds in one tick's worth of peer state hashes and
// reports whether the connection has just entered Desync.
func (s *Session) ReceivePeerHash(peerHashes map[int32]uint32) bool {
	if s.tracker == nil {
		return false
	}
	localHash := s.store.GetStateHash()
	desynced := s.tracker.RecordTick(localHash, peerHashes)
	if s.cfg.MetricsEnabled {
		metrics.ActiveClients.Set(int64(len(s.tracker.SortedParticipants())))
	}
	return desynced
}

// Stop moves the session to Stopped, its terminal state.
func (s *Session) Stop() error { return s.transition(Stopped) }

// Frame returns the latest locally-simulated frame number.
func (s *Session) Frame() (uint32, bool) {
	if s.predictor == nil {
		return 0, false
	}
	return s.predictor.LocalFrame()
}

// GetStateHash returns the current state hash of the local store.
func (s *Session) GetStateHash() uint32 { return s.store.GetStateHash() }

// GetSyncStats returns the rolling pass percentage and desync state.
func (s *Session) GetSyncStats() (float64, consensusync.State) {
	if s.tracker == nil {
		return 1, consensusync.Initial
	}
	return s.tracker.PassPercent(), s.tracker.State()
}

// IsAuthority reports whether this participant is the consensus authority.
func (s *Session) IsAuthority() bool {
	if s.tracker == nil {
		return true
	}
	return s.tracker.IsAuthority()
}

// GetDriftStats returns the rollback/resimulation statistics accumulated by
// PREDICT so far.
func (s *Session) GetDriftStats() predict.Stats {
	if s.predictor == nil {
		return predict.Stats{}
	}
	return s.predictor.Stats()
}

// Store exposes the underlying store for game code that needs direct field
// access beyond the Session's own API surface.
func (s *Session) Store() *ecs.Store { return s.store }

// RNG returns the session's PRNG stream.
func (s *Session) RNG() *rng.State { return &s.rngState }
