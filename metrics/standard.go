package metrics

// Pre-defined metrics for the lockstep simulation core. All metrics live in
// DefaultRegistry so they are globally accessible without passing a registry
// around.

var (
	// ---- Simulation metrics ----

	// SimFrame tracks the local participant's current simulation frame.
	SimFrame = DefaultRegistry.Gauge("sim.frame")
	// TickDuration records per-tick STORE.tick wall-clock duration in microseconds.
	TickDuration = DefaultRegistry.Histogram("sim.tick_us")
	// EntitiesAlive tracks the number of live entities in STORE.
	EntitiesAlive = DefaultRegistry.Gauge("sim.entities_alive")

	// ---- Prediction metrics ----

	// PredictionDepth tracks local_frame - confirmed_frame.
	PredictionDepth = DefaultRegistry.Gauge("predict.depth")
	// RollbacksTotal counts executed rollbacks.
	RollbacksTotal = DefaultRegistry.Counter("predict.rollbacks")
	// FramesResimulated counts total frames resimulated across all rollbacks.
	FramesResimulated = DefaultRegistry.Counter("predict.frames_resimulated")
	// RollbackDepth records the depth (frames) of each executed rollback.
	RollbackDepth = DefaultRegistry.Histogram("predict.rollback_depth")

	// ---- State-sync metrics ----

	// HashMismatches counts ticks where the local hash disagreed with at
	// least one peer's reported hash. Each peer is compared on its own; no
	// majority hash is formed.
	HashMismatches = DefaultRegistry.Counter("sync.hash_mismatches")
	// SyncPassPercent tracks the rolling match percentage over the hash window.
	SyncPassPercent = DefaultRegistry.Gauge("sync.pass_percent")
	// ResyncsTotal counts full-snapshot recovery attempts.
	ResyncsTotal = DefaultRegistry.Counter("sync.resyncs")
	// SyncMismatchRate tracks the 1/5/15-minute EWMA rate of mismatched peer
	// hash samples, in Meter's load-average style; it is time-based and
	// independent of the rolling hash window.
	SyncMismatchRate = NewMeter()

	// ---- Session metrics ----

	// ActiveClients tracks the size of the session's active-client set.
	ActiveClients = DefaultRegistry.Gauge("session.active_clients")
	// InputsConfirmed counts inputs that transitioned to CONFIRMED.
	InputsConfirmed = DefaultRegistry.Counter("session.inputs_confirmed")
)
