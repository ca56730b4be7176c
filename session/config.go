package session

import (
	"log/slog"

	"github.com/moddio/lockstep/inputhist"
)

// Config configures a Session end to end: simulation rate, prediction
// limits, and the ambient logging/metrics knobs every participant carries
// regardless of how much of the network stack it actually exercises.
type Config struct {
	// TickRate is the simulation's fixed frames-per-second.
	TickRate uint32
	// MaxPredictionFrames throttles how far local prediction may run ahead
	// of the last confirmed server frame.
	MaxPredictionFrames uint32
	// InputDelayFrames is how many frames in the future locally-queued
	// input is scheduled for, giving the network time to deliver it to
	// every other participant before it is due to apply.
	InputDelayFrames uint32
	// PredictionStrategy selects how missing remote input is predicted.
	PredictionStrategy inputhist.Strategy
	// HashWindow is the rolling sample size consensusync uses to judge
	// connection health.
	HashWindow int
	// SnapshotRingCapacity bounds how many pre-tick snapshots PREDICT keeps
	// for rollback.
	SnapshotRingCapacity uint32
	// InputHistoryCapacity bounds the INPUT-HIST ring buffer.
	InputHistoryCapacity uint32
	// DiagCacheBytes bounds consensusync's mismatch-diagnostic cache.
	DiagCacheBytes int
	// RoomSeed, if set, seeds the deterministic PRNG via a room-specific
	// expansion rather than a single client-supplied integer.
	RoomSeed []byte

	// LogLevel is carried in the config but not applied: the session logs
	// through log.Module("session"), whose level is that of the package
	// default logger.
	LogLevel slog.Level
	// MetricsEnabled toggles whether Session itself records its own metrics
	// (frame, live entities, confirmed inputs, active clients) into the
	// package-level registry. The predictor and the consensus tracker record
	// their metrics regardless of this flag.
	MetricsEnabled bool
}

// DefaultConfig returns a Config with conservative, broadly-applicable
// defaults: 30Hz simulation, half a second of prediction headroom, idle
// prediction for missing input.
func DefaultConfig() Config {
	return Config{
		TickRate:             30,
		MaxPredictionFrames:  15,
		InputDelayFrames:     2,
		PredictionStrategy:   inputhist.Idle,
		HashWindow:           30,
		SnapshotRingCapacity: 64,
		InputHistoryCapacity: 256,
		DiagCacheBytes:       1 << 20,
		LogLevel:             slog.LevelInfo,
		MetricsEnabled:       true,
	}
}
