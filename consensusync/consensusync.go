// Package consensusync implements per-tick hash consensus between
// participants: everyone exchanges a state hash each frame, a rolling
// match/mismatch window classifies the connection's health, and a
// confirmed desync escalates to a resync request.
package consensusync

import (
	"encoding/binary"
	"sort"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/moddio/lockstep/ecs"
	"github.com/moddio/lockstep/log"
	"github.com/moddio/lockstep/metrics"
)

// State is a position in the desync state machine.
type State int

const (
	// Initial: not enough ticks exchanged yet to judge health.
	Initial State = iota
	// Active: hashes have been matching within tolerance.
	Active
	// Drift: mismatches are occurring more than expected, not yet enough
	// to declare desync.
	Drift
	// Desync: the rolling pass percentage has fallen below the
	// recoverable threshold; a resync is required.
	Desync
	// Resyncing: a full-state resync has been requested and is in
	// flight.
	Resyncing
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Active:
		return "active"
	case Drift:
		return "drift"
	case Desync:
		return "desync"
	case Resyncing:
		return "resyncing"
	default:
		return "unknown"
	}
}

const (
	driftThreshold  = 0.90 // pass percentage below this enters Drift
	desyncThreshold = 0.50 // pass percentage below this enters Desync
	minSamples      = 4    // ticks needed before the window is trusted
)

// Tracker owns the rolling hash-consensus state for one participant's view
// of the room.
type Tracker struct {
	localID  int32
	peers    map[int32]bool
	window   int
	ring     []bool
	ringIdx  int
	filled   int
	state    State
	diagCache *fastcache.Cache
	logger   *log.Logger
}

// NewTracker returns a Tracker. window is the rolling sample size used to
// compute the pass percentage; diagCacheBytes bounds the in-memory
// diagnostic record cache.
func NewTracker(localID int32, window int, diagCacheBytes int) *Tracker {
	if window <= 0 {
		window = 30
	}
	return &Tracker{
		localID:   localID,
		peers:     make(map[int32]bool),
		window:    window,
		ring:      make([]bool, window),
		diagCache: fastcache.New(diagCacheBytes),
		logger:    log.Module("consensusync"),
	}
}

// AddPeer registers a peer participating in hash consensus.
func (t *Tracker) AddPeer(clientID int32) { t.peers[clientID] = true }

// RemovePeer deregisters a peer.
func (t *Tracker) RemovePeer(clientID int32) { delete(t.peers, clientID) }

// IsAuthority reports whether this participant is the consensus authority:
// by convention, the lowest client id among all known participants
// (including itself).
func (t *Tracker) IsAuthority() bool {
	lowest := t.localID
	for id := range t.peers {
		if id < lowest {
			lowest = id
		}
	}
	return lowest == t.localID
}

// SortedParticipants returns every known client id (including local),
// ascending — the order resync diagnostics and authority selection both
// rely on.
func (t *Tracker) SortedParticipants() []int32 {
	out := make([]int32, 0, len(t.peers)+1)
	out = append(out, t.localID)
	for id := range t.peers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Tracker) recordSample(match bool) {
	t.ring[t.ringIdx] = match
	t.ringIdx = (t.ringIdx + 1) % t.window
	if t.filled < t.window {
		t.filled++
	}
	if !match {
		metrics.SyncMismatchRate.Mark(1)
	}
}

// MismatchRate returns the 1-minute EWMA rate of hash mismatches per
// second, across every tracker in the process — a faster-moving signal than
// PassPercent's fixed rolling window, useful for alerting on a mismatch
// burst before it accumulates enough samples to move the window.
func (t *Tracker) MismatchRate() float64 { return metrics.SyncMismatchRate.Rate1() }

// PassPercent returns the fraction of the rolling window that matched, in
// [0, 1]. Returns 1 when no samples have been recorded yet.
func (t *Tracker) PassPercent() float64 {
	if t.filled == 0 {
		return 1
	}
	matches := 0
	for i := 0; i < t.filled; i++ {
		if t.ring[i] {
			matches++
		}
	}
	return float64(matches) / float64(t.filled)
}

// State returns the tracker's current desync classification.
func (t *Tracker) State() State { return t.state }

// RecordTick folds in one tick's worth of peer hashes against the local
// hash, updates the rolling window, advances the state machine, and returns
// whether this tick pushed the tracker into Desync.
func (t *Tracker) RecordTick(localHash uint32, peerHashes map[int32]uint32) bool {
	mismatched := false
	for _, h := range peerHashes {
		match := h == localHash
		t.recordSample(match)
		if !match {
			mismatched = true
		}
	}
	if mismatched {
		metrics.HashMismatches.Inc()
	}

	pct := t.PassPercent()
	metrics.SyncPassPercent.Set(int64(pct * 100))

	if t.state == Resyncing {
		return false
	}
	if t.filled < minSamples {
		t.state = Initial
		return false
	}
	switch {
	case pct < desyncThreshold:
		if t.state != Desync {
			t.logger.Warn("hash consensus lost", "pass_percent", pct)
		}
		t.state = Desync
		return true
	case pct < driftThreshold:
		t.state = Drift
	default:
		t.state = Active
	}
	return false
}

// RecordMismatchDiagnostic caches a field-level diff for one peer's
// mismatched frame, keyed by (frame, peer) so a later lookup can explain a
// specific disagreement. Bounded by the cache's configured byte budget;
// oldest entries are evicted first once full.
func (t *Tracker) RecordMismatchDiagnostic(frame uint32, peerID int32, diffs []ecs.FieldDiff) {
	key := diagKey(frame, peerID)
	t.diagCache.Set(key, encodeDiffs(diffs))
}

// LookupMismatchDiagnostic retrieves a previously cached diff, if still
// resident.
func (t *Tracker) LookupMismatchDiagnostic(frame uint32, peerID int32) ([]ecs.FieldDiff, bool) {
	key := diagKey(frame, peerID)
	raw, ok := t.diagCache.HasGet(nil, key)
	if !ok {
		return nil, false
	}
	return decodeDiffs(raw), true
}

func diagKey(frame uint32, peerID int32) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint32(key[0:4], frame)
	binary.BigEndian.PutUint32(key[4:8], uint32(peerID))
	return key
}

// RequestResync moves the tracker into Resyncing, suppressing further
// desync escalation until ApplyResync completes the recovery.
func (t *Tracker) RequestResync() {
	t.state = Resyncing
	metrics.ResyncsTotal.Inc()
}

// ApplyResync clears the rolling window and returns the tracker to Active,
// called once a fresh authoritative snapshot has been loaded.
func (t *Tracker) ApplyResync() {
	t.ring = make([]bool, t.window)
	t.ringIdx = 0
	t.filled = 0
	t.state = Active
}
