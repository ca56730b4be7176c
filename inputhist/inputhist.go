// Package inputhist is the ring-buffer input history PREDICT and SESSION share:
// one slot per frame (mod a fixed capacity), each holding every client's
// input for that frame and whether that input is CONFIRMED (arrived over
// the network, or produced locally) or still only a PREDICTED stand-in.
package inputhist

import (
	"github.com/moddio/lockstep/ecs"
	"github.com/moddio/lockstep/engineerr"
)

// Strategy selects how GetPredictedInput fabricates a stand-in for a
// client's input on a frame nothing has arrived for yet.
type Strategy int

const (
	// Idle predicts the action schema's zero value every time.
	Idle Strategy = iota
	// RepeatLast predicts the client's most recently confirmed input.
	RepeatLast
)

type slot struct {
	frame     uint32
	valid     bool
	inputs    map[int32]ecs.ActionFrame
	confirmed map[int32]bool
}

// History is the ring buffer itself.
type History struct {
	schema      *ecs.ActionSchema
	capacity    uint32
	slots       []slot
	strategy    Strategy
	localClient int32
	clients     map[int32]bool
	lastKnown   map[int32]ecs.ActionFrame
	oldest      uint32
	haveOldest  bool
}

// New returns an empty History over the given action schema.
func New(schema *ecs.ActionSchema, capacity uint32, strategy Strategy) *History {
	if capacity == 0 {
		panic("inputhist: capacity must be > 0")
	}
	return &History{
		schema:      schema,
		capacity:    capacity,
		slots:       make([]slot, capacity),
		strategy:    strategy,
		localClient: -1,
		clients:     make(map[int32]bool),
		lastKnown:   make(map[int32]ecs.ActionFrame),
	}
}

// SetLocalClient designates which client id is this participant's own.
func (h *History) SetLocalClient(id int32) { h.localClient = id }

// AddClient registers a client as participating in input exchange.
func (h *History) AddClient(id int32) { h.clients[id] = true }

// HasClient reports whether id is currently a registered participant.
func (h *History) HasClient(id int32) bool { return h.clients[id] }

// RemoveClient deregisters a client; its future predictions fall back to
// the schema's zero value.
func (h *History) RemoveClient(id int32) {
	delete(h.clients, id)
	delete(h.lastKnown, id)
}

func (h *History) slotFor(frame uint32) *slot {
	s := &h.slots[frame%h.capacity]
	if !s.valid || s.frame != frame {
		*s = slot{
			frame:     frame,
			valid:     true,
			inputs:    make(map[int32]ecs.ActionFrame),
			confirmed: make(map[int32]bool),
		}
	}
	return s
}

// StoreLocal records this participant's own input for frame as confirmed —
// a local client never needs to predict its own input.
func (h *History) StoreLocal(frame uint32, input ecs.ActionFrame) {
	if h.localClient < 0 {
		panic("inputhist: StoreLocal called with no local client set")
	}
	s := h.slotFor(frame)
	s.inputs[h.localClient] = input
	s.confirmed[h.localClient] = true
	h.lastKnown[h.localClient] = input
}

// StorePredicted records a predicted stand-in for a remote client's input on
// frame. A no-op if that (frame, client) pair has already been confirmed —
// a confirmed input is never overwritten by a later prediction.
func (h *History) StorePredicted(frame uint32, clientID int32, input ecs.ActionFrame) {
	s := h.slotFor(frame)
	if s.confirmed[clientID] {
		return
	}
	s.inputs[clientID] = input
}

// Confirm records clientID's real input for frame, arrived over the
// network. It reports whether this overwrites a prediction that turned out
// wrong — a misprediction, detected by plain shallow equality — so the
// caller can decide whether a rollback is needed. If the slot was already
// CONFIRMED, Confirm leaves it untouched and returns false: a confirmed
// input is never overwritten by a later confirm.
func (h *History) Confirm(frame uint32, clientID int32, input ecs.ActionFrame) (mispredicted bool) {
	s := h.slotFor(frame)
	if s.confirmed[clientID] {
		return false
	}
	prev, hadPrediction := s.inputs[clientID]
	mispredicted = hadPrediction && !prev.Equal(input)
	s.inputs[clientID] = input
	s.confirmed[clientID] = true
	h.lastKnown[clientID] = input
	return mispredicted
}

// GetPredictedInput fabricates a stand-in for clientID with no confirmed
// input yet, per the configured Strategy.
func (h *History) GetPredictedInput(clientID int32) ecs.ActionFrame {
	switch h.strategy {
	case RepeatLast:
		if last, ok := h.lastKnown[clientID]; ok {
			return last.Clone()
		}
	}
	return h.schema.NewFrame()
}

// GetFrameInputs returns every client's input for frame, filling in
// predictions for any client with no stored value yet, plus whether every
// known client's input for that frame is confirmed. A freshly fabricated
// prediction is written back into the ring buffer via StorePredicted, so a
// later Confirm for the same (frame, client) can detect a misprediction
// against it.
func (h *History) GetFrameInputs(frame uint32) (map[int32]ecs.ActionFrame, bool) {
	s := h.slotFor(frame)
	out := make(map[int32]ecs.ActionFrame, len(h.clients))
	allConfirmed := true
	for clientID := range h.clients {
		if input, ok := s.inputs[clientID]; ok {
			out[clientID] = input
			if !s.confirmed[clientID] {
				allConfirmed = false
			}
		} else {
			predicted := h.GetPredictedInput(clientID)
			h.StorePredicted(frame, clientID, predicted)
			out[clientID] = predicted
			allConfirmed = false
		}
	}
	return out, allConfirmed
}

// IsFrameConfirmed reports whether every currently-known client has a
// confirmed input recorded for frame.
func (h *History) IsFrameConfirmed(frame uint32) bool {
	s := h.slotFor(frame)
	for clientID := range h.clients {
		if !s.confirmed[clientID] {
			return false
		}
	}
	return true
}

// OldestFrame returns the oldest frame ClearOld has not yet evicted. It is
// monotonically non-decreasing for the lifetime of the History.
func (h *History) OldestFrame() (uint32, bool) {
	return h.oldest, h.haveOldest
}

// ClearOld evicts every slot older than newOldest. newOldest older than the
// current OldestFrame is a programmer error — eviction only ever moves
// forward.
func (h *History) ClearOld(newOldest uint32) error {
	if h.haveOldest && newOldest < h.oldest {
		return engineerr.New(engineerr.Programmer, "inputhist.ClearOld",
			"oldest frame must be monotonically non-decreasing")
	}
	for i := range h.slots {
		if h.slots[i].valid && h.slots[i].frame < newOldest {
			h.slots[i] = slot{}
		}
	}
	h.oldest = newOldest
	h.haveOldest = true
	return nil
}

// OldestUnconfirmed scans forward from OldestFrame and returns the first
// frame with at least one client still unconfirmed.
func (h *History) OldestUnconfirmed() (uint32, bool) {
	if !h.haveOldest {
		return 0, false
	}
	for f := h.oldest; f < h.oldest+h.capacity; f++ {
		s := &h.slots[f%h.capacity]
		if s.valid && s.frame == f && !h.allConfirmedInSlot(s) {
			return f, true
		}
	}
	return 0, false
}

func (h *History) allConfirmedInSlot(s *slot) bool {
	for clientID := range h.clients {
		if !s.confirmed[clientID] {
			return false
		}
	}
	return true
}

// Reset clears every slot and client registration, as though the History
// were freshly constructed.
func (h *History) Reset() {
	h.slots = make([]slot, h.capacity)
	h.clients = make(map[int32]bool)
	h.lastKnown = make(map[int32]ecs.ActionFrame)
	h.oldest = 0
	h.haveOldest = false
}
