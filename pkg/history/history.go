// Package history keeps a bounded undo/redo stack of assembly snapshots.
package history

import "github.com/chazu/tubejoint/pkg/tube"

// DefaultMaxStates is the default history depth.
const DefaultMaxStates = 50

// History is a linear undo/redo stack. Saving after an undo discards the
// redo branch. It is not safe for concurrent use; the assembly serializes
// access.
type History struct {
	states    [][]tube.Tube
	index     int // current state, -1 when empty
	maxStates int
}

// New returns an empty history holding at most maxStates snapshots.
// Non-positive values fall back to DefaultMaxStates.
func New(maxStates int) *History {
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	return &History{index: -1, maxStates: maxStates}
}

// Save records a copy of state as the current state. Tubes hold no
// references, so a copy of the slice is a deep copy.
func (h *History) Save(state []tube.Tube) {
	snap := make([]tube.Tube, len(state))
	copy(snap, state)

	h.states = append(h.states[:h.index+1], snap)
	h.index++

	if len(h.states) > h.maxStates {
		h.states = h.states[1:]
		h.index--
	}
}

// Undo steps back one state. It never moves before the first state.
func (h *History) Undo() ([]tube.Tube, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.index--
	return tube.Clone(h.states[h.index]), true
}

// Redo steps forward one state.
func (h *History) Redo() ([]tube.Tube, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.index++
	return tube.Clone(h.states[h.index]), true
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.states)-1 }

// Clear drops every state.
func (h *History) Clear() {
	h.states = nil
	h.index = -1
}

// Len returns the number of stored states.
func (h *History) Len() int { return len(h.states) }

// Index returns the position of the current state, or -1.
func (h *History) Index() int { return h.index }
