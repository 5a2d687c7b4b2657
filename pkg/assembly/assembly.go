// Package assembly holds the authoritative tube list of a scene and turns
// every edit into a full joint recompute. Edits are explicit method calls,
// so the scene is usable without any UI or event loop.
package assembly

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/chazu/tubejoint/pkg/history"
	"github.com/chazu/tubejoint/pkg/joint"
	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	ErrNotFound    = errors.New("tube not found")
	ErrDuplicateID = errors.New("duplicate tube id")
)

// Assembly is an ordered, ID-indexed collection of tubes. It is safe for
// concurrent use.
type Assembly struct {
	mu      sync.Mutex
	tubes   []tube.Tube
	index   map[tube.ID]int
	joints  *joint.Manager
	history *history.History
	logger  *log.Logger
}

// Option configures an Assembly.
type Option func(*Assembly)

// WithHistory enables undo/redo with the given stack.
func WithHistory(h *history.History) Option {
	return func(a *Assembly) { a.history = h }
}

// WithLogger sets the logger used for recompute traces.
func WithLogger(l *log.Logger) Option {
	return func(a *Assembly) { a.logger = l }
}

// New returns an empty assembly. A nil manager means
// joint.NewDefaultManager().
func New(m *joint.Manager, opts ...Option) *Assembly {
	if m == nil {
		m = joint.NewDefaultManager()
	}
	a := &Assembly{
		index:  make(map[tube.ID]int),
		joints: m,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.history != nil {
		// The empty scene is the first undo target.
		a.history.Save(nil)
	}
	return a
}

// Add creates a tube from cfg at the given pose and returns it.
func (a *Assembly) Add(cfg tube.Config, position, rotation v3.Vec) tube.Tube {
	t := tube.New(cfg)
	t.Position = position
	t.Rotation = rotation

	a.mu.Lock()
	defer a.mu.Unlock()
	a.tubes = append(a.tubes, t)
	a.index[t.ID] = len(a.tubes) - 1
	a.commit(joint.TriggerAdded)
	return t
}

// Insert adds a fully specified tube. An empty ID is replaced by a new one.
func (a *Assembly) Insert(t tube.Tube) (tube.Tube, error) {
	if t.ID == "" {
		t.ID = tube.NewID()
	}
	t.Config = t.Config.Normalized()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.index[t.ID]; ok {
		return tube.Tube{}, fmt.Errorf("assembly: insert %s: %w", t.ID, ErrDuplicateID)
	}
	a.tubes = append(a.tubes, t)
	a.index[t.ID] = len(a.tubes) - 1
	a.commit(joint.TriggerAdded)
	return t, nil
}

// Remove deletes a tube.
func (a *Assembly) Remove(id tube.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.index[id]
	if !ok {
		return fmt.Errorf("assembly: remove %s: %w", id, ErrNotFound)
	}
	a.tubes = append(a.tubes[:i], a.tubes[i+1:]...)
	a.reindex()
	a.commit(joint.TriggerRemoved)
	return nil
}

// Move sets a tube's world position.
func (a *Assembly) Move(id tube.ID, position v3.Vec) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.index[id]
	if !ok {
		return fmt.Errorf("assembly: move %s: %w", id, ErrNotFound)
	}
	a.tubes[i].Position = position
	a.commit(joint.TriggerMoved)
	return nil
}

// Rotate sets a tube's world rotation (Euler degrees, XYZ order).
func (a *Assembly) Rotate(id tube.ID, rotation v3.Vec) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.index[id]
	if !ok {
		return fmt.Errorf("assembly: rotate %s: %w", id, ErrNotFound)
	}
	a.tubes[i].Rotation = rotation
	a.commit(joint.TriggerRotated)
	return nil
}

// Replace swaps in a whole tube list, for example a loaded scene. Tubes
// without IDs get new ones; duplicate IDs are rejected and leave the
// assembly unchanged.
func (a *Assembly) Replace(tubes []tube.Tube) error {
	next := make([]tube.Tube, len(tubes))
	index := make(map[tube.ID]int, len(tubes))
	for i, t := range tubes {
		if t.ID == "" {
			t.ID = tube.NewID()
		}
		if _, ok := index[t.ID]; ok {
			return fmt.Errorf("assembly: replace: %s: %w", t.ID, ErrDuplicateID)
		}
		t.Config = t.Config.Normalized()
		next[i] = t
		index[t.ID] = i
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.tubes = next
	a.index = index
	a.commit(joint.TriggerReplaced)
	return nil
}

// Undo restores the previous snapshot. It reports false when there is
// nothing to undo or history is disabled.
func (a *Assembly) Undo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.history == nil {
		return false
	}
	state, ok := a.history.Undo()
	if !ok {
		return false
	}
	a.restore(state)
	return true
}

// Redo re-applies the next snapshot.
func (a *Assembly) Redo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.history == nil {
		return false
	}
	state, ok := a.history.Redo()
	if !ok {
		return false
	}
	a.restore(state)
	return true
}

// Tubes returns a snapshot of the tube list in insertion order.
func (a *Assembly) Tubes() []tube.Tube {
	a.mu.Lock()
	defer a.mu.Unlock()
	return tube.Clone(a.tubes)
}

// Get returns one tube by ID.
func (a *Assembly) Get(id tube.ID) (tube.Tube, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.index[id]
	if !ok {
		return tube.Tube{}, false
	}
	return a.tubes[i], true
}

// Len returns the number of tubes.
func (a *Assembly) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tubes)
}

// Joints returns the joint set computed after the last edit.
func (a *Assembly) Joints() []joint.Joint {
	return a.joints.Joints()
}

// commit records history and recomputes joints. Callers hold a.mu.
func (a *Assembly) commit(trigger joint.Trigger) {
	snap := tube.Clone(a.tubes)
	if a.history != nil {
		a.history.Save(snap)
	}
	a.recompute(trigger, snap)
}

// restore installs a history snapshot without recording a new state.
func (a *Assembly) restore(state []tube.Tube) {
	a.tubes = state
	a.reindex()
	a.recompute(joint.TriggerReplaced, tube.Clone(a.tubes))
}

func (a *Assembly) recompute(trigger joint.Trigger, snap []tube.Tube) {
	joints := a.joints.Recompute(snap)
	a.logger.Printf("assembly: %s: %d tubes, %d joints", trigger, len(snap), len(joints))
}

func (a *Assembly) reindex() {
	a.index = make(map[tube.ID]int, len(a.tubes))
	for i, t := range a.tubes {
		a.index[t.ID] = i
	}
}
