package joint

import (
	"sync"

	"github.com/chazu/tubejoint/pkg/tube"
)

// Joint is a validated candidate tagged with its tier.
type Joint struct {
	Candidate
	Tier Tier `json:"tier"`
}

// Trigger names the mutation that caused a recompute.
type Trigger int

const (
	TriggerAdded Trigger = iota
	TriggerRemoved
	TriggerMoved
	TriggerRotated
	TriggerReplaced // whole tube list swapped (load, undo, redo)
)

func (t Trigger) String() string {
	switch t {
	case TriggerAdded:
		return "added"
	case TriggerRemoved:
		return "removed"
	case TriggerMoved:
		return "moved"
	case TriggerRotated:
		return "rotated"
	case TriggerReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Manager produces the joint set for a tube list and keeps the last result
// for readers. It never holds tube state between calls.
//
// Recompute is safe for concurrent use, but callers must pass a snapshot:
// the tubes slice must not be mutated while Recompute runs.
type Manager struct {
	detector  *Detector
	validator AngleValidator

	mu     sync.RWMutex
	joints []Joint
}

// NewManager returns a Manager. A nil detector means NewDetector().
func NewManager(d *Detector, v AngleValidator) *Manager {
	if d == nil {
		d = NewDetector()
	}
	return &Manager{detector: d, validator: v}
}

// NewDefaultManager uses the default detection distance and angle set.
func NewDefaultManager() *Manager {
	return NewManager(NewDetector(), DefaultAngleValidator())
}

// Recompute scans every unordered pair (i<j) of tubes, keeps candidates with
// a valid angle, classifies them and stores the result. Joints are ordered by
// i then j. A pair of IDs that occurs more than once is reported once, at its
// first position.
func (m *Manager) Recompute(tubes []tube.Tube) []Joint {
	joints := Scan(tubes, m.detector, m.validator)

	m.mu.Lock()
	m.joints = joints
	m.mu.Unlock()

	return Clone(joints)
}

// Joints returns a copy of the last computed joint set.
func (m *Manager) Joints() []Joint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Clone(m.joints)
}

// Lookup returns the joint for a tube pair in the last computed set.
func (m *Manager) Lookup(a, b tube.ID) (Joint, bool) {
	key := NewPair(a, b)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.joints {
		if j.Pair == key {
			return j, true
		}
	}
	return Joint{}, false
}

// Scan is the stateless core of Recompute. Large scenes are pruned with a
// bounding-box index first; the result is the same as testing every pair.
func Scan(tubes []tube.Tube, d *Detector, v AngleValidator) []Joint {
	return scanPairs(tubes, candidatePairs(tubes), d, v)
}

func scanPairs(tubes []tube.Tube, pairs [][2]int, d *Detector, v AngleValidator) []Joint {
	var joints []Joint
	seen := make(map[Pair]bool)

	for _, p := range pairs {
		c, ok := d.Detect(tubes[p[0]], tubes[p[1]])
		if !ok || !v.Valid(c.Angle) {
			continue
		}
		if seen[c.Pair] {
			continue
		}
		seen[c.Pair] = true
		joints = append(joints, Joint{Candidate: c, Tier: Classify(c.Angle, c.Strength)})
	}

	return joints
}

// Clone copies a joint slice.
func Clone(joints []Joint) []Joint {
	if joints == nil {
		return nil
	}
	out := make([]Joint, len(joints))
	copy(out, joints)
	return out
}
