// Package export reads and writes tube scenes as JSON, YAML, CSV and OBJ.
// Only tubes are serialized; joints are always recomputed after a load.
package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Version is written into every scene envelope. Readers accept any 1.x.
const Version = "1.0.0"

// SavedBy names the producer in the scene metadata. Envelopes from any other
// producer come from the browser tool, which stores rotations in radians.
const SavedBy = "tubejoint"

// ErrInvalidScene is wrapped by every decode failure caused by content
// rather than I/O.
var ErrInvalidScene = errors.New("invalid scene")

// now is replaced in tests.
var now = time.Now

// Vec3 is the wire form of a position or rotation.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func fromVec(v v3.Vec) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }
func (v Vec3) vec() v3.Vec  { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func (v Vec3) degrees() Vec3 {
	const k = 180 / math.Pi
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// radiansToDegrees returns a copy of recs with rotations converted from
// radians.
func radiansToDegrees(recs []TubeRecord) []TubeRecord {
	out := make([]TubeRecord, len(recs))
	for i, r := range recs {
		r.Rotation = r.Rotation.degrees()
		out[i] = r
	}
	return out
}

// TubeRecord is one serialized tube. Rotation is in degrees in files written
// by this package and in radians in files from the browser tool.
type TubeRecord struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Type      string  `json:"type" yaml:"type"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
	Length    float64 `json:"length" yaml:"length"`
	Position  Vec3    `json:"position" yaml:"position"`
	Rotation  Vec3    `json:"rotation" yaml:"rotation"`
}

// Metadata describes a saved scene.
type Metadata struct {
	TubeCount int    `json:"tubeCount" yaml:"tubeCount"`
	SavedBy   string `json:"savedBy" yaml:"savedBy"`
}

// Scene is the versioned envelope shared by the JSON and YAML formats.
type Scene struct {
	Version   string       `json:"version" yaml:"version"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Metadata  Metadata     `json:"metadata" yaml:"metadata"`
	Tubes     []TubeRecord `json:"tubes" yaml:"tubes"`
}

// NewScene wraps tubes in an envelope stamped with the current time.
func NewScene(tubes []tube.Tube) Scene {
	recs := make([]TubeRecord, len(tubes))
	for i, t := range tubes {
		recs[i] = record(t)
	}
	return Scene{
		Version:   Version,
		Timestamp: now().UTC(),
		Metadata:  Metadata{TubeCount: len(tubes), SavedBy: SavedBy},
		Tubes:     recs,
	}
}

func record(t tube.Tube) TubeRecord {
	return TubeRecord{
		ID:        string(t.ID),
		Type:      t.Config.Kind.String(),
		Width:     t.Config.Width,
		Height:    t.Config.Height,
		Thickness: t.Config.Thickness,
		Length:    t.Config.Length,
		Position:  fromVec(t.Position),
		Rotation:  fromVec(t.Rotation),
	}
}

// ToTubes validates the envelope and returns its tubes with normalized
// configs and rotations in degrees. Records without an ID get a new one.
func (s Scene) ToTubes() ([]tube.Tube, error) {
	if s.Version == "" {
		return nil, fmt.Errorf("export: missing version: %w", ErrInvalidScene)
	}
	if !strings.HasPrefix(s.Version, "1.") {
		return nil, fmt.Errorf("export: unsupported version %q: %w", s.Version, ErrInvalidScene)
	}
	if s.Tubes == nil {
		return nil, fmt.Errorf("export: missing tube list: %w", ErrInvalidScene)
	}
	if s.Metadata.SavedBy != SavedBy {
		return fromRecords(radiansToDegrees(s.Tubes))
	}
	return fromRecords(s.Tubes)
}

func fromRecords(recs []TubeRecord) ([]tube.Tube, error) {
	out := make([]tube.Tube, 0, len(recs))
	seen := make(map[tube.ID]bool, len(recs))
	for i, r := range recs {
		t, err := r.tube()
		if err != nil {
			return nil, fmt.Errorf("export: tube %d: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("export: tube %d: duplicate id %q: %w", i, t.ID, ErrInvalidScene)
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out, nil
}

func (r TubeRecord) tube() (tube.Tube, error) {
	kind, err := tube.ParseKind(r.Type)
	if err != nil {
		return tube.Tube{}, fmt.Errorf("%v: %w", err, ErrInvalidScene)
	}
	id := tube.ID(r.ID)
	if id == "" {
		id = tube.NewID()
	}
	cfg := tube.Config{
		Kind:      kind,
		Width:     r.Width,
		Height:    r.Height,
		Thickness: r.Thickness,
		Length:    r.Length,
	}
	return tube.Tube{
		ID:       id,
		Config:   cfg.Normalized(),
		Position: r.Position.vec(),
		Rotation: r.Rotation.vec(),
	}, nil
}
