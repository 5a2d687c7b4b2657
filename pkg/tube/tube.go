// Package tube defines the rigid rectangular tube segments that make up an
// assembly. A Tube is plain data: a cross-section config plus a world pose.
// The joint package only ever reads snapshots of these values.
package tube

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// MinDimension is the smallest positive value any tube dimension, or either
// inner cross-section dimension, is clamped to.
const MinDimension = 0.1

// Kind distinguishes between cross-section shapes.
type Kind int

const (
	KindSquare      Kind = iota // nominally width == height; see square-tube in the DSL
	KindRectangular
)

func (k Kind) String() string {
	switch k {
	case KindSquare:
		return "square"
	case KindRectangular:
		return "rectangular"
	default:
		return "unknown"
	}
}

// ParseKind converts "square" or "rectangular" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "square", "":
		return KindSquare, nil
	case "rectangular", "rect":
		return KindRectangular, nil
	}
	return 0, fmt.Errorf("tube: unknown kind %q, expected square or rectangular", s)
}

// ID identifies a tube within an assembly.
type ID string

// NewID returns a random tube ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Config is the cross-section and length of a tube, in mm.
type Config struct {
	Kind      Kind    `json:"kind"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Thickness float64 `json:"thickness"` // wall thickness
	Length    float64 `json:"length"`    // along local +Z
}

// DefaultConfig returns the stock 20x20x2 square tube, 100mm long.
func DefaultConfig() Config {
	return Config{
		Kind:      KindSquare,
		Width:     20,
		Height:    20,
		Thickness: 2,
		Length:    100,
	}
}

// Normalized returns a copy of c that is safe for geometry: every dimension
// is positive and the wall thickness leaves both inner dimensions at least
// MinDimension/2 wide. Kind is a label only; Width and Height are kept
// independent for every kind.
func (c Config) Normalized() Config {
	c.Width = atLeast(c.Width, MinDimension)
	c.Height = atLeast(c.Height, MinDimension)
	c.Length = atLeast(c.Length, MinDimension)

	maxWall := (min(c.Width, c.Height) - MinDimension/2) / 2
	if c.Thickness <= 0 {
		c.Thickness = MinDimension
	}
	if c.Thickness > maxWall {
		c.Thickness = maxWall
	}
	return c
}

// InnerWidth returns the hollow width, never below MinDimension.
func (c Config) InnerWidth() float64 {
	return max(MinDimension, c.Width-2*c.Thickness)
}

// InnerHeight returns the hollow height, never below MinDimension.
func (c Config) InnerHeight() float64 {
	return max(MinDimension, c.Height-2*c.Thickness)
}

func atLeast(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

// Tube is a single tube segment placed in world space.
// Rotation holds Euler angles in degrees applied in X, Y, Z order
// (world matrix Rx·Ry·Rz).
type Tube struct {
	ID       ID     `json:"id"`
	Config   Config `json:"config"`
	Position v3.Vec `json:"position"`
	Rotation v3.Vec `json:"rotation"`
}

// New creates a tube at the origin with a fresh ID and a normalized config.
func New(cfg Config) Tube {
	return Tube{
		ID:     NewID(),
		Config: cfg.Normalized(),
	}
}

// HalfExtents returns (width/2, height/2, length/2) of the normalized config.
func (t Tube) HalfExtents() v3.Vec {
	c := t.Config.Normalized()
	return v3.Vec{X: c.Width / 2, Y: c.Height / 2, Z: c.Length / 2}
}

// Axis returns the tube's local +Z (length) axis in world space, normalized.
func (t Tube) Axis() v3.Vec {
	return t.Orientation().Apply(v3.Vec{Z: 1}).Normalize()
}

// ToWorld maps a point in the tube's local frame to world space:
// rotation first, then translation.
func (t Tube) ToWorld(p v3.Vec) v3.Vec {
	return t.Orientation().Apply(p).Add(t.Position)
}

// Corners returns the 8 world-space corners of the tube's outer box.
// Order: the four -Z corners counter-clockwise from (-x,-y), then the four +Z.
func (t Tube) Corners() [8]v3.Vec {
	h := t.HalfExtents()
	local := [8]v3.Vec{
		{X: -h.X, Y: -h.Y, Z: -h.Z},
		{X: h.X, Y: -h.Y, Z: -h.Z},
		{X: h.X, Y: h.Y, Z: -h.Z},
		{X: -h.X, Y: h.Y, Z: -h.Z},
		{X: -h.X, Y: -h.Y, Z: h.Z},
		{X: h.X, Y: -h.Y, Z: h.Z},
		{X: h.X, Y: h.Y, Z: h.Z},
		{X: -h.X, Y: h.Y, Z: h.Z},
	}
	rot := t.Orientation()
	var world [8]v3.Vec
	for i, p := range local {
		world[i] = rot.Apply(p).Add(t.Position)
	}
	return world
}

// Clone returns a copy of tubes that shares no backing array with the input.
func Clone(tubes []Tube) []Tube {
	if tubes == nil {
		return nil
	}
	out := make([]Tube, len(tubes))
	copy(out, tubes)
	return out
}
