// Package config loads tubejoint settings from TOML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/tubejoint/pkg/history"
	"github.com/chazu/tubejoint/pkg/joint"
	"github.com/chazu/tubejoint/pkg/kernel"
	"github.com/chazu/tubejoint/pkg/kernel/manifold"
	"github.com/chazu/tubejoint/pkg/kernel/sdfx"
	"github.com/jinzhu/copier"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full tool configuration.
type Config struct {
	Detection DetectionConfig `toml:"detection"`
	History   HistoryConfig   `toml:"history"`
	Store     StoreConfig     `toml:"store"`
	Render    RenderConfig    `toml:"render"`
}

// DetectionConfig tunes joint detection. The strength scale is fixed and
// deliberately absent.
type DetectionConfig struct {
	Distance        float64   `toml:"distance"`         // max center-to-center distance
	AngleTolerance  float64   `toml:"angle_tolerance"`  // degrees, strict
	CanonicalAngles []float64 `toml:"canonical_angles"` // degrees in [0,180]
}

// HistoryConfig sizes the undo stack.
type HistoryConfig struct {
	MaxStates int `toml:"max_states"`
}

// StoreConfig locates the scene database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// RenderConfig sets the tessellation resolution of the preview meshes.
type RenderConfig struct {
	Kernel      string  `toml:"kernel"`        // sdfx or manifold
	MeshCells   int     `toml:"mesh_cells"`    // sdfx: marching cubes cells on the longest side
	MaxCellSize float64 `toml:"max_cell_size"` // sdfx: mm, refines cells for thin walls
}

// Default returns the built-in configuration.
func Default() Config {
	angles := make([]float64, len(joint.CanonicalAngles))
	copy(angles, joint.CanonicalAngles)
	return Config{
		Detection: DetectionConfig{
			Distance:        joint.DefaultDetectionDistance,
			AngleTolerance:  joint.DefaultAngleTolerance,
			CanonicalAngles: angles,
		},
		History: HistoryConfig{MaxStates: history.DefaultMaxStates},
		Store:   StoreConfig{Path: "tubejoint.db"},
		Render: RenderConfig{
			Kernel:      "sdfx",
			MeshCells:   sdfx.DefaultMeshCells,
			MaxCellSize: sdfx.DefaultMaxCellSize,
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the detector cannot use.
func (c Config) Validate() error {
	if c.Detection.Distance <= 0 {
		return fmt.Errorf("config: detection.distance %.4f must be positive: %w", c.Detection.Distance, ErrInvalid)
	}
	if c.Detection.AngleTolerance <= 0 {
		return fmt.Errorf("config: detection.angle_tolerance %.4f must be positive: %w", c.Detection.AngleTolerance, ErrInvalid)
	}
	if len(c.Detection.CanonicalAngles) == 0 {
		return fmt.Errorf("config: detection.canonical_angles is empty: %w", ErrInvalid)
	}
	for _, a := range c.Detection.CanonicalAngles {
		if a < 0 || a > 180 {
			return fmt.Errorf("config: canonical angle %.4f outside [0,180]: %w", a, ErrInvalid)
		}
	}
	if c.History.MaxStates <= 0 {
		return fmt.Errorf("config: history.max_states %d must be positive: %w", c.History.MaxStates, ErrInvalid)
	}
	switch c.Render.Kernel {
	case "sdfx", "manifold":
	default:
		return fmt.Errorf("config: render.kernel %q must be sdfx or manifold: %w", c.Render.Kernel, ErrInvalid)
	}
	if c.Render.MeshCells <= 0 {
		return fmt.Errorf("config: render.mesh_cells %d must be positive: %w", c.Render.MeshCells, ErrInvalid)
	}
	if c.Render.MaxCellSize <= 0 {
		return fmt.Errorf("config: render.max_cell_size %.4f must be positive: %w", c.Render.MaxCellSize, ErrInvalid)
	}
	return nil
}

// Clone returns a deep copy of c. Components built from the copy share no
// slices with c.
func (c Config) Clone() (Config, error) {
	var out Config
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		return Config{}, fmt.Errorf("config: clone: %w", err)
	}
	return out, nil
}

// Kernel builds the configured geometry kernel. The manifold kernel fails
// in builds without the manifold tag.
func (c Config) Kernel() (kernel.Kernel, error) {
	if c.Render.Kernel == "manifold" {
		k, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return k, nil
	}
	return sdfx.NewWithCells(c.Render.MeshCells, c.Render.MaxCellSize), nil
}

// Detector builds a joint detector from the detection settings.
func (c Config) Detector() *joint.Detector {
	return &joint.Detector{DetectionDistance: c.Detection.Distance}
}

// Validator builds an angle validator from the detection settings. The
// validator shares c's canonical angles; use Clone first to detach it.
func (c Config) Validator() joint.AngleValidator {
	return joint.AngleValidator{
		Angles:    c.Detection.CanonicalAngles,
		Tolerance: c.Detection.AngleTolerance,
	}
}

// Manager builds a joint set manager from the detection settings.
func (c Config) Manager() *joint.Manager {
	return joint.NewManager(c.Detector(), c.Validator())
}
