package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chazu/tubejoint/pkg/assembly"
	"github.com/chazu/tubejoint/pkg/config"
	"github.com/chazu/tubejoint/pkg/engine"
	"github.com/chazu/tubejoint/pkg/history"
	"github.com/chazu/tubejoint/pkg/joint"
	"github.com/chazu/tubejoint/pkg/kernel"
	"github.com/chazu/tubejoint/pkg/tessellate"
	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// colorPalette is a default palette used to assign distinct colors to tubes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// tierColors maps each joint tier to its preview color.
var tierColors = map[joint.Tier]string{
	joint.TierExact: "#4CAF50",
	joint.TierGood:  "#2196F3",
	joint.TierWeak:  "#FFC107",
	joint.TierPoor:  "#FF6B6B",
}

// App connects the DSL engine, the assembly and the mesh kernel. Its
// methods return plain JSON-serializable data for a viewer.
type App struct {
	engine   *engine.Engine
	kernel   kernel.Kernel
	assembly *assembly.Assembly
	logger   *log.Logger
}

// MeshData is the JSON-serializable mesh format sent to a viewer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// JointData is one joint preview: a marker at Position and a line from the
// first tube's center through the joint to the second tube's center.
type JointData struct {
	TubeA    string        `json:"tubeA"`
	TubeB    string        `json:"tubeB"`
	Position [3]float64    `json:"position"`
	Angle    float64       `json:"angle"`
	Distance float64       `json:"distance"`
	Strength float64       `json:"strength"`
	Tier     string        `json:"tier"`
	Color    string        `json:"color"`
	Line     [3][3]float64 `json:"line"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// WarningData reports an input the engine accepted after adjusting it.
type WarningData struct {
	TubeID  string `json:"tubeId,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the full result of an evaluation or edit.
type EvalResult struct {
	Tubes    int             `json:"tubes"`
	Joints   []JointData     `json:"joints"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []WarningData   `json:"warnings"`
}

// NewApp creates an App from a private copy of cfg. A nil logger means
// log.Default().
func NewApp(cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	cfg, err := cfg.Clone()
	if err != nil {
		return nil, err
	}
	k, err := cfg.Kernel()
	if err != nil {
		return nil, err
	}
	return &App{
		engine: engine.NewEngine(),
		kernel: k,
		assembly: assembly.New(cfg.Manager(),
			assembly.WithHistory(history.New(cfg.History.MaxStates)),
			assembly.WithLogger(logger),
		),
		logger: logger,
	}, nil
}

func newResult() EvalResult {
	return EvalResult{
		Joints:   []JointData{},
		Errors:   []EvalErrorData{},
		Warnings: []WarningData{},
	}
}

// Evaluate runs DSL source and, when it succeeds, replaces the scene with
// the tubes it defines. On errors the previous scene is kept.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()

	res, err := a.engine.EvaluateResult(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.logger.Printf("Evaluate fatal error: %v", err)
		return a.withScene(result, err)
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, WarningData{TubeID: string(w.TubeID), Message: w.Message})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return a.withScene(result, nil)
	}

	return a.withScene(result, a.assembly.Replace(res.Tubes))
}

// Load replaces the scene with tubes read from a file or the store.
func (a *App) Load(tubes []tube.Tube) EvalResult {
	return a.withScene(newResult(), a.assembly.Replace(tubes))
}

// MoveTube sets a tube's position.
func (a *App) MoveTube(id string, x, y, z float64) EvalResult {
	return a.withScene(newResult(), a.assembly.Move(tube.ID(id), v3.Vec{X: x, Y: y, Z: z}))
}

// RotateTube sets a tube's rotation in degrees.
func (a *App) RotateTube(id string, x, y, z float64) EvalResult {
	return a.withScene(newResult(), a.assembly.Rotate(tube.ID(id), v3.Vec{X: x, Y: y, Z: z}))
}

// RemoveTube deletes a tube.
func (a *App) RemoveTube(id string) EvalResult {
	return a.withScene(newResult(), a.assembly.Remove(tube.ID(id)))
}

// Undo steps back one edit.
func (a *App) Undo() (EvalResult, bool) {
	ok := a.assembly.Undo()
	return a.withScene(newResult(), nil), ok
}

// Redo re-applies an undone edit.
func (a *App) Redo() (EvalResult, bool) {
	ok := a.assembly.Redo()
	return a.withScene(newResult(), nil), ok
}

// Tubes returns the current scene.
func (a *App) Tubes() []tube.Tube {
	return a.assembly.Tubes()
}

// Joints returns the current joint set.
func (a *App) Joints() []joint.Joint {
	return a.assembly.Joints()
}

func (a *App) withScene(result EvalResult, err error) EvalResult {
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	result.Tubes = a.assembly.Len()
	result.Joints = a.jointData(a.assembly.Joints())
	return result
}

func (a *App) jointData(joints []joint.Joint) []JointData {
	out := make([]JointData, 0, len(joints))
	for _, j := range joints {
		ta, okA := a.assembly.Get(j.Pair.A)
		tb, okB := a.assembly.Get(j.Pair.B)
		if !okA || !okB {
			continue
		}
		p := toArray(j.Position)
		out = append(out, JointData{
			TubeA:    string(j.Pair.A),
			TubeB:    string(j.Pair.B),
			Position: p,
			Angle:    j.Angle,
			Distance: j.Distance,
			Strength: j.Strength,
			Tier:     j.Tier.String(),
			Color:    tierColors[j.Tier],
			Line:     [3][3]float64{toArray(ta.Position), p, toArray(tb.Position)},
		})
	}
	return out
}

// Render tessellates every tube of the current scene.
func (a *App) Render(ctx context.Context) ([]MeshData, error) {
	meshes, err := tessellate.Tessellate(ctx, a.assembly.Tubes(), a.kernel)
	if err != nil {
		a.logger.Printf("Tessellate error: %v", err)
		return nil, fmt.Errorf("tessellation failed: %w", err)
	}

	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return out, nil
}

// errorSummary joins result errors into one message.
func (r EvalResult) errorSummary() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		if e.Line > 0 {
			msgs[i] = fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Message)
			continue
		}
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func toArray(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
