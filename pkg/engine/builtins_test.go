package engine

import (
	"strings"
	"testing"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(tube :width 20)`,
			expect: `(tube "__kw_width" 20)`,
		},
		{
			name:   "keyword value",
			input:  `(tube :kind :rectangular)`,
			expect: `(tube "__kw_kind" "__kw_rectangular")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(rect-tube "a")`,
			expect: `(rect_tube "a")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 -50 0 -1.5)`,
			expect: `(vec3 -50 0 -1.5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphenated id in string preserved",
			input:  `(tube "top-rail")`,
			expect: `(tube "top-rail")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// tube builtin
// ---------------------------------------------------------------------------

func evalOK(t *testing.T, source string) []tube.Tube {
	t.Helper()
	tubes, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return tubes
}

func evalFails(t *testing.T, source, want string) {
	t.Helper()
	tubes, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if tubes != nil {
		t.Errorf("expected nil tubes, got %d", len(tubes))
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error")
	}
	if !strings.Contains(evalErrs[0].Message, want) {
		t.Errorf("error %q does not mention %q", evalErrs[0].Message, want)
	}
}

func TestTubeDefaults(t *testing.T) {
	tubes := evalOK(t, `(tube "post")`)
	if len(tubes) != 1 {
		t.Fatalf("expected 1 tube, got %d", len(tubes))
	}
	got := tubes[0]
	if got.ID != "post" {
		t.Errorf("id = %q, want post", got.ID)
	}
	if got.Config != tube.DefaultConfig() {
		t.Errorf("config = %+v, want default", got.Config)
	}
	if got.Position != (v3.Vec{}) || got.Rotation != (v3.Vec{}) {
		t.Errorf("expected identity pose, got %v %v", got.Position, got.Rotation)
	}
}

func TestTubeFullForm(t *testing.T) {
	source := `
(tube "rail" :kind :rectangular :width 40 :height 20 :thickness 3 :length 600
      :at (vec3 0 0 290) :rotate (vec3 0 90 0))
`
	tubes := evalOK(t, source)
	if len(tubes) != 1 {
		t.Fatalf("expected 1 tube, got %d", len(tubes))
	}
	got := tubes[0]
	want := tube.Config{Kind: tube.KindRectangular, Width: 40, Height: 20, Thickness: 3, Length: 600}
	if got.Config != want {
		t.Errorf("config = %+v, want %+v", got.Config, want)
	}
	if got.Position != (v3.Vec{Z: 290}) {
		t.Errorf("position = %v", got.Position)
	}
	if got.Rotation != (v3.Vec{Y: 90}) {
		t.Errorf("rotation = %v", got.Rotation)
	}
}

func TestShorthandBuiltins(t *testing.T) {
	source := `
(square-tube "a" :width 25)
(rect-tube "b" :width 40 :height 10)
`
	tubes := evalOK(t, source)
	if len(tubes) != 2 {
		t.Fatalf("expected 2 tubes, got %d", len(tubes))
	}
	if tubes[0].Config.Kind != tube.KindSquare || tubes[0].Config.Height != 25 {
		t.Errorf("square-tube: %+v", tubes[0].Config)
	}
	if tubes[1].Config.Kind != tube.KindRectangular || tubes[1].Config.Height != 10 {
		t.Errorf("rect-tube: %+v", tubes[1].Config)
	}

	evalFails(t, `(square-tube "a" :kind :rectangular)`, "kind")
}

func TestVariablesAndLists(t *testing.T) {
	source := `
(def w 30)
(def up (vec3 0 0 50))
(tube "a" :width w :at up :rotate [90 0 0])
`
	tubes := evalOK(t, source)
	if len(tubes) != 1 {
		t.Fatalf("expected 1 tube, got %d", len(tubes))
	}
	if tubes[0].Config.Width != 30 || tubes[0].Config.Height != 30 {
		t.Errorf("width from variable: %+v", tubes[0].Config)
	}
	if tubes[0].Position.Z != 50 {
		t.Errorf("position from variable: %v", tubes[0].Position)
	}
	if tubes[0].Rotation.X != 90 {
		t.Errorf("rotation from array: %v", tubes[0].Rotation)
	}
}

func TestMissingIDGetsOne(t *testing.T) {
	tubes := evalOK(t, `(tube) (tube)`)
	if len(tubes) != 2 {
		t.Fatalf("expected 2 tubes, got %d", len(tubes))
	}
	if tubes[0].ID == "" || tubes[0].ID == tubes[1].ID {
		t.Errorf("expected distinct generated ids, got %q and %q", tubes[0].ID, tubes[1].ID)
	}
}

func TestDuplicateIDFails(t *testing.T) {
	evalFails(t, `(tube "a") (tube "a" :at (vec3 0 0 10))`, "duplicate")
}

func TestBadArguments(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"string width", `(tube "a" :width "wide")`, "width"},
		{"bad kind", `(tube "a" :kind :round)`, "kind"},
		{"short vec", `(tube "a" :at [1 2])`, "at"},
		{"vec3 arity", `(vec3 1 2)`, "vec3"},
		{"two ids", `(tube "a" "b")`, "positional"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.source, tt.want)
		})
	}
}

func TestAdjustedDimensionsWarn(t *testing.T) {
	res, err := NewEngine().EvaluateResult(`(tube "thin" :width 10 :thickness 8) (tube "ok")`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", res.Warnings)
	}
	if res.Warnings[0].TubeID != "thin" {
		t.Errorf("warning for %q, want thin", res.Warnings[0].TubeID)
	}
	if th := res.Tubes[0].Config.Thickness; th >= 5 {
		t.Errorf("thickness %g not clamped below half the width", th)
	}
}

func TestTubeCount(t *testing.T) {
	source := `
(tube "a")
(tube "b" :at (vec3 (* 20 (tube-count)) 0 0))
`
	tubes := evalOK(t, source)
	if tubes[1].Position.X != 20 {
		t.Errorf("tube-count: position %v", tubes[1].Position)
	}
}
