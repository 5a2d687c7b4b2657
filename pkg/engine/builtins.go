package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpTube wraps a placed tube so scripts can bind it with def.
type sexpTube struct {
	t tube.Tube
}

func (s *sexpTube) SexpString(ps *zygo.PrintState) string {
	c := s.t.Config
	return fmt.Sprintf("(tube %q %gx%gx%gx%g)", s.t.ID, c.Width, c.Height, c.Thickness, c.Length)
}
func (s *sexpTube) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_square) and plain strings ("square").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toKind converts :square or :rectangular to a tube.Kind.
func toKind(s zygo.Sexp) (tube.Kind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected kind keyword (:square, :rectangular): %w", err)
	}
	return tube.ParseKind(name)
}

// toVec3 accepts a (vec3 ...) value or a three-element list or array of
// numbers.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
	}
	if len(items) != 3 {
		return v3.Vec{}, fmt.Errorf("expected 3 components, got %d", len(items))
	}
	var c [3]float64
	for i, item := range items {
		f, err := toFloat64(item)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("component %d: %w", i, err)
		}
		c[i] = f
	}
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Scene collection
// ---------------------------------------------------------------------------

// scene accumulates the tubes declared by one evaluation, in source order.
type scene struct {
	tubes    []tube.Tube
	ids      map[tube.ID]bool
	warnings []EvalWarning
}

func newScene() *scene {
	return &scene{tubes: []tube.Tube{}, ids: make(map[tube.ID]bool)}
}

func (s *scene) add(t tube.Tube) error {
	if s.ids[t.ID] {
		return fmt.Errorf("duplicate tube id %q", t.ID)
	}
	s.ids[t.ID] = true
	s.tubes = append(s.tubes, t)
	return nil
}

func (s *scene) warnf(id tube.ID, format string, args ...any) {
	s.warnings = append(s.warnings, EvalWarning{
		Message: fmt.Sprintf(format, args...),
		TubeID:  id,
	})
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
// Every tube call appends to s.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene) {

	// -----------------------------------------------------------------------
	// (tube "post" :kind :square :width 20 :thickness 2 :length 100
	//       :at (vec3 0 0 0) :rotate (vec3 0 90 0))
	// -----------------------------------------------------------------------
	env.AddFunction("tube", tubeBuiltin(s, "tube", nil))

	// -----------------------------------------------------------------------
	// (rect-tube "rail" :width 40 :height 20 ...)
	// (square-tube "post" :width 25 ...)
	//
	// Registered with underscores; the preprocessor rewrites the hyphens.
	// -----------------------------------------------------------------------
	rect := tube.KindRectangular
	env.AddFunction("rect_tube", tubeBuiltin(s, "rect-tube", &rect))
	square := tube.KindSquare
	env.AddFunction("square_tube", tubeBuiltin(s, "square-tube", &square))

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (tube-count)
	// -----------------------------------------------------------------------
	env.AddFunction("tube_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(len(s.tubes))}, nil
	})
}

// tubeBuiltin builds the handler shared by tube, rect-tube and square-tube.
// A non-nil kind fixes the cross-section and rejects :kind.
func tubeBuiltin(s *scene, label string, kind *tube.Kind) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		t := tube.Tube{Config: tube.DefaultConfig()}

		if len(pa.positional) > 1 {
			return zygo.SexpNull, fmt.Errorf("%s: expected at most one positional id, got %d", label, len(pa.positional))
		}
		if len(pa.positional) == 1 {
			id, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: id: %w", label, err)
			}
			t.ID = tube.ID(id)
		}

		if kind != nil {
			if _, ok := pa.kw["kind"]; ok {
				return zygo.SexpNull, fmt.Errorf("%s: :kind is fixed to %s", label, *kind)
			}
			t.Config.Kind = *kind
		} else if v, ok := pa.kw["kind"]; ok {
			k, err := toKind(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: kind: %w", label, err)
			}
			t.Config.Kind = k
		}

		dims := []struct {
			key string
			dst *float64
		}{
			{"width", &t.Config.Width},
			{"height", &t.Config.Height},
			{"thickness", &t.Config.Thickness},
			{"length", &t.Config.Length},
		}
		for _, d := range dims {
			v, ok := pa.kw[d.key]
			if !ok {
				continue
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %s: %w", label, d.key, err)
			}
			*d.dst = f
		}
		_, heightSet := pa.kw["height"]
		if t.Config.Kind == tube.KindSquare && !heightSet {
			t.Config.Height = t.Config.Width
		}

		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: at: %w", label, err)
			}
			t.Position = vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: rotate: %w", label, err)
			}
			t.Rotation = vec
		}

		if t.ID == "" {
			t.ID = tube.NewID()
		}
		norm := t.Config.Normalized()
		if norm != t.Config {
			s.warnf(t.ID, "%s %q: adjusted to %gx%gx%gx%g", label, t.ID,
				norm.Width, norm.Height, norm.Thickness, norm.Length)
		}
		t.Config = norm

		if err := s.add(t); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
		}
		return &sexpTube{t: t}, nil
	}
}
