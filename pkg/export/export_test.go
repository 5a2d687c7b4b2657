package export

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

func sampleTubes() []tube.Tube {
	return []tube.Tube{
		{ID: "post", Config: tube.DefaultConfig()},
		{
			ID:       "rail",
			Config:   tube.Config{Kind: tube.KindRectangular, Width: 40, Height: 20, Thickness: 3, Length: 600},
			Position: v3.Vec{X: 1.25, Y: -2, Z: 290},
			Rotation: v3.Vec{Y: 90},
		},
	}
}

func TestJSONEnvelope(t *testing.T) {
	fixedClock(t)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleTubes()))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "1.0.0", raw["version"])
	assert.Equal(t, "2026-03-14T09:26:53Z", raw["timestamp"])
	assert.Equal(t, map[string]any{"tubeCount": 2.0, "savedBy": "tubejoint"}, raw["metadata"])

	tubes := raw["tubes"].([]any)
	require.Len(t, tubes, 2)
	rail := tubes[1].(map[string]any)
	assert.Equal(t, "rail", rail["id"])
	assert.Equal(t, "rectangular", rail["type"])
	assert.Equal(t, map[string]any{"x": 0.0, "y": 90.0, "z": 0.0}, rail["rotation"])
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleTubes()))
	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTubes(), got)
}

func TestReadJSONValidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"missing version", `{"tubes": []}`},
		{"future version", `{"version": "2.0.0", "tubes": []}`},
		{"missing tubes", `{"version": "1.0.0"}`},
		{"bad type", `{"version": "1.0.0", "tubes": [{"type": "round"}]}`},
		{"duplicate id", `{"version": "1.0.0", "tubes": [{"id": "a", "type": "square"}, {"id": "a", "type": "square"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrInvalidScene)
		})
	}
}

func TestReadJSONNormalizesAndAssignsIDs(t *testing.T) {
	in := `{"version": "1.0.0", "metadata": {"savedBy": "tubejoint"}, "tubes": [
		{"type": "square", "width": 30, "height": 5, "thickness": 40, "length": 0,
		 "position": {"x": 1, "y": 2, "z": 3}, "rotation": {"x": 0, "y": 0, "z": 45}}
	]}`
	got, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, 5.0, got[0].Config.Height, "height is kept for square tubes")
	assert.Less(t, got[0].Config.Thickness, 2.5)
	assert.Equal(t, tube.MinDimension, got[0].Config.Length)
	assert.Equal(t, v3.Vec{X: 1, Y: 2, Z: 3}, got[0].Position)
	assert.Equal(t, v3.Vec{Z: 45}, got[0].Rotation)
}

func TestEmptySceneRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestYAMLRoundTrip(t *testing.T) {
	fixedClock(t)
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleTubes()))
	assert.Contains(t, buf.String(), "version: 1.0.0")
	assert.Contains(t, buf.String(), "savedBy: tubejoint")

	got, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTubes(), got)

	_, err = ReadYAML(strings.NewReader("version: \"1.0.0\"\n"))
	assert.ErrorIs(t, err, ErrInvalidScene)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTubes()))

	want := "ID,Type,Width,Height,Thickness,Length,PosX,PosY,PosZ,RotX,RotY,RotZ\n" +
		"post,square,20,20,2,100,0.00,0.00,0.00,0.0000,0.0000,0.0000\n" +
		"rail,rectangular,40,20,3,600,1.25,-2.00,290.00,0.0000,90.0000,0.0000\n"
	assert.Equal(t, want, buf.String())

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTubes(), got)
}

func TestReadCSVLegacyHeader(t *testing.T) {
	in := "Type,Width,Height,Thickness,Length,PosX,PosY,PosZ,RotX,RotY,RotZ\n" +
		"square,20,20,2,100,0.00,0.00,50.00,0.0000,1.5708,0.0000\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.InDelta(t, 90.0, got[0].Rotation.Y, 1e-3, "radians become degrees")
	assert.Equal(t, 50.0, got[0].Position.Z)
}

// readBrowserScene loads a file saved by the browser tool.
func readBrowserScene(t *testing.T, name string) []tube.Tube {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	format, err := FormatOf(name)
	require.NoError(t, err)
	tubes, err := Read(format, f)
	require.NoError(t, err)
	return tubes
}

func TestReadBrowserScenes(t *testing.T) {
	for _, name := range []string{"browser_scene.json", "browser_scene.csv"} {
		t.Run(name, func(t *testing.T) {
			got := readBrowserScene(t, name)
			require.Len(t, got, 2)

			assert.Equal(t, v3.Vec{}, got[0].Rotation)
			assert.InDelta(t, 90.0, got[1].Rotation.Y, 1e-3)

			// The rail lies across the post, not along it.
			axis := got[1].Axis()
			assert.InDelta(t, 1.0, math.Abs(axis.X), 1e-6)
			assert.InDelta(t, 0.0, axis.Z, 1e-4)

			// Saved again by this package, rotations stay in degrees.
			var buf bytes.Buffer
			require.NoError(t, WriteJSON(&buf, got))
			again, err := ReadJSON(&buf)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestReadJSONForeignProducerUsesRadians(t *testing.T) {
	in := `{"version": "1.0.0", "tubes": [{"id": "a", "type": "square", "width": 20, "height": 20,
		"thickness": 2, "length": 100, "rotation": {"x": 0, "y": 0, "z": 3.141592653589793}}]}`
	got, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 180.0, got[0].Rotation.Z, 1e-9)
}

func TestReadCSVRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"wrong header", "a,b,c\n"},
		{"short row", strings.Join(CSVHeader, ",") + "\nx,square,20\n"},
		{"bad number", strings.Join(CSVHeader, ",") + "\nx,square,wide,20,2,100,0,0,0,0,0,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrInvalidScene)
		})
	}
}

func TestOBJ(t *testing.T) {
	fixedClock(t)
	tubes := []tube.Tube{
		{ID: "a", Config: tube.DefaultConfig()},
		{ID: "b c", Config: tube.DefaultConfig(), Position: v3.Vec{X: 100}, Rotation: v3.Vec{Y: 90}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, tubes))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# tubejoint assembly\n# Generated: 2026-03-14T09:26:53.000Z\n"))
	assert.Contains(t, out, "o a\n")
	assert.Contains(t, out, "o b_c\n")
	assert.Equal(t, 16, strings.Count(out, "\nv "))
	assert.Equal(t, 12, strings.Count(out, "\nf "))

	// First tube is axis aligned.
	assert.Contains(t, out, "v -10 -10 -50\n")
	assert.Contains(t, out, "v 10 10 50\n")
	// Second tube's first face starts at vertex 9, and its corners are
	// rotated: local z=-50 maps to world x=100-50.
	assert.Contains(t, out, "f 9 10 11 12\n")
	assert.Contains(t, out, "v 50 -10 10\n")
	assert.NotContains(t, out, "-0 ")
}

func TestOBJName(t *testing.T) {
	assert.Equal(t, "Tube_3", objName("", 2))
	assert.Equal(t, "top_rail", objName("top rail", 0))
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"scene.json", FormatJSON},
		{"scene.YAML", FormatYAML},
		{"dir/scene.yml", FormatYAML},
		{"scene.csv", FormatCSV},
		{"frame.obj", FormatOBJ},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatOf("scene")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = FormatOf("scene.stl")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestReadWriteDispatch(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML, FormatCSV} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(f, &buf, sampleTubes()))
			got, err := Read(f, &buf)
			require.NoError(t, err)
			assert.Equal(t, sampleTubes(), got)
		})
	}

	var buf bytes.Buffer
	require.NoError(t, Write(FormatOBJ, &buf, sampleTubes()))
	_, err := Read(FormatOBJ, &buf)
	assert.ErrorIs(t, err, ErrWriteOnly)
	assert.ErrorIs(t, Write("stl", &buf, nil), ErrUnknownFormat)
}
