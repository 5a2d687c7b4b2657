package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/tubejoint/pkg/tube"
)

// objFaces are the six outer quads over the corner order of tube.Corners,
// 1-based.
var objFaces = [6][4]int{
	{1, 2, 3, 4},
	{5, 8, 7, 6},
	{1, 5, 6, 2},
	{2, 6, 7, 3},
	{3, 7, 8, 4},
	{5, 1, 4, 8},
}

// WriteOBJ writes each tube's outer box as a Wavefront object: eight
// world-space corners with the full pose applied and six quad faces.
func WriteOBJ(w io.Writer, tubes []tube.Tube) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# tubejoint assembly\n# Generated: %s\n\n", now().UTC().Format("2006-01-02T15:04:05.000Z"))

	base := 1
	for i, t := range tubes {
		fmt.Fprintf(bw, "# Tube %d\n", i+1)
		fmt.Fprintf(bw, "o %s\n", objName(t.ID, i))
		for _, c := range t.Corners() {
			fmt.Fprintf(bw, "v %s %s %s\n", objFloat(c.X), objFloat(c.Y), objFloat(c.Z))
		}
		for _, f := range objFaces {
			fmt.Fprintf(bw, "f %d %d %d %d\n", base+f[0]-1, base+f[1]-1, base+f[2]-1, base+f[3]-1)
		}
		base += 8
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: obj: %w", err)
	}
	return nil
}

// objName returns a whitespace-free object name, falling back to Tube_n.
func objName(id tube.ID, i int) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, string(id))
	if name == "" {
		return fmt.Sprintf("Tube_%d", i+1)
	}
	return name
}

func objFloat(v float64) string {
	// Squash -0 and float noise from rotated corners.
	r := strconv.FormatFloat(v, 'f', 6, 64)
	r = strings.TrimRight(strings.TrimRight(r, "0"), ".")
	if r == "-0" {
		return "0"
	}
	return r
}
