package joint

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/tubejoint/pkg/tube"
	"github.com/deadsy/sdfx/sdf"
	"github.com/dhconnelly/rtreego"
)

// bruteForceLimit is the tube count at or below which every pair is tested
// without building an index.
const bruteForceLimit = 32

// The tree treats touching boxes as disjoint, so indexed boxes are widened
// by boxPad plus boxPadRel times the coordinate magnitude. The relative term
// stays thousands of ulps wide at any magnitude.
const (
	boxPad    = 1e-6
	boxPadRel = 1e-12
)

type indexedBox struct {
	i    int
	rect rtreego.Rect
}

func (b *indexedBox) Bounds() rtreego.Rect { return b.rect }

// candidatePairs returns the index pairs (i<j) that may form a joint, sorted
// by i then j. A pair left out has disjoint bounding boxes and cannot pass
// Detect.
func candidatePairs(tubes []tube.Tube) [][2]int {
	n := len(tubes)
	if n <= bruteForceLimit {
		return allPairs(n)
	}

	boxes := make([]rtreego.Spatial, n)
	for i, t := range tubes {
		r, err := paddedRect(Bounds(t))
		if err != nil {
			return allPairs(n)
		}
		boxes[i] = &indexedBox{i: i, rect: r}
	}
	tree := rtreego.NewTree(3, 4, 16, boxes...)

	var pairs [][2]int
	for i, b := range boxes {
		for _, hit := range tree.SearchIntersect(b.Bounds()) {
			if j := hit.(*indexedBox).i; j > i {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	slices.SortFunc(pairs, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	return pairs
}

func allPairs(n int) [][2]int {
	if n < 2 {
		return nil
	}
	pairs := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

func paddedRect(b sdf.Box3) (rtreego.Rect, error) {
	lo := rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z}
	hi := rtreego.Point{b.Max.X, b.Max.Y, b.Max.Z}
	for i := range lo {
		pad := padFor(lo[i], hi[i])
		lo[i] -= pad
		hi[i] += pad
	}
	return rtreego.NewRectFromPoints(lo, hi)
}

func padFor(lo, hi float64) float64 {
	return boxPad + boxPadRel*max(math.Abs(lo), math.Abs(hi))
}
