package joint

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
)

func TestAllPairs(t *testing.T) {
	if got := allPairs(1); got != nil {
		t.Errorf("allPairs(1) = %v, want nil", got)
	}
	want := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	if diff := cmp.Diff(want, allPairs(3)); diff != "" {
		t.Errorf("allPairs(3) mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidatePairsSmallSceneIsExhaustive(t *testing.T) {
	tubes := frame()
	if diff := cmp.Diff(allPairs(len(tubes)), candidatePairs(tubes)); diff != "" {
		t.Errorf("candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestScanIndexedMatchesExhaustive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var tubes []tube.Tube
	for i := 0; i < 200; i++ {
		rot := v3.Vec{}
		switch i % 4 {
		case 1:
			rot = v3.Vec{Y: 90}
		case 2:
			rot = v3.Vec{X: 90}
		case 3:
			rot = v3.Vec{Z: float64(rng.Intn(90))}
		}
		tubes = append(tubes, square(fmt.Sprintf("t%03d", i), randVec(rng, 500), rot))
	}

	d, v := NewDetector(), DefaultAngleValidator()
	want := scanPairs(tubes, allPairs(len(tubes)), d, v)
	got := Scan(tubes, d, v)
	if len(want) == 0 {
		t.Fatal("scene produced no joints; test is not exercising the index")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("indexed scan mismatch (-want +got):\n%s", diff)
	}
	if n := len(candidatePairs(tubes)); n >= len(allPairs(len(tubes))) {
		t.Errorf("index kept %d pairs, expected pruning", n)
	}
}

func TestScanIndexedKeepsTouchingTubes(t *testing.T) {
	// A chain of collinear tubes, each touching the next end to end.
	var tubes []tube.Tube
	for i := 0; i < 40; i++ {
		tubes = append(tubes, square(fmt.Sprintf("c%02d", i), v3.Vec{Z: float64(i) * 100}, v3.Vec{}))
	}

	joints := Scan(tubes, NewDetector(), DefaultAngleValidator())
	if len(joints) != 39 {
		t.Fatalf("got %d joints, want 39", len(joints))
	}
	for i, j := range joints {
		want := NewPair(tubes[i].ID, tubes[i+1].ID)
		if j.Pair != want {
			t.Errorf("joint %d = %v, want %v", i, j.Pair, want)
		}
		if j.Strength != 0 || j.Tier != TierExact {
			t.Errorf("joint %d: strength %v tier %v, want 0 exact", i, j.Strength, j.Tier)
		}
	}
}

func TestScanIndexedKeepsTouchingTubesFarFromOrigin(t *testing.T) {
	// At 1e12 a fixed 1e-6 pad rounds away and touching boxes would be
	// pruned by the tree.
	const origin = 1e12
	var tubes []tube.Tube
	for i := 0; i < 40; i++ {
		tubes = append(tubes, square(fmt.Sprintf("f%02d", i), v3.Vec{X: origin, Z: origin + float64(i)*100}, v3.Vec{}))
	}

	d, v := NewDetector(), DefaultAngleValidator()
	want := scanPairs(tubes, allPairs(len(tubes)), d, v)
	if len(want) != 39 {
		t.Fatalf("exhaustive scan found %d joints, want 39", len(want))
	}
	if diff := cmp.Diff(want, Scan(tubes, d, v)); diff != "" {
		t.Errorf("indexed scan mismatch (-want +got):\n%s", diff)
	}
}

func TestPadForGrowsWithMagnitude(t *testing.T) {
	for _, x := range []float64{0, 1, 1e6, 1e10, 1e12, 1e15} {
		if x+padFor(x, x) == x {
			t.Errorf("pad at %g is lost to rounding", x)
		}
	}
}
