package cutplan

import (
	"errors"
	"math"
	"testing"

	"github.com/clipsmith/cut-engine/internal/interval"
)

func iv(start, end float64) interval.Interval {
	return interval.Interval{Start: start, End: end}
}

func TestPlan_NoCutsKeepsEverything(t *testing.T) {
	keep, err := Plan(nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(keep) != 1 || keep[0] != iv(0, 42) {
		t.Errorf("Plan(nil, 42) = %v, want [[0,42]]", keep)
	}
}

func TestPlan_FullCoverYieldsEmptyPlan(t *testing.T) {
	keep, err := Plan([]interval.Interval{iv(0, 10)}, 10)
	if err != nil {
		t.Fatalf("full cover is not a planner error: %v", err)
	}
	if len(keep) != 0 {
		t.Errorf("got %v, want empty plan", keep)
	}
}

func TestPlan_OverlappingUnorderedCuts(t *testing.T) {
	cuts := []interval.Interval{iv(6, 8), iv(1, 3), iv(2, 4)}
	keep, err := Plan(cuts, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []interval.Interval{iv(0, 1), iv(4, 6), iv(8, 10)}
	if len(keep) != len(want) {
		t.Fatalf("got %v, want %v", keep, want)
	}
	for i := range want {
		if keep[i] != want[i] {
			t.Errorf("keep[%d] = %v, want %v", i, keep[i], want[i])
		}
	}
}

func TestPlan_InvalidCuts(t *testing.T) {
	tests := []struct {
		name string
		cut  interval.Interval
	}{
		{"start_equals_end", iv(2, 2)},
		{"start_after_end", iv(5, 3)},
		{"negative_start", iv(-1, 3)},
		{"nan", iv(math.NaN(), 3)},
		{"infinite_end", iv(0, math.Inf(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan([]interval.Interval{iv(0, 1), tt.cut}, 10)
			if !errors.Is(err, ErrInvalidInterval) {
				t.Errorf("expected ErrInvalidInterval, got %v", err)
			}
		})
	}
}

func TestPlan_UnknownDuration(t *testing.T) {
	for _, d := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if _, err := Plan(nil, d); !errors.Is(err, ErrUnknownDuration) {
			t.Errorf("duration %v: expected ErrUnknownDuration, got %v", d, err)
		}
	}
}

func TestPlan_DriftTailDropped(t *testing.T) {
	// Floating-point sums leave a 5ms tail; it must not reach extraction.
	keep, err := Plan([]interval.Interval{iv(0, 9.995)}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(keep) != 0 {
		t.Errorf("sub-epsilon tail must be dropped, got %v", keep)
	}
}

func TestPlan_CutBeyondDurationClipped(t *testing.T) {
	keep, err := Plan([]interval.Interval{iv(8, 15)}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(keep) != 1 || keep[0] != iv(0, 8) {
		t.Errorf("got %v, want [[0,8]]", keep)
	}
}
