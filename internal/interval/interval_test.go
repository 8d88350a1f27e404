package interval

import (
	"math"
	"testing"
)

func intervalsEqual(a, b []Interval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Start-b[i].Start) > 1e-9 || math.Abs(a[i].End-b[i].End) > 1e-9 {
			return false
		}
	}
	return true
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{"empty", nil, nil},
		{"single", []Interval{{1, 2}}, []Interval{{1, 2}}},
		{
			"unsorted_disjoint",
			[]Interval{{5, 6}, {1, 2}},
			[]Interval{{1, 2}, {5, 6}},
		},
		{
			"overlapping",
			[]Interval{{1, 4}, {2, 6}},
			[]Interval{{1, 6}},
		},
		{
			"touching_coalesced",
			[]Interval{{1, 2}, {2, 3}},
			[]Interval{{1, 3}},
		},
		{
			"contained",
			[]Interval{{1, 10}, {3, 4}},
			[]Interval{{1, 10}},
		},
		{
			"mixed",
			[]Interval{{8, 9}, {0, 2}, {1, 3}, {3, 5}},
			[]Interval{{0, 5}, {8, 9}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			if !intervalsEqual(got, tt.want) {
				t.Errorf("Merge(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMerge_OutputDisjointAscending(t *testing.T) {
	in := []Interval{{7, 8}, {0, 3}, {2.5, 4}, {4, 4.5}, {6, 7}, {9, 9}}
	got := Merge(in)
	for i := 1; i < len(got); i++ {
		if got[i].Start <= got[i-1].End {
			t.Errorf("intervals %d and %d touch or overlap: %v", i-1, i, got)
		}
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []Interval{{5, 6}, {1, 2}}
	Merge(in)
	if in[0].Start != 5 {
		t.Error("Merge reordered the caller's slice")
	}
}

func TestComplement(t *testing.T) {
	tests := []struct {
		name   string
		merged []Interval
		total  float64
		want   []Interval
	}{
		{"empty_covers_all", nil, 10, []Interval{{0, 10}}},
		{"zero_duration", nil, 0, nil},
		{"negative_duration", []Interval{{1, 2}}, -1, nil},
		{
			"middle_gap",
			[]Interval{{0, 2}, {4, 10}},
			10,
			[]Interval{{2, 4}},
		},
		{
			"lead_and_tail",
			[]Interval{{2, 4}},
			10,
			[]Interval{{0, 2}, {4, 10}},
		},
		{
			"full_cover",
			[]Interval{{0, 10}},
			10,
			nil,
		},
		{
			"clip_past_total",
			[]Interval{{0, 2}, {4, 12}},
			10,
			[]Interval{{2, 4}},
		},
		{
			"interval_beyond_total_dropped",
			[]Interval{{0, 2}, {11, 12}},
			10,
			[]Interval{{2, 10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Complement(tt.merged, tt.total)
			if !intervalsEqual(got, tt.want) {
				t.Errorf("Complement(%v, %v) = %v, want %v", tt.merged, tt.total, got, tt.want)
			}
		})
	}
}

func TestComplement_EpsilonDropsDriftFragments(t *testing.T) {
	// A cut ending 5ms short of the total must not yield a trailing sliver.
	got := Complement([]Interval{{0, 9.995}}, 10)
	if len(got) != 0 {
		t.Errorf("expected drift fragment to be dropped, got %v", got)
	}

	// But a 10ms+ tail survives.
	got = Complement([]Interval{{0, 9.98}}, 10)
	if !intervalsEqual(got, []Interval{{9.98, 10}}) {
		t.Errorf("expected real tail to survive, got %v", got)
	}
}

func TestComplementUnionCoversTotal(t *testing.T) {
	// complement(merge(X), D) ∪ merge(X)|[0,D] must cover [0,D] with no
	// gaps or overlaps.
	inputs := [][]Interval{
		nil,
		{{0, 1}},
		{{3, 5}, {1, 2}, {4, 8}},
		{{0, 10}},
		{{2, 3}, {3, 4}, {7, 12}},
	}
	const total = 10.0

	for _, in := range inputs {
		merged := Merge(in)
		gaps := Complement(merged, total)

		var all []Interval
		for _, iv := range merged {
			if iv.Start >= total {
				continue
			}
			if iv.End > total {
				iv.End = total
			}
			all = append(all, iv)
		}
		all = append(all, gaps...)
		all = Merge(all)

		if len(all) != 1 || all[0].Start != 0 || math.Abs(all[0].End-total) > 1e-9 {
			t.Errorf("input %v: union %v does not cover [0,%v]", in, all, total)
		}
	}
}
