// Package interval provides the primitive time-interval set operations the
// cut pipeline is built on: merging overlapping intervals and computing the
// complement of a merged set against a total duration.
package interval

import "sort"

// Epsilon is the edge tolerance in seconds. Gaps shorter than this are
// treated as floating-point drift and dropped, which prevents spurious
// near-zero fragments at the tail of a plan when cut end times come from
// float sums.
const Epsilon = 0.01

// Interval is a half-open time range [Start, End) in seconds from media start.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 { return iv.End - iv.Start }

// Merge sorts intervals by start and coalesces any interval that touches or
// overlaps the running end of the previous one. Input order is irrelevant;
// output is ascending and pairwise disjoint. The input slice is not modified.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Complement returns the ascending set of gaps in [0, total] not covered by
// the merged, ascending, disjoint input set: the lead-in before the first
// interval, each inter-interval gap, and the tail after the last interval.
// Intervals extending past total are clipped; intervals entirely at or beyond
// total are ignored. Gaps shorter than Epsilon are dropped.
func Complement(merged []Interval, total float64) []Interval {
	if total <= 0 {
		return nil
	}

	var gaps []Interval
	cursor := 0.0
	for _, iv := range merged {
		if iv.Start >= total {
			break
		}
		if iv.Start-cursor >= Epsilon {
			gaps = append(gaps, Interval{Start: cursor, End: iv.Start})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if total-cursor >= Epsilon {
		gaps = append(gaps, Interval{Start: cursor, End: total})
	}
	return gaps
}
