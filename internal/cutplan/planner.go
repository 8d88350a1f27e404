// Package cutplan turns a caller-supplied list of cut ranges into the ordered
// keep intervals the assembler extracts. Pure functions, no I/O.
package cutplan

import (
	"errors"
	"fmt"
	"math"

	"github.com/clipsmith/cut-engine/internal/interval"
)

var (
	// ErrUnknownDuration is returned when the total media duration could
	// not be determined, making the complement impossible to compute.
	ErrUnknownDuration = errors.New("cutplan: total duration unknown")

	// ErrInvalidInterval is returned when any cut is malformed. The whole
	// plan is rejected rather than silently dropping the offending cut.
	ErrInvalidInterval = errors.New("cutplan: invalid cut interval")
)

// Plan validates and merges the cuts, then returns their complement over
// [0, totalDuration]: the ascending, disjoint keep intervals. Overlapping or
// unordered cuts are tolerated; malformed ones (start >= end, negative, or
// non-finite) fail the whole plan. An empty result is not an error here;
// cuts covering the full duration legitimately leave nothing to keep, and the
// assembler decides how to surface that.
func Plan(cuts []interval.Interval, totalDuration float64) ([]interval.Interval, error) {
	if totalDuration <= 0 || math.IsNaN(totalDuration) || math.IsInf(totalDuration, 0) {
		return nil, ErrUnknownDuration
	}

	for _, c := range cuts {
		if err := validate(c); err != nil {
			return nil, err
		}
	}

	return interval.Complement(interval.Merge(cuts), totalDuration), nil
}

func validate(c interval.Interval) error {
	switch {
	case math.IsNaN(c.Start) || math.IsNaN(c.End) ||
		math.IsInf(c.Start, 0) || math.IsInf(c.End, 0):
		return fmt.Errorf("%w: non-finite bounds [%v, %v]", ErrInvalidInterval, c.Start, c.End)
	case c.Start < 0:
		return fmt.Errorf("%w: negative start %v", ErrInvalidInterval, c.Start)
	case c.Start >= c.End:
		return fmt.Errorf("%w: start %v >= end %v", ErrInvalidInterval, c.Start, c.End)
	}
	return nil
}
