package pipeline

import "sync/atomic"

// Gate bounds the number of pipeline operations running at once. Submissions
// and assemblies both hold a slot for their whole run, so a saturated gate
// means the server is already doing as much ffmpeg and Whisper work as it
// was sized for.
type Gate struct {
	slots chan struct{}

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// GateStats reports the current state of the gate.
type GateStats struct {
	Active    int64 `json:"active"`
	Capacity  int   `json:"capacity"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// NewGate creates a gate with the given capacity. Capacity below 1 is
// clamped to 1.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Acquire claims a slot without blocking. It returns false when the gate is
// saturated. The returned release must be called exactly once with the
// outcome of the operation.
func (g *Gate) Acquire() (release func(failed bool), ok bool) {
	select {
	case g.slots <- struct{}{}:
	default:
		return nil, false
	}
	g.active.Add(1)

	var done atomic.Bool
	return func(failed bool) {
		if !done.CompareAndSwap(false, true) {
			return
		}
		g.active.Add(-1)
		if failed {
			g.failed.Add(1)
		} else {
			g.completed.Add(1)
		}
		<-g.slots
	}, true
}

// ActiveJobs returns the number of slots currently held.
func (g *Gate) ActiveJobs() int { return int(g.active.Load()) }

// Stats returns current gate statistics.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Active:    g.active.Load(),
		Capacity:  cap(g.slots),
		Completed: g.completed.Load(),
		Failed:    g.failed.Load(),
	}
}
