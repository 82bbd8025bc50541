package cursor

import "time"

// maxPhaseHistory is the number of transitions kept for the health report.
const maxPhaseHistory = 10

// Metrics is the throughput snapshot reported by health.
type Metrics struct {
	BlocksPerSecond  float64
	AverageBlockTime time.Duration
	LastPhaseChange  *time.Time
	PhaseHistory     []Transition
}

// rateTracker remembers when the last few advances happened. The manager's
// mutex guards it.
type rateTracker struct {
	advances []time.Time // ring, next is the slot written next
	next     int
	count    int

	history []Transition
}

func newRateTracker(window int) *rateTracker {
	if window < 2 {
		window = 100
	}
	return &rateTracker{advances: make([]time.Time, window)}
}

func (r *rateTracker) advanced(at time.Time) {
	r.advances[r.next] = at
	r.next = (r.next + 1) % len(r.advances)
	if r.count < len(r.advances) {
		r.count++
	}
}

func (r *rateTracker) changed(t Transition) {
	if len(r.history) == maxPhaseHistory {
		r.history = append(r.history[:0], r.history[1:]...)
	}
	r.history = append(r.history, t)
}

// oldest and newest return the ends of the recorded window.
func (r *rateTracker) oldest() time.Time {
	if r.count < len(r.advances) {
		return r.advances[0]
	}
	return r.advances[r.next]
}

func (r *rateTracker) newest() time.Time {
	return r.advances[(r.next+len(r.advances)-1)%len(r.advances)]
}

func (r *rateTracker) snapshot() Metrics {
	m := Metrics{PhaseHistory: append([]Transition(nil), r.history...)}
	if n := len(r.history); n > 0 {
		at := r.history[n-1].Timestamp
		m.LastPhaseChange = &at
	}

	if r.count < 2 {
		return m
	}
	if span := r.newest().Sub(r.oldest()); span > 0 {
		intervals := float64(r.count - 1)
		m.BlocksPerSecond = intervals / span.Seconds()
		m.AverageBlockTime = time.Duration(float64(span) / intervals)
	}
	return m
}
