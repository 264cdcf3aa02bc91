// internal/prompt/scheduler.go
package prompt

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidPollutionLevel is returned for pollution levels outside [0, 100].
// Out-of-range levels are never clamped.
var ErrInvalidPollutionLevel = errors.New("pollution level out of range")

// defaultAnchors maps pollution level to context repetition count. Levels
// between anchors interpolate linearly, truncated to an integer.
var defaultAnchors = map[float64]int{
	0:   0,
	20:  1,
	40:  3,
	60:  5,
	80:  8,
	100: 12,
}

// Scheduler converts a continuous pollution level into a discrete number of
// context repetitions using a sparse anchor table.
type Scheduler struct {
	levels []float64
	counts map[float64]int
}

// NewScheduler returns a scheduler with the default anchor table.
func NewScheduler() *Scheduler {
	return NewSchedulerWithAnchors(defaultAnchors)
}

// NewSchedulerWithAnchors returns a scheduler over a custom anchor table. The
// table is copied; the caller's map is not retained.
func NewSchedulerWithAnchors(anchors map[float64]int) *Scheduler {
	s := &Scheduler{counts: make(map[float64]int, len(anchors))}
	for level, count := range anchors {
		s.levels = append(s.levels, level)
		s.counts[level] = count
	}
	sort.Float64s(s.levels)
	return s
}

// RepetitionsFor maps a pollution level in [0, 100] to a repetition count.
// Exact anchors return their configured count; levels between anchors
// interpolate linearly with the fractional part truncated; levels at or above
// the highest anchor return the highest count. The result is monotonically
// non-decreasing in the level.
func (s *Scheduler) RepetitionsFor(level float64) (int, error) {
	if level < 0 || level > 100 {
		return 0, fmt.Errorf("%w: %v (expected 0 to 100)", ErrInvalidPollutionLevel, level)
	}

	if count, ok := s.counts[level]; ok {
		return count, nil
	}

	for i, anchor := range s.levels {
		if level < anchor {
			if i == 0 {
				return s.counts[s.levels[0]], nil
			}
			prevLevel := s.levels[i-1]
			prevCount := float64(s.counts[prevLevel])
			currCount := float64(s.counts[anchor])
			ratio := (level - prevLevel) / (anchor - prevLevel)
			return int(prevCount + ratio*(currCount-prevCount)), nil
		}
	}

	return s.counts[s.levels[len(s.levels)-1]], nil
}

// Levels returns the anchor levels in ascending order.
func (s *Scheduler) Levels() []float64 {
	out := make([]float64, len(s.levels))
	copy(out, s.levels)
	return out
}
