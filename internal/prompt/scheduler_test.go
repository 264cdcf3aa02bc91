// internal/prompt/scheduler_test.go
package prompt

import (
	"errors"
	"testing"
)

// TestRepetitionsForAnchors verifies that exact anchor levels return exactly
// their configured counts.
func TestRepetitionsForAnchors(t *testing.T) {
	s := NewScheduler()
	cases := map[float64]int{
		0:   0,
		20:  1,
		40:  3,
		60:  5,
		80:  8,
		100: 12,
	}
	for level, want := range cases {
		got, err := s.RepetitionsFor(level)
		if err != nil {
			t.Fatalf("RepetitionsFor(%v) error: %v", level, err)
		}
		if got != want {
			t.Fatalf("RepetitionsFor(%v) = %d, want %d", level, got, want)
		}
	}
}

// TestRepetitionsForInterpolation verifies linear interpolation between
// anchors with truncation, not rounding.
func TestRepetitionsForInterpolation(t *testing.T) {
	s := NewScheduler()
	cases := []struct {
		level float64
		want  int
	}{
		{10, 0},  // 0 + 0.5*1 = 0.5, truncated
		{30, 2},  // 1 + 0.5*2
		{50, 4},  // 3 + 0.5*2
		{70, 6},  // 5 + 0.5*3 = 6.5, truncated
		{90, 10}, // 8 + 0.5*4
		{95, 11}, // 8 + 0.75*4
		{99, 11}, // 8 + 0.95*4 = 11.8, truncated
	}
	for _, tc := range cases {
		got, err := s.RepetitionsFor(tc.level)
		if err != nil {
			t.Fatalf("RepetitionsFor(%v) error: %v", tc.level, err)
		}
		if got != tc.want {
			t.Fatalf("RepetitionsFor(%v) = %d, want %d", tc.level, got, tc.want)
		}
	}
}

// TestRepetitionsForMonotonic sweeps the full range and checks the mapping
// never decreases as pollution grows.
func TestRepetitionsForMonotonic(t *testing.T) {
	s := NewScheduler()
	prev := -1
	for level := 0.0; level <= 100.0; level += 0.5 {
		got, err := s.RepetitionsFor(level)
		if err != nil {
			t.Fatalf("RepetitionsFor(%v) error: %v", level, err)
		}
		if got < prev {
			t.Fatalf("RepetitionsFor(%v) = %d decreased below %d", level, got, prev)
		}
		prev = got
	}
}

// TestRepetitionsForOutOfRange verifies levels outside [0, 100] fail with the
// sentinel error instead of being clamped.
func TestRepetitionsForOutOfRange(t *testing.T) {
	s := NewScheduler()
	for _, level := range []float64{-10, -0.01, 100.01, 150} {
		if _, err := s.RepetitionsFor(level); !errors.Is(err, ErrInvalidPollutionLevel) {
			t.Fatalf("RepetitionsFor(%v): expected ErrInvalidPollutionLevel, got %v", level, err)
		}
	}
}

// TestSchedulerCustomAnchors verifies the anchor table is configuration, not a
// hard rule.
func TestSchedulerCustomAnchors(t *testing.T) {
	s := NewSchedulerWithAnchors(map[float64]int{0: 0, 50: 2, 100: 6})
	got, err := s.RepetitionsFor(75)
	if err != nil {
		t.Fatalf("RepetitionsFor(75) error: %v", err)
	}
	if got != 4 {
		t.Fatalf("RepetitionsFor(75) = %d, want 4", got)
	}

	levels := s.Levels()
	if len(levels) != 3 || levels[0] != 0 || levels[1] != 50 || levels[2] != 100 {
		t.Fatalf("unexpected anchor levels: %v", levels)
	}
}
