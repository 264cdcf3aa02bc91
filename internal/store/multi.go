// internal/store/multi.go
package store

import (
	"context"

	"github.com/mwiater/miasma/internal/experiment"
)

// Multi fans every sink call out to its children in order, stopping at
// the first error. It lets a run persist to Postgres and JSONL at once.
type Multi struct {
	sinks []experiment.Sink
}

// NewMulti combines sinks into one.
func NewMulti(sinks ...experiment.Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) CreateExperiment(ctx context.Context, cfg experiment.Config) error {
	for _, s := range m.sinks {
		if err := s.CreateExperiment(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) SaveExecution(ctx context.Context, rec experiment.Record) error {
	for _, s := range m.sinks {
		if err := s.SaveExecution(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) Close() {
	for _, s := range m.sinks {
		s.Close()
	}
}
