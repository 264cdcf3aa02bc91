// internal/store/nop.go
package store

import (
	"context"

	"github.com/mwiater/miasma/internal/experiment"
)

// Nop discards everything. It backs runs started with --no-db or when
// the database is unreachable.
type Nop struct{}

func (Nop) CreateExperiment(context.Context, experiment.Config) error { return nil }
func (Nop) SaveExecution(context.Context, experiment.Record) error    { return nil }
func (Nop) Close()                                                    {}
