// internal/store/multi_test.go
package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mwiater/miasma/internal/experiment"
)

type recordingSink struct {
	label   string
	calls   *[]string
	saveErr error
}

func (s *recordingSink) CreateExperiment(context.Context, experiment.Config) error {
	*s.calls = append(*s.calls, s.label+":create")
	return nil
}

func (s *recordingSink) SaveExecution(context.Context, experiment.Record) error {
	*s.calls = append(*s.calls, s.label+":save")
	return s.saveErr
}

func (s *recordingSink) Close() {
	*s.calls = append(*s.calls, s.label+":close")
}

func TestMultiFansOutInOrder(t *testing.T) {
	var calls []string
	multi := NewMulti(
		&recordingSink{label: "a", calls: &calls},
		&recordingSink{label: "b", calls: &calls},
	)

	cfg := experiment.Config{ID: uuid.New(), Name: "Teste"}
	if err := multi.CreateExperiment(context.Background(), cfg); err != nil {
		t.Fatalf("CreateExperiment returned error: %v", err)
	}
	if err := multi.SaveExecution(context.Background(), experiment.Record{}); err != nil {
		t.Fatalf("SaveExecution returned error: %v", err)
	}
	multi.Close()

	want := []string{"a:create", "b:create", "a:save", "b:save", "a:close", "b:close"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls[%d] = %s, want %s", i, calls[i], want[i])
		}
	}
}

func TestMultiStopsOnFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("disk full")
	multi := NewMulti(
		&recordingSink{label: "a", calls: &calls, saveErr: boom},
		&recordingSink{label: "b", calls: &calls},
	)

	err := multi.SaveExecution(context.Background(), experiment.Record{})
	if !errors.Is(err, boom) {
		t.Fatalf("SaveExecution error = %v, want %v", err, boom)
	}
	for _, c := range calls {
		if c == "b:save" {
			t.Fatal("second sink was called after the first one failed")
		}
	}
}

func TestNopDiscardsEverything(t *testing.T) {
	var sink experiment.Sink = Nop{}
	if err := sink.CreateExperiment(context.Background(), experiment.Config{}); err != nil {
		t.Errorf("CreateExperiment returned error: %v", err)
	}
	if err := sink.SaveExecution(context.Background(), experiment.Record{}); err != nil {
		t.Errorf("SaveExecution returned error: %v", err)
	}
	sink.Close()
}
