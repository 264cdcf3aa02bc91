// internal/experiment/record.go
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
)

// Record is the flattened outcome of one execution: the condition that
// produced it, the transport result and the classification.
type Record struct {
	ExperimentID       uuid.UUID                 `json:"experiment_id"`
	Model              string                    `json:"model"`
	PollutionLevel     float64                   `json:"pollution_level"`
	Iteration          int                       `json:"iteration"`
	Difficulty         string                    `json:"difficulty"`
	ToolSet            string                    `json:"tool_set"`
	ContextPlacement   string                    `json:"context_placement"`
	AdversarialVariant string                    `json:"adversarial_variant,omitempty"`
	PromptHash         string                    `json:"prompt_hash"`
	ContextRepetitions int                       `json:"context_repetitions"`
	ResponseText       string                    `json:"response_text"`
	Success            bool                      `json:"success"`
	LatencyMS          int64                     `json:"latency_ms"`
	InputTokens        int                       `json:"input_tokens"`
	OutputTokens       int                       `json:"output_tokens"`
	ToolCalls          []runner.ToolCallRecord   `json:"tool_calls,omitempty"`
	ToolCallCount      int                       `json:"tool_call_count"`
	ToolCallSequence   string                    `json:"tool_call_sequence,omitempty"`
	Evaluation         classify.EvaluationResult `json:"evaluation"`
	RunError           string                    `json:"run_error,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}

func newRecord(cfg Config, model string, iteration int, p prompt.GeneratedPrompt, res runner.Result, eval classify.EvaluationResult) Record {
	return Record{
		ExperimentID:       cfg.ID,
		Model:              model,
		PollutionLevel:     p.PollutionLevel,
		Iteration:          iteration,
		Difficulty:         string(cfg.Difficulty),
		ToolSet:            string(cfg.ToolSet),
		ContextPlacement:   string(cfg.Placement),
		AdversarialVariant: cfg.VariantLabel(),
		PromptHash:         p.PromptHash,
		ContextRepetitions: p.ContextRepetitions,
		ResponseText:       res.ResponseText,
		Success:            eval.Classification.IsSuccess(),
		LatencyMS:          res.LatencyMS,
		InputTokens:        res.InputTokens,
		OutputTokens:       res.OutputTokens,
		ToolCalls:          res.ToolCalls,
		ToolCallCount:      len(res.ToolCalls),
		ToolCallSequence:   res.ToolCallSequence(),
		Evaluation:         eval,
		RunError:           res.Error,
		CreatedAt:          time.Now().UTC(),
	}
}

// Sink persists experiment metadata and execution records. The
// orchestrator serializes calls even in parallel mode, so
// implementations do not need to be goroutine safe.
type Sink interface {
	CreateExperiment(ctx context.Context, cfg Config) error
	SaveExecution(ctx context.Context, rec Record) error
	Close()
}

// ProgressEvent reports one finished unit.
type ProgressEvent struct {
	Model          string
	PollutionLevel float64
	Iteration      int
	Completed      int
	Total          int
	Classification classify.Classification
}

// Description returns the progress line for the unit, in the form
// "qwen3:4b | 40% | iter 3".
func (e ProgressEvent) Description() string {
	return fmt.Sprintf("%s | %g%% | iter %d", e.Model, e.PollutionLevel, e.Iteration)
}

// ProgressFunc consumes progress events as the experiment advances.
// The orchestrator never invokes it concurrently.
type ProgressFunc func(ProgressEvent)
