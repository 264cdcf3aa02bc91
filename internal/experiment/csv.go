// internal/experiment/csv.go
package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader lists every exported column in order.
var csvHeader = []string{
	"experiment_id", "model", "pollution_level", "iteration",
	"difficulty", "tool_set", "context_placement", "adversarial_variant",
	"classification", "success",
	"called_any_tool", "called_target_tool", "used_tool_result", "anchored_on_context",
	"extracted_value", "confidence_score",
	"latency_ms", "input_tokens", "output_tokens",
	"tool_call_count", "tool_call_sequence",
	"prompt_hash", "context_repetitions", "run_error",
}

// WriteCSV writes one row per record, preceded by the header.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ExperimentID.String(),
			rec.Model,
			strconv.FormatFloat(rec.PollutionLevel, 'f', -1, 64),
			strconv.Itoa(rec.Iteration),
			rec.Difficulty,
			rec.ToolSet,
			rec.ContextPlacement,
			rec.AdversarialVariant,
			string(rec.Evaluation.Classification),
			strconv.FormatBool(rec.Success),
			strconv.FormatBool(rec.Evaluation.CalledAnyTool),
			strconv.FormatBool(rec.Evaluation.CalledTargetTool),
			strconv.FormatBool(rec.Evaluation.UsedToolResult),
			strconv.FormatBool(rec.Evaluation.AnchoredOnContext),
			rec.Evaluation.ExtractedValue,
			strconv.FormatFloat(rec.Evaluation.ConfidenceScore, 'f', 2, 64),
			strconv.FormatInt(rec.LatencyMS, 10),
			strconv.Itoa(rec.InputTokens),
			strconv.Itoa(rec.OutputTokens),
			strconv.Itoa(rec.ToolCallCount),
			rec.ToolCallSequence,
			rec.PromptHash,
			strconv.Itoa(rec.ContextRepetitions),
			rec.RunError,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
