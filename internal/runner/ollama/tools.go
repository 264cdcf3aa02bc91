// internal/runner/ollama/tools.go
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/tools"
)

// toolCall is a structured tool call as returned by the Ollama API.
type toolCall struct {
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// formatToolsForPayload converts definitions into the /api/chat tools field.
func formatToolsForPayload(defs []tools.Definition) []map[string]any {
	formatted := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		function := map[string]any{
			"name": def.Name,
		}
		if def.Description != "" {
			function["description"] = def.Description
		}
		if def.Parameters != nil {
			function["parameters"] = def.Parameters
		}
		formatted = append(formatted, map[string]any{
			"type":     "function",
			"function": function,
		})
	}
	return formatted
}

// executeToolCall validates and executes one tool call, producing both the
// persisted record and the tool message fed back to the model. Failures stay
// inside the record; the model receives them as an error payload.
func (r *Runner) executeToolCall(ctx context.Context, req runner.Request, call toolCall, seq int) (runner.ToolCallRecord, wireMessage) {
	name := strings.TrimSpace(call.Function.Name)
	record := runner.ToolCallRecord{ToolName: name, SequenceOrder: seq}

	args, err := parseToolArguments(call.Function.Arguments)
	if err != nil {
		record.Error = fmt.Sprintf("parse arguments: %v", err)
	} else {
		record.Arguments = args
		if def, ok := findTool(req.Tools, name); ok {
			if err := validateArguments(def, args); err != nil {
				record.Error = err.Error()
			}
		}
	}

	if record.Error == "" {
		if req.Execute == nil {
			record.Error = "no tool executor configured"
		} else if payload, err := req.Execute(ctx, name, args); err != nil {
			record.Error = err.Error()
		} else {
			record.Result = payload
		}
	}

	payload := record.Result
	if record.Error != "" {
		payload = map[string]any{"error": record.Error}
	}
	content, err := json.Marshal(payload)
	if err != nil {
		content = []byte(`{"error":"tool result not serializable"}`)
	}
	return record, wireMessage{Role: "tool", Content: string(content), ToolName: name}
}

// parseToolArguments parses the arguments attached to a structured tool
// call. Some models send the arguments object JSON-encoded inside a string;
// that shape is unwrapped before giving up.
func parseToolArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err == nil {
		return args, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		return nil, fmt.Errorf("parse tool arguments string: %w", err)
	}
	return args, nil
}

// findTool resolves a called name against the offered definitions.
func findTool(defs []tools.Definition, name string) (tools.Definition, bool) {
	for _, def := range defs {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	return tools.Definition{}, false
}

// validateArguments checks a call's arguments against the tool's parameter
// schema before execution.
func validateArguments(def tools.Definition, args map[string]any) error {
	if len(def.Parameters) == 0 {
		return nil
	}
	schemaLoader := gojsonschema.NewGoLoader(def.Parameters)
	argBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal arguments for validation: %w", err)
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(argBytes))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("arguments failed validation: %s", strings.Join(details, "; "))
}
