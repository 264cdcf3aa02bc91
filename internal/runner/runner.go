// internal/runner/runner.go

// Package runner defines the contract between the experiment engine and the
// model backends that execute generated prompts. Backends fold transport and
// API failures into the Result they return so a long experiment can record
// the failure and keep going.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/tools"
)

// ContextPlacement selects which chat turn carries the polluted context.
type ContextPlacement string

const (
	// PlacementUser folds the context into the user turn, ahead of the
	// question. This is the default protocol position.
	PlacementUser ContextPlacement = "user"
	// PlacementSystem appends the context to the system turn instead.
	PlacementSystem ContextPlacement = "system"
)

// ParsePlacement normalizes a user-supplied placement name. An empty string
// resolves to the user placement.
func ParsePlacement(raw string) (ContextPlacement, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(PlacementUser):
		return PlacementUser, nil
	case string(PlacementSystem):
		return PlacementSystem, nil
	}
	return "", fmt.Errorf("unknown context placement %q (valid: user, system)", raw)
}

// Options carries the sampling parameters forwarded to the model runtime.
// Temperature zero plus a fixed seed keeps generation as deterministic as
// the runtime allows.
type Options struct {
	Temperature float64
	Seed        int
	NumCtx      int
}

// DefaultOptions returns the reproducibility settings every run starts
// from: greedy sampling, a fixed seed, and a context window large enough
// for the highest pollution level.
func DefaultOptions() Options {
	return Options{Temperature: 0.0, Seed: 42, NumCtx: 32768}
}

// Request describes a single prompt execution against one model.
type Request struct {
	Model     string
	Prompt    prompt.GeneratedPrompt
	Tools     []tools.Definition
	Placement ContextPlacement
	Execute   tools.Executor
	Options   Options
}

// ChatMessage is one chat turn in the wire shape shared by the backends.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages renders the chat turns for the request. Context and question share
// the user message by default; the system placement appends the context to
// the system turn instead. No synthetic assistant turns are inserted.
func (r Request) Messages() []ChatMessage {
	system := r.Prompt.SystemPrompt
	user := r.Prompt.UserPrompt
	if r.Prompt.Context != "" {
		if r.Placement == PlacementSystem {
			system = system + "\n\n" + r.Prompt.Context
		} else {
			user = r.Prompt.Context + "\n\n" + user
		}
	}
	messages := make([]ChatMessage, 0, 2)
	if system != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: system})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: user})
	return messages
}

// ToolCallRecord captures one tool invocation made by the model while
// answering a request.
type ToolCallRecord struct {
	ToolName      string         `json:"tool_name"`
	Arguments     map[string]any `json:"arguments,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	SequenceOrder int            `json:"sequence_order"`
}

// Result is the outcome of a single prompt execution.
type Result struct {
	Success      bool             `json:"success"`
	ResponseText string           `json:"response_text"`
	ToolCalls    []ToolCallRecord `json:"tool_calls,omitempty"`
	LatencyMS    int64            `json:"latency_ms"`
	InputTokens  int              `json:"input_tokens,omitempty"`
	OutputTokens int              `json:"output_tokens,omitempty"`
	ModelName    string           `json:"model_name"`
	Error        string           `json:"error,omitempty"`
}

// CalledAnyTool reports whether the model invoked at least one tool.
func (r Result) CalledAnyTool() bool {
	return len(r.ToolCalls) > 0
}

// CalledToolNames returns the invoked tool names in call order.
func (r Result) CalledToolNames() []string {
	names := make([]string, 0, len(r.ToolCalls))
	for _, call := range r.ToolCalls {
		names = append(names, call.ToolName)
	}
	return names
}

// ToolCallSequence joins the invoked tool names for compact persistence.
func (r Result) ToolCallSequence() string {
	return strings.Join(r.CalledToolNames(), ",")
}

// Runner executes generated prompts against a model backend.
type Runner interface {
	// Run executes one prompt. Failures surface through Result.Success and
	// Result.Error; Run never panics and never returns an error.
	Run(ctx context.Context, req Request) Result
	// ListModels reports the model names the backend can serve.
	ListModels(ctx context.Context) ([]string, error)
	// IsAvailable reports whether the backend can be reached at all.
	IsAvailable(ctx context.Context) bool
}

// HasModel reports whether a model name appears in a backend listing, either
// exactly or by its family prefix (the part before the first colon).
func HasModel(models []string, name string) bool {
	for _, m := range models {
		if m == name {
			return true
		}
	}
	family, _, _ := strings.Cut(name, ":")
	if family == "" {
		return false
	}
	for _, m := range models {
		if strings.HasPrefix(m, family) {
			return true
		}
	}
	return false
}
