// internal/runner/ollama/runner.go

// Package ollama implements the experiment substrate on top of a local
// Ollama runtime, driving non-streaming /api/chat requests with tool
// definitions and executing the resulting tool calls against the
// experiment's mock backend.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/miasma/internal/logging"
	"github.com/mwiater/miasma/internal/runner"
)

const (
	defaultHost    = "http://localhost:11434"
	defaultTimeout = 600 * time.Second

	// maxToolRounds bounds the tool-call loop for a single request. A model
	// still asking for tools past this point is cut off and classified from
	// whatever it produced.
	maxToolRounds = 8
)

// Config holds the connection settings for one Ollama host.
type Config struct {
	Host    string
	Timeout time.Duration
	Debug   bool
}

// Runner executes prompts against a single Ollama host.
type Runner struct {
	host   string
	client *http.Client
	debug  bool
}

// New returns a Runner for the given host configuration, applying the
// standard defaults for unset fields.
func New(cfg Config) *Runner {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = defaultHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Runner{
		host: host,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ForceAttemptHTTP2: false,
			},
		},
		debug: cfg.Debug,
	}
}

// Host returns the normalized base URL the runner talks to.
func (r *Runner) Host() string {
	return r.host
}

// wireMessage is a chat turn as sent to /api/chat. Assistant turns carry the
// tool calls they requested; tool turns carry the JSON-encoded result.
type wireMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`
}

// chatResponse mirrors the non-streaming /api/chat reply.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

// Run implements runner.Runner. It drives the tool-call loop until the model
// settles on a text answer, recording every call along the way. Transport
// and API failures are folded into the returned Result.
func (r *Runner) Run(ctx context.Context, req runner.Request) runner.Result {
	start := time.Now()
	res := runner.Result{ModelName: req.Model}

	if r.debug {
		logging.LogEvent("offering %d tools to %s (placement=%s)", len(req.Tools), req.Model, req.Placement)
	}

	conversation := make([]wireMessage, 0, 8)
	for _, msg := range req.Messages() {
		conversation = append(conversation, wireMessage{Role: msg.Role, Content: msg.Content})
	}

	for round := 0; round < maxToolRounds; round++ {
		reply, err := r.chat(ctx, req, conversation)
		if err != nil {
			res.Error = err.Error()
			res.LatencyMS = time.Since(start).Milliseconds()
			return res
		}
		res.InputTokens = reply.PromptEvalCount
		res.OutputTokens = reply.EvalCount

		if len(reply.Message.ToolCalls) == 0 {
			res.Success = true
			res.ResponseText = reply.Message.Content
			res.LatencyMS = time.Since(start).Milliseconds()
			return res
		}

		conversation = append(conversation, wireMessage{
			Role:      "assistant",
			Content:   reply.Message.Content,
			ToolCalls: reply.Message.ToolCalls,
		})
		for _, call := range reply.Message.ToolCalls {
			record, toolMsg := r.executeToolCall(ctx, req, call, len(res.ToolCalls)+1)
			res.ToolCalls = append(res.ToolCalls, record)
			conversation = append(conversation, toolMsg)
		}
	}

	res.Error = fmt.Sprintf("tool loop did not settle after %d rounds", maxToolRounds)
	res.LatencyMS = time.Since(start).Milliseconds()
	return res
}

// chat posts one non-streaming /api/chat request and decodes the reply.
func (r *Runner) chat(ctx context.Context, req runner.Request, conversation []wireMessage) (chatResponse, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": conversation,
		"stream":   false,
		"options":  buildOptions(req.Options),
	}
	if len(req.Tools) > 0 {
		payload["tools"] = formatToolsForPayload(req.Tools)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return chatResponse{}, fmt.Errorf("marshal chat payload: %w", err)
	}
	logging.LogRequest(logging.DirectionToLLM, r.host, req.Model, "", body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return chatResponse{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return chatResponse{}, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return chatResponse{}, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return chatResponse{}, fmt.Errorf("ollama: /api/chat returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	logging.LogRequest(logging.DirectionFromLLM, r.host, req.Model, "", respBody)

	var reply chatResponse
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return chatResponse{}, fmt.Errorf("decode chat response: %w", err)
	}
	return reply, nil
}

// buildOptions assembles the runtime options map. Temperature and seed are
// always sent so runs stay pinned to the protocol defaults.
func buildOptions(opts runner.Options) map[string]any {
	options := map[string]any{
		"temperature": opts.Temperature,
		"seed":        opts.Seed,
	}
	if opts.NumCtx > 0 {
		options["num_ctx"] = opts.NumCtx
	}
	return options
}

// tagsResponse mirrors the /api/tags listing.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels reports the models installed on the host via /api/tags.
func (r *Runner) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tags response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: /api/tags returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// IsAvailable reports whether the host answers the tags listing.
func (r *Runner) IsAvailable(ctx context.Context) bool {
	_, err := r.ListModels(ctx)
	return err == nil
}
