// internal/runner/ollama/runner_test.go
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/tools"
)

// chatScript serves canned /api/chat replies in order and records every
// request body. The last reply repeats if the model loops longer than the
// script.
type chatScript struct {
	mu       sync.Mutex
	replies  []string
	requests [][]byte
}

func (s *chatScript) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		s.mu.Lock()
		s.requests = append(s.requests, body)
		idx := len(s.requests) - 1
		s.mu.Unlock()
		if idx >= len(s.replies) {
			idx = len(s.replies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, s.replies[idx])
	}
}

func toolCallReply(name, args string) string {
	return fmt.Sprintf(`{"model":"qwen3:4b","message":{"role":"assistant","content":"","tool_calls":[{"type":"function","function":{"name":%q,"arguments":%s}}]},"done":true,"prompt_eval_count":1200,"eval_count":15}`, name, args)
}

func finalReply(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"model":"qwen3:4b","message":{"role":"assistant","content":%s,"tool_calls":[]},"done":true,"prompt_eval_count":1500,"eval_count":42}`, encoded)
}

func testRequest() runner.Request {
	backend := tools.NewMockBackend()
	return runner.Request{
		Model: "qwen3:4b",
		Prompt: prompt.GeneratedPrompt{
			SystemPrompt: "Você é um assistente financeiro.",
			UserPrompt:   "Qual é o preço ATUAL da ação PETR4?",
		},
		Tools:     tools.Catalog(tools.SetBase),
		Placement: runner.PlacementUser,
		Execute:   backend.Execute,
		Options:   runner.Options{Temperature: 0, Seed: 42, NumCtx: 32768},
	}
}

func TestRunToolCallRoundTrip(t *testing.T) {
	script := &chatScript{replies: []string{
		toolCallReply("get_stock_price", `{"ticker":"PETR4"}`),
		finalReply("O preço atual da PETR4 é R$ 38,50."),
	}}
	srv := httptest.NewServer(script.handler(t))
	defer srv.Close()

	r := New(Config{Host: srv.URL, Timeout: 5 * time.Second})
	res := r.Run(context.Background(), testRequest())

	if !res.Success {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if res.ResponseText != "O preço atual da PETR4 é R$ 38,50." {
		t.Errorf("unexpected response text: %q", res.ResponseText)
	}
	if res.ModelName != "qwen3:4b" {
		t.Errorf("unexpected model name: %q", res.ModelName)
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(res.ToolCalls))
	}
	call := res.ToolCalls[0]
	if call.ToolName != "get_stock_price" || call.SequenceOrder != 1 {
		t.Errorf("unexpected call record: %+v", call)
	}
	if call.Error != "" {
		t.Errorf("unexpected call error: %s", call.Error)
	}
	if call.Arguments["ticker"] != "PETR4" {
		t.Errorf("unexpected arguments: %v", call.Arguments)
	}
	if call.Result["price"] != 38.50 {
		t.Errorf("expected mock price in the record, got %v", call.Result)
	}
	if res.InputTokens != 1500 || res.OutputTokens != 42 {
		t.Errorf("expected token counts from the final reply, got in=%d out=%d", res.InputTokens, res.OutputTokens)
	}
	if res.LatencyMS < 0 {
		t.Errorf("latency must be non-negative, got %d", res.LatencyMS)
	}

	if len(script.requests) != 2 {
		t.Fatalf("expected 2 chat requests, got %d", len(script.requests))
	}
	first := string(script.requests[0])
	if !strings.Contains(first, `"stream":false`) {
		t.Errorf("first request must disable streaming: %s", first)
	}
	if !strings.Contains(first, `"type":"function"`) || !strings.Contains(first, `"get_stock_price"`) {
		t.Errorf("first request must offer the tool catalog: %s", first)
	}

	var second struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Options map[string]any `json:"options"`
	}
	if err := json.Unmarshal(script.requests[1], &second); err != nil {
		t.Fatalf("decode second request: %v", err)
	}
	if len(second.Messages) != 4 {
		t.Fatalf("expected system+user+assistant+tool messages, got %d", len(second.Messages))
	}
	roles := []string{second.Messages[0].Role, second.Messages[1].Role, second.Messages[2].Role, second.Messages[3].Role}
	want := []string{"system", "user", "assistant", "tool"}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("unexpected message roles %v, want %v", roles, want)
		}
	}
	if !strings.Contains(second.Messages[3].Content, "38.5") {
		t.Errorf("tool message must carry the mock payload, got %q", second.Messages[3].Content)
	}
	if second.Options["temperature"] != 0.0 || second.Options["seed"] != 42.0 || second.Options["num_ctx"] != 32768.0 {
		t.Errorf("unexpected options: %v", second.Options)
	}
}

func TestRunStringEncodedArguments(t *testing.T) {
	script := &chatScript{replies: []string{
		toolCallReply("get_stock_price", `"{\"ticker\":\"VALE3\"}"`),
		finalReply("VALE3 está em R$ 67,80."),
	}}
	srv := httptest.NewServer(script.handler(t))
	defer srv.Close()

	res := New(Config{Host: srv.URL, Timeout: 5 * time.Second}).Run(context.Background(), testRequest())
	if !res.Success {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Arguments["ticker"] != "VALE3" {
		t.Errorf("string-encoded arguments not unwrapped: %v", res.ToolCalls[0].Arguments)
	}
	if res.ToolCalls[0].Result["price"] != 67.80 {
		t.Errorf("expected VALE3 mock payload, got %v", res.ToolCalls[0].Result)
	}
}

func TestRunValidationFailureSkipsExecution(t *testing.T) {
	script := &chatScript{replies: []string{
		toolCallReply("get_stock_price", `{"symbol":"PETR4"}`),
		finalReply("Não consegui consultar o preço."),
	}}
	srv := httptest.NewServer(script.handler(t))
	defer srv.Close()

	executed := false
	req := testRequest()
	req.Execute = func(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
		executed = true
		return map[string]any{"price": 1.0}, nil
	}

	res := New(Config{Host: srv.URL, Timeout: 5 * time.Second}).Run(context.Background(), req)
	if !res.Success {
		t.Fatalf("expected the loop to settle, got error: %s", res.Error)
	}
	if executed {
		t.Fatalf("executor must not run for invalid arguments")
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("expected the invalid call to be recorded, got %d records", len(res.ToolCalls))
	}
	call := res.ToolCalls[0]
	if !strings.Contains(call.Error, "ticker is required") {
		t.Errorf("expected a schema violation in the record, got %q", call.Error)
	}
	if call.Result != nil {
		t.Errorf("invalid calls must not carry a result, got %v", call.Result)
	}
	if !strings.Contains(string(script.requests[1]), `"role":"tool"`) || !strings.Contains(string(script.requests[1]), "error") {
		t.Errorf("model must receive an error payload for the invalid call")
	}
}

func TestRunUnknownToolReachesExecutor(t *testing.T) {
	script := &chatScript{replies: []string{
		toolCallReply("get_weather", `{"city":"São Paulo"}`),
		finalReply("Não tenho acesso a dados de clima."),
	}}
	srv := httptest.NewServer(script.handler(t))
	defer srv.Close()

	res := New(Config{Host: srv.URL, Timeout: 5 * time.Second}).Run(context.Background(), testRequest())
	if !res.Success {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(res.ToolCalls))
	}
	call := res.ToolCalls[0]
	if call.ToolName != "get_weather" {
		t.Errorf("wrong-tool calls must be recorded verbatim, got %q", call.ToolName)
	}
	if call.Error != "" {
		t.Errorf("unknown tools are a payload-level error, got %q", call.Error)
	}
	if call.Result["error"] != "Tool 'get_weather' não encontrada" {
		t.Errorf("expected the mock unknown-tool payload, got %v", call.Result)
	}
}

func TestRunHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := New(Config{Host: srv.URL, Timeout: 5 * time.Second}).Run(context.Background(), testRequest())
	if res.Success {
		t.Fatalf("expected failure on HTTP 500")
	}
	if !strings.Contains(res.Error, "500") || !strings.Contains(res.Error, "not found") {
		t.Errorf("error must carry status and body, got %q", res.Error)
	}
	if len(res.ToolCalls) != 0 {
		t.Errorf("no tool calls expected on transport failure")
	}
}

func TestRunConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := New(Config{Host: url, Timeout: time.Second}).Run(context.Background(), testRequest())
	if res.Success {
		t.Fatalf("expected failure against a closed server")
	}
	if res.Error == "" {
		t.Errorf("expected an error message")
	}
}

func TestRunToolLoopBound(t *testing.T) {
	script := &chatScript{replies: []string{
		toolCallReply("get_stock_price", `{"ticker":"PETR4"}`),
	}}
	srv := httptest.NewServer(script.handler(t))
	defer srv.Close()

	res := New(Config{Host: srv.URL, Timeout: 10 * time.Second}).Run(context.Background(), testRequest())
	if res.Success {
		t.Fatalf("a never-settling model must not report success")
	}
	if res.Error != fmt.Sprintf("tool loop did not settle after %d rounds", maxToolRounds) {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if len(res.ToolCalls) != maxToolRounds {
		t.Fatalf("expected %d recorded calls, got %d", maxToolRounds, len(res.ToolCalls))
	}
	for i, call := range res.ToolCalls {
		if call.SequenceOrder != i+1 {
			t.Errorf("call %d has sequence order %d", i, call.SequenceOrder)
		}
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models":[{"name":"qwen3:4b"},{"name":"llama3.1:8b"}]}`)
	}))
	defer srv.Close()

	r := New(Config{Host: srv.URL, Timeout: 5 * time.Second})
	models, err := r.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 || models[0] != "qwen3:4b" || models[1] != "llama3.1:8b" {
		t.Errorf("unexpected model list: %v", models)
	}
	if !r.IsAvailable(context.Background()) {
		t.Errorf("expected the host to be available")
	}
}

func TestIsAvailableFalseWhenDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := New(Config{Host: url, Timeout: time.Second})
	if r.IsAvailable(context.Background()) {
		t.Fatalf("closed server must not be available")
	}
	if _, err := r.ListModels(context.Background()); err == nil {
		t.Errorf("expected ListModels to fail")
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(Config{})
	if r.Host() != "http://localhost:11434" {
		t.Errorf("unexpected default host: %q", r.Host())
	}
	r = New(Config{Host: "http://ollama.local:11434/"})
	if r.Host() != "http://ollama.local:11434" {
		t.Errorf("expected trailing slash to be trimmed, got %q", r.Host())
	}
}
