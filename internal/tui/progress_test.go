// internal/tui/progress_test.go
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/experiment"
)

func testProgressConfig() experiment.Config {
	return experiment.Config{
		Name:            "Teste H1",
		Models:          []string{"qwen3:4b", "llama3.2:1b"},
		PollutionLevels: []float64{0, 40},
		Iterations:      2,
	}
}

// TestProgressUpdate verifies the model reacts to window sizing, progress
// events, cancellation keys and run completion.
func TestProgressUpdate(t *testing.T) {
	cancelled := false
	m := newProgressModel(testProgressConfig(), func() { cancelled = true })

	if m.total != 8 {
		t.Fatalf("expected total 8 executions, got %d", m.total)
	}

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = newModel.(*progressModel)
	if m.width != 100 {
		t.Errorf("expected width 100, got %d", m.width)
	}

	event := experiment.ProgressEvent{
		Model:          "qwen3:4b",
		PollutionLevel: 40,
		Iteration:      1,
		Completed:      3,
		Total:          8,
		Classification: classify.STC,
	}
	newModel, cmd := m.Update(progressMsg(event))
	m = newModel.(*progressModel)
	if cmd == nil {
		t.Error("expected a progress bar command after a progress event")
	}
	if m.completed != 3 {
		t.Errorf("expected 3 completed, got %d", m.completed)
	}
	if m.counts[classify.STC] != 1 {
		t.Errorf("expected 1 STC, got %d", m.counts[classify.STC])
	}
	if m.lastUnit != "qwen3:4b | 40% | iter 1" {
		t.Errorf("unexpected last unit %q", m.lastUnit)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = newModel.(*progressModel)
	if !m.cancelling {
		t.Error("expected cancelling state after q")
	}
	if !cancelled {
		t.Error("expected cancel function to be called")
	}

	records := []experiment.Record{{Model: "qwen3:4b"}}
	newModel, cmd = m.Update(doneMsg{records: records, err: errors.New("context canceled")})
	m = newModel.(*progressModel)
	if cmd == nil {
		t.Fatal("expected a quit command after doneMsg")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected the doneMsg command to quit the program")
	}
	if !m.done {
		t.Error("expected done state")
	}
	if len(m.records) != 1 {
		t.Errorf("expected records handed back, got %d", len(m.records))
	}
	if m.runErr == nil {
		t.Error("expected run error handed back")
	}
}

// TestProgressView checks the rendered output for the main states.
func TestProgressView(t *testing.T) {
	m := newProgressModel(testProgressConfig(), nil)

	if view := m.View(); view != "Initializing..." {
		t.Fatalf("expected 'Initializing...' before sizing, got %q", view)
	}

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = newModel.(*progressModel)

	view := m.View()
	if !strings.Contains(view, "Teste H1") {
		t.Errorf("expected experiment name in view, got %q", view)
	}
	if !strings.Contains(view, "Aguardando primeira execução") {
		t.Errorf("expected waiting line before events, got %q", view)
	}

	event := experiment.ProgressEvent{
		Model:          "qwen3:4b",
		PollutionLevel: 0,
		Iteration:      2,
		Completed:      1,
		Total:          8,
		Classification: classify.FH,
	}
	newModel, _ = m.Update(progressMsg(event))
	m = newModel.(*progressModel)

	view = m.View()
	if !strings.Contains(view, "qwen3:4b | 0% | iter 2") {
		t.Errorf("expected unit description in view, got %q", view)
	}
	if !strings.Contains(view, "FH 1") {
		t.Errorf("expected FH counter in view, got %q", view)
	}
	if !strings.Contains(view, "(1/8)") {
		t.Errorf("expected completion fraction in view, got %q", view)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = newModel.(*progressModel)
	if !strings.Contains(m.View(), "Cancelando") {
		t.Errorf("expected cancelling line, got %q", m.View())
	}
}
