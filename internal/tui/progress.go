// internal/tui/progress.go
// Package tui renders the live progress view for experiment runs.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/experiment"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	stcStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	fncStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	fwtStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	fhStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// progressMsg carries one finished execution into the UI loop.
type progressMsg experiment.ProgressEvent

// doneMsg is sent when the experiment goroutine returns.
type doneMsg struct {
	records []experiment.Record
	err     error
}

// tickMsg drives the elapsed-time display.
type tickMsg time.Time

// progressModel is the Bubble Tea model for a running experiment.
type progressModel struct {
	cfg        experiment.Config
	cancel     context.CancelFunc
	spinner    spinner.Model
	bar        progress.Model
	startTime  time.Time
	width      int
	completed  int
	total      int
	counts     map[classify.Classification]int
	lastUnit   string
	cancelling bool
	done       bool
	records    []experiment.Record
	runErr     error
}

func newProgressModel(cfg experiment.Config, cancel context.CancelFunc) *progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	bar := progress.New(progress.WithDefaultGradient())

	return &progressModel{
		cfg:       cfg,
		cancel:    cancel,
		spinner:   s,
		bar:       bar,
		startTime: time.Now(),
		total:     cfg.TotalExecutions(),
		counts:    make(map[classify.Classification]int),
	}
}

// tickCmd creates a Bubble Tea command that sends a tickMsg at a regular interval.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner animation and the elapsed-time ticker.
func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Update is the central update function for the progress model.
func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 8
		if barWidth > 60 {
			barWidth = 60
		}
		if barWidth > 0 {
			m.bar.Width = barWidth
		}
		return m, nil

	case progressMsg:
		m.completed = msg.Completed
		m.total = msg.Total
		m.counts[msg.Classification]++
		m.lastUnit = experiment.ProgressEvent(msg).Description()
		if m.total > 0 {
			return m, m.bar.SetPercent(float64(m.completed) / float64(m.total))
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.records = msg.records
		m.runErr = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		barModel, cmd := m.bar.Update(msg)
		m.bar = barModel.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	return m, nil
}

// View renders the progress screen.
func (m *progressModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Experimento: "+m.cfg.Name) + "\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("Modelos: %s | Total: %d execuções",
		strings.Join(m.cfg.Models, ", "), m.total)) + "\n\n")

	switch {
	case m.cancelling:
		b.WriteString(fmt.Sprintf("%s Cancelando...\n\n", m.spinner.View()))
	case m.lastUnit == "":
		b.WriteString(fmt.Sprintf("%s Aguardando primeira execução...\n\n", m.spinner.View()))
	default:
		b.WriteString(fmt.Sprintf("%s Executando %s  (%d/%d)\n\n",
			m.spinner.View(), m.lastUnit, m.completed, m.total))
	}

	b.WriteString(m.bar.View() + "\n\n")

	elapsed := time.Since(m.startTime).Seconds()
	b.WriteString(fmt.Sprintf("%s  %s  %s  %s   %s\n",
		stcStyle.Render(fmt.Sprintf("STC %d", m.counts[classify.STC])),
		fncStyle.Render(fmt.Sprintf("FNC %d", m.counts[classify.FNC])),
		fwtStyle.Render(fmt.Sprintf("FWT %d", m.counts[classify.FWT])),
		fhStyle.Render(fmt.Sprintf("FH %d", m.counts[classify.FH])),
		subtleStyle.Render(fmt.Sprintf("decorrido %.1fs", elapsed))))

	b.WriteString(subtleStyle.Render("\n(q para cancelar)") + "\n")

	return b.String()
}

// RunExperiment drives r under a live progress display and returns the
// records the run produced. The standard logger is redirected to logPath
// while the display owns the terminal; callers that mirror logs to stdout
// should reinitialize logging afterwards.
func RunExperiment(ctx context.Context, cancel context.CancelFunc, r *experiment.Runner, logPath string) ([]experiment.Record, error) {
	if logPath == "" {
		logPath = "miasma.log"
	}
	f, err := tea.LogToFile(logPath, "debug")
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	defer f.Close()

	m := newProgressModel(r.Config(), cancel)
	p := tea.NewProgram(m)

	r.SetOutput(io.Discard)
	r.SetProgress(func(e experiment.ProgressEvent) {
		p.Send(progressMsg(e))
	})

	go func() {
		records, runErr := r.Run(ctx)
		p.Send(doneMsg{records: records, err: runErr})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	fm := final.(*progressModel)
	return fm.records, fm.runErr
}
