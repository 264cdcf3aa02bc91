// internal/experiment/runner.go
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/logging"
	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/tools"
)

var (
	headerLine = color.New(color.FgBlue, color.Bold).SprintFunc()
	totalLine  = color.New(color.FgYellow).SprintFunc()
	dimLine    = color.New(color.Faint).SprintFunc()
)

// Runner drives a full experiment. A sink failure aborts the run; a
// failed model call does not, it is classified and recorded like any
// other outcome.
type Runner struct {
	cfg        Config
	engine     runner.Runner
	sink       Sink
	generator  *prompt.Generator
	classifier *classify.Classifier
	catalog    []tools.Definition
	execute    tools.Executor
	progress   ProgressFunc
	out        io.Writer
}

// New builds a Runner for cfg. The engine is the model runtime and the
// sink receives every record; both are required. cfg is validated and
// normalized in place of the caller's copy.
func New(cfg Config, engine runner.Runner, sink Sink) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen, err := prompt.NewGeneratorForDifficulty(
		prompt.NewRegistry(), prompt.NewScheduler(),
		cfg.Difficulty, cfg.Variant, int64(cfg.Options.Seed), nil)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		sink:       sink,
		generator:  gen,
		classifier: classify.New(cfg.TargetTool),
		catalog:    tools.Catalog(cfg.ToolSet),
		execute:    tools.NewMockBackend().Execute,
		out:        os.Stdout,
	}, nil
}

// SetProgress registers a callback invoked after every finished unit.
func (r *Runner) SetProgress(fn ProgressFunc) { r.progress = fn }

// SetOutput redirects the header and dry-run output, which go to
// stdout by default.
func (r *Runner) SetOutput(w io.Writer) { r.out = w }

// Config returns the validated configuration the runner was built with.
func (r *Runner) Config() Config { return r.cfg }

// progressState serializes bookkeeping across model goroutines.
type progressState struct {
	mu        sync.Mutex
	completed int
	total     int
}

// Run executes the whole experiment and returns every record grouped in
// model order regardless of parallelism.
func (r *Runner) Run(ctx context.Context) ([]Record, error) {
	r.printHeader()

	if r.cfg.DryRun {
		return nil, r.dryRun()
	}

	if !r.engine.IsAvailable(ctx) {
		return nil, errors.New("ollama host is not available")
	}

	if err := r.sink.CreateExperiment(ctx, r.cfg); err != nil {
		return nil, fmt.Errorf("create experiment: %w", err)
	}

	logging.LogEvent("experiment %s (%s) started: %d executions",
		r.cfg.ID, r.cfg.Name, r.cfg.TotalExecutions())

	state := &progressState{total: r.cfg.TotalExecutions()}
	if r.cfg.Parallel && len(r.cfg.Models) > 1 {
		return r.runParallel(ctx, state)
	}
	return r.runSequential(ctx, state)
}

func (r *Runner) runSequential(ctx context.Context, state *progressState) ([]Record, error) {
	var records []Record
	for _, model := range r.cfg.Models {
		recs, err := r.runModel(ctx, model, state)
		records = append(records, recs...)
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

func (r *Runner) runParallel(ctx context.Context, state *progressState) ([]Record, error) {
	perModel := make([][]Record, len(r.cfg.Models))
	errs := make([]error, len(r.cfg.Models))

	var wg sync.WaitGroup
	for i, model := range r.cfg.Models {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			perModel[i], errs[i] = r.runModel(ctx, model, state)
		}(i, model)
	}
	wg.Wait()

	var records []Record
	for _, recs := range perModel {
		records = append(records, recs...)
	}
	for _, err := range errs {
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

func (r *Runner) runModel(ctx context.Context, model string, state *progressState) ([]Record, error) {
	var records []Record
	for _, level := range r.cfg.PollutionLevels {
		for iteration := 1; iteration <= r.cfg.Iterations; iteration++ {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			rec, err := r.runUnit(ctx, model, level, iteration, state)
			if err != nil {
				return records, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *Runner) runUnit(ctx context.Context, model string, level float64, iteration int, state *progressState) (Record, error) {
	p, err := r.generator.Generate(level, nil)
	if err != nil {
		return Record{}, fmt.Errorf("generate prompt: %w", err)
	}

	res := r.engine.Run(ctx, runner.Request{
		Model:     model,
		Prompt:    p,
		Tools:     r.catalog,
		Placement: r.cfg.Placement,
		Execute:   r.execute,
		Options:   r.cfg.Options,
	})

	eval := r.classifier.Evaluate(p, res)
	rec := newRecord(r.cfg, model, iteration, p, res, eval)

	state.mu.Lock()
	defer state.mu.Unlock()
	if err := r.sink.SaveExecution(ctx, rec); err != nil {
		return rec, fmt.Errorf("save execution: %w", err)
	}
	logging.LogVerdict(model, level, string(eval.Classification), eval.ConfidenceScore)
	state.completed++
	if r.progress != nil {
		r.progress(ProgressEvent{
			Model:          model,
			PollutionLevel: level,
			Iteration:      iteration,
			Completed:      state.completed,
			Total:          state.total,
			Classification: eval.Classification,
		})
	}
	return rec, nil
}

func (r *Runner) printHeader() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerLine("Experimento: "+r.cfg.Name))
	if r.cfg.Hypothesis != "" {
		fmt.Fprintf(r.out, "Hipótese: %s\n", r.cfg.Hypothesis)
	}
	fmt.Fprintf(r.out, "Dificuldade: %s\n", r.cfg.Difficulty)
	fmt.Fprintf(r.out, "Tool set: %s\n", r.cfg.ToolSet)
	fmt.Fprintf(r.out, "Context placement: %s\n", r.cfg.Placement)
	if r.cfg.Difficulty == prompt.DifficultyAdversarial {
		fmt.Fprintf(r.out, "Adversarial variant: %s\n", r.cfg.Variant)
	}
	fmt.Fprintf(r.out, "Modelos: %s\n", strings.Join(r.cfg.Models, ", "))
	fmt.Fprintf(r.out, "Níveis de poluição: %s\n", formatLevels(r.cfg.PollutionLevels))
	fmt.Fprintf(r.out, "Iterações por condição: %d\n", r.cfg.Iterations)
	fmt.Fprintln(r.out, totalLine(fmt.Sprintf("Total de execuções: %d", r.cfg.TotalExecutions())))
	fmt.Fprintln(r.out)
}

// dryRun prints one generated prompt per pollution level without
// touching the model or the sink.
func (r *Runner) dryRun() error {
	fmt.Fprintln(r.out, dimLine("Modo dry-run - nenhuma execução será feita"))
	for _, level := range r.cfg.PollutionLevels {
		p, err := r.generator.Generate(level, nil)
		if err != nil {
			return fmt.Errorf("generate prompt: %w", err)
		}
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, headerLine(fmt.Sprintf("Poluição %g%% (%d repetições, hash %s)",
			level, p.ContextRepetitions, shortHash(p.PromptHash))))
		fmt.Fprintf(r.out, "System: %s\n", truncate(p.SystemPrompt, 160))
		if p.Context != "" {
			fmt.Fprintf(r.out, "Contexto: %s\n", truncate(p.Context, 240))
		}
		fmt.Fprintf(r.out, "User: %s\n", p.UserPrompt)
	}
	return nil
}

func formatLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%g%%", l)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
