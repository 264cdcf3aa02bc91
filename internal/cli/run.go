// internal/cli/run.go
package miasma

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/experiment"
	"github.com/mwiater/miasma/internal/logging"
	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/runner/ollama"
	"github.com/mwiater/miasma/internal/store"
	"github.com/mwiater/miasma/internal/tools"
	"github.com/mwiater/miasma/internal/tui"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// runCmd implements 'run', the full experiment cross product.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tool calling pollution experiment",
	Long: `Run executes the full cross product of models, pollution levels and
iterations, classifies every response and persists the records. Without
--no-db the results land in Postgres; --jsonl additionally writes per-model
artifact files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExperiment(cmd)
	},
}

func init() {
	runCmd.Flags().StringP("name", "n", "Experimento H1", "experiment name")
	runCmd.Flags().StringP("models", "m", "qwen3:4b", "models to test (comma separated)")
	runCmd.Flags().StringP("pollution-levels", "p", "", "pollution levels (comma separated, default from config)")
	runCmd.Flags().IntP("iterations", "i", 0, "iterations per condition (0 = config default)")
	runCmd.Flags().StringP("difficulty", "d", "", "difficulty tier (neutral, counterfactual, adversarial)")
	runCmd.Flags().String("variant", "", "adversarial variant (with_timestamp, without_timestamp)")
	runCmd.Flags().String("tool-set", "", "tool catalog offered to the model (base, expanded)")
	runCmd.Flags().String("placement", "", "context placement (user, system)")
	runCmd.Flags().String("hypothesis", "H1", "hypothesis under test (H1, H2, H3)")
	runCmd.Flags().Bool("parallel", false, "run models in parallel")
	runCmd.Flags().Bool("no-db", false, "do not persist to the database")
	runCmd.Flags().Bool("jsonl", false, "write per-model JSONL artifacts")
	runCmd.Flags().Bool("dry-run", false, "generate and print prompts without calling any model")
	runCmd.Flags().Bool("plain", false, "disable the progress display")

	rootCmd.AddCommand(runCmd)
}

func runExperiment(cmd *cobra.Command) error {
	cfg := GetConfig()
	flags := cmd.Flags()

	name, _ := flags.GetString("name")
	modelsCSV, _ := flags.GetString("models")
	levelsCSV, _ := flags.GetString("pollution-levels")
	iterations, _ := flags.GetInt("iterations")
	difficulty, _ := flags.GetString("difficulty")
	variant, _ := flags.GetString("variant")
	toolSet, _ := flags.GetString("tool-set")
	placement, _ := flags.GetString("placement")
	hypothesis, _ := flags.GetString("hypothesis")
	parallel, _ := flags.GetBool("parallel")
	noDB, _ := flags.GetBool("no-db")
	jsonl, _ := flags.GetBool("jsonl")
	dryRun, _ := flags.GetBool("dry-run")
	plain, _ := flags.GetBool("plain")

	levels := cfg.DefaultPollutionLevels
	if levelsCSV != "" {
		parsed, err := parseLevels(levelsCSV)
		if err != nil {
			return err
		}
		levels = parsed
	}
	if iterations <= 0 {
		iterations = cfg.DefaultIterations
	}
	if difficulty == "" {
		difficulty = cfg.DefaultDifficulty
	}
	if toolSet == "" {
		toolSet = cfg.DefaultToolSet
	}
	if placement == "" {
		placement = cfg.DefaultPlacement
	}

	expCfg := experiment.Config{
		Name:            name,
		Hypothesis:      hypothesis,
		Models:          splitCSV(modelsCSV),
		PollutionLevels: levels,
		Iterations:      iterations,
		Difficulty:      prompt.Difficulty(difficulty),
		Variant:         prompt.AdversarialVariant(variant),
		ToolSet:         tools.ToolSet(toolSet),
		Placement:       runner.ContextPlacement(placement),
		TargetTool:      cfg.TargetTool,
		Options: runner.Options{
			Temperature: cfg.Temperature,
			Seed:        cfg.Seed,
			NumCtx:      cfg.NumCtx,
		},
		Parallel: parallel,
		DryRun:   dryRun,
	}

	engine := ollama.New(ollama.Config{
		Host:    cfg.Host(),
		Timeout: cfg.RequestTimeout(),
		Debug:   cfg.Debug,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sink, pg := buildSink(ctx, cfg.DatabaseDSN(), noDB || dryRun, jsonl)
	defer sink.Close()

	r, err := experiment.New(expCfg, engine, sink)
	if err != nil {
		return err
	}

	var records []experiment.Record
	if !plain && !dryRun && isatty.IsTerminal(os.Stdout.Fd()) {
		records, err = tui.RunExperiment(ctx, cancel, r, cfg.LogFilePath())
		if initErr := logging.Init(cfg.LogFilePath()); initErr != nil {
			fmt.Println(yellow(fmt.Sprintf("Aviso: não foi possível reabrir o log: %v", initErr)))
		}
	} else {
		if !dryRun {
			r.SetProgress(plainProgress)
		}
		records, err = r.Run(ctx)
	}

	if errors.Is(err, context.Canceled) {
		finishExperiment(pg, r.Config().ID, "interrupted")
		fmt.Println(yellow("\nExperimento interrompido."))
		printRecordsSummary(records)
		return nil
	}
	if err != nil {
		finishExperiment(pg, r.Config().ID, "failed")
		return err
	}
	if dryRun {
		return nil
	}

	printRecordsSummary(records)
	finishExperiment(pg, r.Config().ID, "completed")
	fmt.Println(dim(fmt.Sprintf("\nExperimento ID: %s", r.Config().ID)))
	return nil
}

// buildSink assembles the persistence stack for a run. Database connection
// failures degrade to a warning instead of blocking the experiment.
func buildSink(ctx context.Context, dsn string, noDB, jsonl bool) (experiment.Sink, *store.Postgres) {
	sinks := make([]experiment.Sink, 0, 2)
	var pg *store.Postgres
	if !noDB {
		opened, err := store.Open(ctx, dsn)
		if err != nil {
			fmt.Println(yellow(fmt.Sprintf("Aviso: Não foi possível conectar ao banco: %v", err)))
			fmt.Println(yellow("Continuando sem persistência..."))
		} else {
			pg = opened
			sinks = append(sinks, pg)
		}
	}
	if jsonl {
		sinks = append(sinks, store.NewJSONL(""))
	}
	switch len(sinks) {
	case 0:
		return store.Nop{}, pg
	case 1:
		return sinks[0], pg
	default:
		return store.NewMulti(sinks...), pg
	}
}

func finishExperiment(pg *store.Postgres, id uuid.UUID, status string) {
	if pg == nil {
		return
	}
	if err := pg.FinishExperiment(context.Background(), id, status); err != nil {
		fmt.Println(yellow(fmt.Sprintf("Aviso: não foi possível finalizar o experimento no banco: %v", err)))
	}
}

func printRecordsSummary(records []experiment.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Println()
	experiment.PrintSummary(os.Stdout, experiment.Summarize(records))
}

func plainProgress(e experiment.ProgressEvent) {
	fmt.Printf("  [%d/%d] %s -> %s\n", e.Completed, e.Total, e.Description(), e.Classification)
}
