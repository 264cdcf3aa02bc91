// internal/cli/quicktest.go
package miasma

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/runner/ollama"
	"github.com/mwiater/miasma/internal/tools"
)

// quickTestCmd implements 'quicktest', a single execution with the full
// verdict printed instead of persisted.
var quickTestCmd = &cobra.Command{
	Use:   "quicktest",
	Short: "Run a single prompt and print the verdict",
	Long: `Quicktest generates one prompt at the requested pollution level, executes
it against a single model and prints the prompt preview, the tool call
trail and the colored classification verdict. Nothing is persisted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuickTest(cmd)
	},
}

func init() {
	quickTestCmd.Flags().StringP("model", "m", "qwen3:4b", "model to test")
	quickTestCmd.Flags().Float64P("pollution", "p", 0, "pollution level (0, 20, 40, 60, 80, 100)")
	quickTestCmd.Flags().StringP("difficulty", "d", "", "difficulty tier (neutral, counterfactual, adversarial)")
	quickTestCmd.Flags().String("variant", "", "adversarial variant (with_timestamp, without_timestamp)")
	quickTestCmd.Flags().String("tool-set", "", "tool catalog offered to the model (base, expanded)")
	quickTestCmd.Flags().String("placement", "", "context placement (user, system)")

	rootCmd.AddCommand(quickTestCmd)
}

func runQuickTest(cmd *cobra.Command) error {
	cfg := GetConfig()
	flags := cmd.Flags()

	model, _ := flags.GetString("model")
	pollution, _ := flags.GetFloat64("pollution")
	difficultyRaw, _ := flags.GetString("difficulty")
	variantRaw, _ := flags.GetString("variant")
	toolSetRaw, _ := flags.GetString("tool-set")
	placementRaw, _ := flags.GetString("placement")

	if difficultyRaw == "" {
		difficultyRaw = cfg.DefaultDifficulty
	}
	if toolSetRaw == "" {
		toolSetRaw = cfg.DefaultToolSet
	}
	if placementRaw == "" {
		placementRaw = cfg.DefaultPlacement
	}

	difficulty, err := prompt.ParseDifficulty(difficultyRaw)
	if err != nil {
		return err
	}
	variant, err := prompt.ParseVariant(variantRaw)
	if err != nil {
		return err
	}
	set, err := tools.ParseToolSet(toolSetRaw)
	if err != nil {
		return err
	}
	placement, err := runner.ParsePlacement(placementRaw)
	if err != nil {
		return err
	}

	gen, err := prompt.NewGeneratorForDifficulty(
		prompt.NewRegistry(), prompt.NewScheduler(),
		difficulty, variant, int64(cfg.Seed), nil)
	if err != nil {
		return err
	}

	engine := ollama.New(ollama.Config{
		Host:    cfg.Host(),
		Timeout: cfg.RequestTimeout(),
		Debug:   cfg.Debug,
	})

	ctx := cmd.Context()
	if !engine.IsAvailable(ctx) {
		return fmt.Errorf("ollama não está disponível em %s", cfg.Host())
	}

	p, err := gen.Generate(pollution, nil)
	if err != nil {
		return err
	}

	fmt.Println(bold("\nTeste Rápido"))
	fmt.Printf("Modelo: %s\n", model)
	fmt.Printf("Poluição: %g%%\n", pollution)
	fmt.Printf("Dificuldade: %s\n", difficulty)
	fmt.Println()
	fmt.Printf("Prompt: %s\n", p.UserPrompt)
	if p.ContextValue != "" {
		fmt.Printf("Valor armadilha: %s\n", p.ContextValue)
	}
	fmt.Printf("Valor esperado: %s\n", p.ExpectedValue)
	fmt.Println()
	fmt.Println(dim("Executando..."))

	res := engine.Run(ctx, runner.Request{
		Model:     model,
		Prompt:    p,
		Tools:     tools.Catalog(set),
		Placement: placement,
		Execute:   tools.NewMockBackend().Execute,
		Options: runner.Options{
			Temperature: cfg.Temperature,
			Seed:        cfg.Seed,
			NumCtx:      cfg.NumCtx,
		},
	})

	eval := classify.Evaluate(p, res, cfg.TargetTool)
	printVerdict(os.Stdout, eval, res)
	return nil
}

var (
	verdictBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	verdictHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	verdictCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	verdictFieldStyle  = verdictCellStyle.Foreground(lipgloss.Color("6"))

	verdictClassStyles = map[classify.Classification]lipgloss.Style{
		classify.STC: verdictCellStyle.Foreground(lipgloss.Color("2")),
		classify.FNC: verdictCellStyle.Foreground(lipgloss.Color("3")),
		classify.FWT: verdictCellStyle.Foreground(lipgloss.Color("5")),
		classify.FH:  verdictCellStyle.Foreground(lipgloss.Color("1")),
	}
)

// printVerdict renders the tool call trail, the classification table and
// the model response for a single execution.
func printVerdict(w io.Writer, eval classify.EvaluationResult, res runner.Result) {
	if len(res.ToolCalls) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tools chamadas:")
		for i, call := range res.ToolCalls {
			line := fmt.Sprintf("  %d. %s(%s)", i+1, call.ToolName, compactJSON(call.Arguments))
			if call.Error != "" {
				line += " [erro: " + call.Error + "]"
			}
			fmt.Fprintln(w, line)
		}
	}

	extracted := eval.ExtractedValue
	if extracted == "" {
		extracted = "N/A"
	}

	classStyle, ok := verdictClassStyles[eval.Classification]
	if !ok {
		classStyle = verdictCellStyle
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(verdictBorderStyle).
		Headers("Campo", "Valor").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return verdictHeaderStyle
			}
			if col == 0 {
				return verdictFieldStyle
			}
			if row == 0 {
				return classStyle
			}
			return verdictCellStyle
		}).
		Row("Classificação", string(eval.Classification)).
		Row("Chamou tool correta", checkmark(eval.CalledTargetTool)).
		Row("Usou valor da tool", checkmark(eval.UsedToolResult)).
		Row("Ancorou no contexto", checkmark(eval.AnchoredOnContext)).
		Row("Valor extraído", extracted).
		Row("Confiança", fmt.Sprintf("%.0f%%", eval.ConfidenceScore*100)).
		Row("Latência", fmt.Sprintf("%dms", res.LatencyMS))

	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryTitle("Resultado"))
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, dim("Razão: "+eval.Reasoning))

	if res.Error != "" {
		fmt.Fprintln(w, yellow("Erro na execução: "+res.Error))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resposta do modelo:")
	fmt.Fprintln(w, firstRunes(res.ResponseText, 500))
}

func summaryTitle(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}

func checkmark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func compactJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}

// firstRunes cuts s after max runes, appending an ellipsis marker when
// anything was dropped.
func firstRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
