// internal/cli/models.go
package miasma

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/runner/ollama"
)

// modelsCmd implements 'models', listing what the Ollama host serves.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available on the Ollama host",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listModels(cmd)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func listModels(cmd *cobra.Command) error {
	cfg := GetConfig()
	engine := ollama.New(ollama.Config{
		Host:    cfg.Host(),
		Timeout: cfg.RequestTimeout(),
		Debug:   cfg.Debug,
	})

	names, err := engine.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models from %s: %w", engine.Host(), err)
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, yellow("Nenhum modelo encontrado em "+engine.Host()))
		return nil
	}
	fmt.Fprintf(out, "Modelos disponíveis em %s:\n", engine.Host())
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
