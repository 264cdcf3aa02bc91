// internal/cli/results.go
package miasma

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/experiment"
	"github.com/mwiater/miasma/internal/store"
)

// resultsCmd implements 'results', the summary table for a stored
// experiment.
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the stored summary for an experiment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showResults(cmd)
	},
}

func init() {
	resultsCmd.Flags().StringP("experiment", "e", "", "experiment id")

	rootCmd.AddCommand(resultsCmd)
}

func showResults(cmd *cobra.Command) error {
	raw, _ := cmd.Flags().GetString("experiment")
	if raw == "" {
		fmt.Println(yellow("Use --experiment para especificar o experimento."))
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid experiment id %q: %w", raw, err)
	}

	cfg := GetConfig()
	ctx := cmd.Context()
	pg, err := store.Open(ctx, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer pg.Close()

	rows, err := pg.Summary(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("Nenhum resultado encontrado.")
		return nil
	}

	experiment.PrintSummaryTitled(cmd.OutOrStdout(),
		fmt.Sprintf("Resultados - %s...", raw[:8]), rows)
	return nil
}
