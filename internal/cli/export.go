// internal/cli/export.go
package miasma

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/experiment"
	"github.com/mwiater/miasma/internal/store"
)

// exportCmd implements 'export', dumping stored executions to CSV.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the executions of an experiment to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportResults(cmd)
	},
}

func init() {
	exportCmd.Flags().StringP("experiment", "e", "", "experiment id")
	exportCmd.Flags().StringP("out", "o", "results.csv", "output file")
	_ = exportCmd.MarkFlagRequired("experiment")

	rootCmd.AddCommand(exportCmd)
}

func exportResults(cmd *cobra.Command) error {
	raw, _ := cmd.Flags().GetString("experiment")
	out, _ := cmd.Flags().GetString("out")

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

	records, err := pg.Executions(ctx, id)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := experiment.WriteCSV(f, records); err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	fmt.Println(green(fmt.Sprintf("Exportado %d registros para %s", len(records), out)))
	return nil
}
