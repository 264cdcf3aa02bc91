// internal/cli/templates.go
package miasma

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/prompt"
)

// templatesCmd implements 'templates', listing the prompt registry.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the registered prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTemplates(cmd)
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func listTemplates(cmd *cobra.Command) error {
	reg := prompt.NewRegistry()

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(verdictBorderStyle).
		Headers("Nome", "Dificuldade", "Variante", "Tool Esperada", "Placeholders").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return verdictHeaderStyle
			}
			if col == 0 {
				return verdictFieldStyle
			}
			return verdictCellStyle
		})

	for _, name := range reg.List() {
		tpl, err := reg.Get(name)
		if err != nil {
			return err
		}
		variant := string(tpl.Variant)
		if variant == "" {
			variant = "-"
		}
		t.Row(tpl.Name, string(tpl.Difficulty), variant, tpl.ExpectedTool,
			strconv.Itoa(len(tpl.Variables)))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, summaryTitle("Templates de Prompt"))
	fmt.Fprintln(out, t.String())
	return nil
}
