// internal/cli/tools.go
package miasma

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/tools"
)

// toolsCmd implements 'tools', listing the mock tool catalogs.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalogs offered to the models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTools(cmd)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func listTools(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	for _, set := range []tools.ToolSet{tools.SetBase, tools.SetExpanded} {
		catalog := tools.Catalog(set)
		fmt.Fprintln(out, summaryTitle(fmt.Sprintf("Tool set %s (%d tools)", set, len(catalog))))
		for _, def := range catalog {
			fmt.Fprintf(out, "  %s\n", def.Name)
			if def.Description != "" {
				fmt.Fprintf(out, "      %s\n", dim(def.Description))
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}
