// internal/cli/config.go
package miasma

import (
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/miasma/internal/appconfig"
)

// configCmd implements 'config', which displays the effective
// configuration after file, environment and flag merging.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Show the effective configuration after the config file, MIASMA_ environment variables and flags have been merged.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		appconfig.ShowConfig(cmd.OutOrStdout(), *cfg)
		if cfg.Debug {
			pp.Println(cfg)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
