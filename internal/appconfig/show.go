// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the effective configuration summary.
func ShowConfig(out io.Writer, cfg Config) {
	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n", cfg.ConfigPath)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Ollama host:        %s\n", cfg.Host())
	fmt.Fprintf(out, "  Database URL:       %s\n", cfg.DatabaseDSN())
	fmt.Fprintf(out, "  Log file:           %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Request timeout:    %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Debug:              %v\n", cfg.Debug)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Experiment defaults:")
	fmt.Fprintf(out, "  Temperature:        %g\n", cfg.Temperature)
	fmt.Fprintf(out, "  Seed:               %d\n", cfg.Seed)
	fmt.Fprintf(out, "  Context window:     %d\n", cfg.NumCtx)
	fmt.Fprintf(out, "  Iterations:         %d\n", cfg.DefaultIterations)
	fmt.Fprintf(out, "  Pollution levels:   %s\n", formatLevelList(cfg.DefaultPollutionLevels))
	fmt.Fprintf(out, "  Difficulty:         %s\n", cfg.DefaultDifficulty)
	fmt.Fprintf(out, "  Tool set:           %s\n", cfg.DefaultToolSet)
	fmt.Fprintf(out, "  Context placement:  %s\n", cfg.DefaultPlacement)
	fmt.Fprintf(out, "  Target tool:        %s\n", cfg.TargetTool)
}

func formatLevelList(levels []float64) string {
	if len(levels) == 0 {
		return "(none)"
	}
	parts := make([]string, len(levels))
	for i, level := range levels {
		parts[i] = fmt.Sprintf("%g%%", level)
	}
	return strings.Join(parts, ", ")
}
