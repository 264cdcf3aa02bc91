// internal/experiment/config_test.go
package experiment

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/tools"
)

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{
		Name:            "Teste H1",
		Models:          []string{"qwen3:4b"},
		PollutionLevels: []float64{0, 40},
		Iterations:      5,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID == uuid.Nil {
		t.Errorf("Validate must assign an experiment ID")
	}
	if cfg.Difficulty != prompt.DifficultyNeutral {
		t.Errorf("unexpected default difficulty: %q", cfg.Difficulty)
	}
	if cfg.Variant != prompt.WithTimestamp {
		t.Errorf("unexpected default variant: %q", cfg.Variant)
	}
	if cfg.ToolSet != tools.SetBase {
		t.Errorf("unexpected default tool set: %q", cfg.ToolSet)
	}
	if cfg.Placement != runner.PlacementUser {
		t.Errorf("unexpected default placement: %q", cfg.Placement)
	}
	if cfg.TargetTool != classify.DefaultTargetTool {
		t.Errorf("unexpected default target tool: %q", cfg.TargetTool)
	}
	if cfg.Options != runner.DefaultOptions() {
		t.Errorf("unexpected default options: %+v", cfg.Options)
	}
}

func TestConfigValidateKeepsExplicitValues(t *testing.T) {
	id := uuid.New()
	cfg := Config{
		ID:              id,
		Name:            "Teste H2",
		Models:          []string{"qwen3:4b"},
		PollutionLevels: []float64{80},
		Iterations:      1,
		Difficulty:      prompt.DifficultyAdversarial,
		Variant:         prompt.WithoutTimestamp,
		ToolSet:         tools.SetExpanded,
		Placement:       runner.PlacementSystem,
		TargetTool:      "get_fx_rate",
		Options:         runner.Options{Temperature: 0.5, Seed: 7, NumCtx: 4096},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID != id || cfg.Difficulty != prompt.DifficultyAdversarial ||
		cfg.Variant != prompt.WithoutTimestamp || cfg.ToolSet != tools.SetExpanded ||
		cfg.Placement != runner.PlacementSystem || cfg.TargetTool != "get_fx_rate" {
		t.Errorf("explicit values must survive validation: %+v", cfg)
	}
	if cfg.Options.Seed != 7 {
		t.Errorf("explicit options must survive validation: %+v", cfg.Options)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	base := func() Config {
		return Config{
			Name:            "Teste",
			Models:          []string{"qwen3:4b"},
			PollutionLevels: []float64{0},
			Iterations:      1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty name", mutate: func(c *Config) { c.Name = "  " }},
		{name: "no models", mutate: func(c *Config) { c.Models = nil }},
		{name: "no levels", mutate: func(c *Config) { c.PollutionLevels = nil }},
		{name: "zero iterations", mutate: func(c *Config) { c.Iterations = 0 }},
		{name: "bad difficulty", mutate: func(c *Config) { c.Difficulty = "extreme" }},
		{name: "bad variant", mutate: func(c *Config) { c.Variant = "sometimes" }},
		{name: "bad tool set", mutate: func(c *Config) { c.ToolSet = "huge" }},
		{name: "bad placement", mutate: func(c *Config) { c.Placement = "assistant" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestConfigValidateRejectsOutOfRangeLevels(t *testing.T) {
	for _, level := range []float64{-5, 150} {
		cfg := Config{
			Name:            "Teste",
			Models:          []string{"qwen3:4b"},
			PollutionLevels: []float64{level},
			Iterations:      1,
		}
		err := cfg.Validate()
		if !errors.Is(err, prompt.ErrInvalidPollutionLevel) {
			t.Errorf("level %v: expected ErrInvalidPollutionLevel, got %v", level, err)
		}
	}
}

func TestTotalExecutions(t *testing.T) {
	cfg := Config{
		Models:          []string{"a", "b"},
		PollutionLevels: []float64{0, 20, 40},
		Iterations:      5,
	}
	if got := cfg.TotalExecutions(); got != 30 {
		t.Errorf("TotalExecutions = %d, want 30", got)
	}
}

func TestVariantLabel(t *testing.T) {
	cfg := Config{Difficulty: prompt.DifficultyNeutral, Variant: prompt.WithTimestamp}
	if got := cfg.VariantLabel(); got != "" {
		t.Errorf("neutral difficulty must not report a variant, got %q", got)
	}
	cfg.Difficulty = prompt.DifficultyAdversarial
	if got := cfg.VariantLabel(); got != "with_timestamp" {
		t.Errorf("unexpected variant label: %q", got)
	}
}
