// internal/experiment/config.go

// Package experiment orchestrates pollution experiments: for every
// model, pollution level and iteration it generates a prompt, executes
// it against the model runtime, classifies the outcome and hands the
// record to a persistence sink.
package experiment

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
	"github.com/mwiater/miasma/internal/tools"
)

// Config describes one experiment: the models under test, the pollution
// sweep, and the prompt conditions shared by every execution.
type Config struct {
	ID              uuid.UUID
	Name            string
	Hypothesis      string
	Description     string
	Models          []string
	PollutionLevels []float64
	Iterations      int
	Difficulty      prompt.Difficulty
	Variant         prompt.AdversarialVariant
	ToolSet         tools.ToolSet
	Placement       runner.ContextPlacement
	TargetTool      string
	Options         runner.Options
	Parallel        bool
	DryRun          bool
}

// Validate fills unset fields with experiment defaults and rejects
// values that cannot run. New calls it, so a Config built by hand goes
// through the same checks as one built by the CLI.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("experiment name is required")
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model is required")
	}
	if len(c.PollutionLevels) == 0 {
		return errors.New("at least one pollution level is required")
	}
	sched := prompt.NewScheduler()
	for _, level := range c.PollutionLevels {
		if _, err := sched.RepetitionsFor(level); err != nil {
			return err
		}
	}
	if c.Iterations <= 0 {
		return errors.New("iterations must be positive")
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Difficulty == "" {
		c.Difficulty = prompt.DifficultyNeutral
	} else {
		d, err := prompt.ParseDifficulty(string(c.Difficulty))
		if err != nil {
			return err
		}
		c.Difficulty = d
	}
	v, err := prompt.ParseVariant(string(c.Variant))
	if err != nil {
		return err
	}
	c.Variant = v
	set, err := tools.ParseToolSet(string(c.ToolSet))
	if err != nil {
		return err
	}
	c.ToolSet = set
	placement, err := runner.ParsePlacement(string(c.Placement))
	if err != nil {
		return err
	}
	c.Placement = placement
	if c.TargetTool == "" {
		c.TargetTool = classify.DefaultTargetTool
	}
	if c.Options == (runner.Options{}) {
		c.Options = runner.DefaultOptions()
	}
	return nil
}

// TotalExecutions returns models × levels × iterations.
func (c Config) TotalExecutions() int {
	return len(c.Models) * len(c.PollutionLevels) * c.Iterations
}

// VariantLabel returns the adversarial variant name when the difficulty
// uses one, and the empty string otherwise.
func (c Config) VariantLabel() string {
	if c.Difficulty == prompt.DifficultyAdversarial {
		return string(c.Variant)
	}
	return ""
}
