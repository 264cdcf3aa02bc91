// internal/prompt/types.go
package prompt

import (
	"fmt"
	"strings"
)

// Difficulty selects how hostile the injected context is toward the model.
type Difficulty string

const (
	// DifficultyNeutral repeats a single stable trap value verbatim across copies.
	DifficultyNeutral Difficulty = "neutral"
	// DifficultyCounterfactual perturbs the trap value independently per copy,
	// simulating conflicting historical snapshots of the same report.
	DifficultyCounterfactual Difficulty = "counterfactual"
	// DifficultyAdversarial additionally injects a fabricated "live as of now"
	// clause designed to make the stale value look current.
	DifficultyAdversarial Difficulty = "adversarial"
)

// ParseDifficulty converts a string into a Difficulty, rejecting unknown values.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyNeutral:
		return DifficultyNeutral, nil
	case DifficultyCounterfactual:
		return DifficultyCounterfactual, nil
	case DifficultyAdversarial:
		return DifficultyAdversarial, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (expected neutral, counterfactual or adversarial)", s)
}

// AdversarialVariant controls whether the fabricated live-quote clause carries
// a literal datetime. Only meaningful for DifficultyAdversarial.
type AdversarialVariant string

const (
	WithTimestamp    AdversarialVariant = "with_timestamp"
	WithoutTimestamp AdversarialVariant = "without_timestamp"
)

// ParseVariant converts a string into an AdversarialVariant, rejecting unknown
// values. The empty string resolves to WithTimestamp.
func ParseVariant(s string) (AdversarialVariant, error) {
	switch AdversarialVariant(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return WithTimestamp, nil
	case WithTimestamp:
		return WithTimestamp, nil
	case WithoutTimestamp:
		return WithoutTimestamp, nil
	}
	return "", fmt.Errorf("unknown adversarial variant %q (expected with_timestamp or without_timestamp)", s)
}

// Template is an immutable prompt scenario: system instructions, the user
// question, the polluting context block, the tool the model is expected to
// call, and default values for every {placeholder} the texts use.
type Template struct {
	Name            string
	Difficulty      Difficulty
	Variant         AdversarialVariant
	SystemPrompt    string
	UserPrompt      string
	ContextTemplate string
	ExpectedTool    string
	Variables       map[string]string
}

// GeneratedPrompt is the value object produced by one generation call. Context
// is the empty string exactly when ContextRepetitions is zero. PromptHash is a
// pure function of the three text fields.
type GeneratedPrompt struct {
	SystemPrompt       string  `json:"system_prompt"`
	UserPrompt         string  `json:"user_prompt"`
	Context            string  `json:"context,omitempty"`
	PollutionLevel     float64 `json:"pollution_level"`
	TemplateName       string  `json:"template_name"`
	ExpectedTool       string  `json:"expected_tool"`
	ExpectedValue      string  `json:"expected_value"`
	ContextValue       string  `json:"context_value"`
	PromptHash         string  `json:"prompt_hash"`
	ContextRepetitions int     `json:"context_repetitions"`
}

// FullPrompt returns the system prompt, context (when present) and user
// question joined by blank lines, in conversation order.
func (p GeneratedPrompt) FullPrompt() string {
	parts := []string{p.SystemPrompt}
	if p.Context != "" {
		parts = append(parts, p.Context)
	}
	parts = append(parts, p.UserPrompt)
	return strings.Join(parts, "\n\n")
}
