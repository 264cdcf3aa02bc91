// internal/prompt/generator.go
// Package prompt generates experiment prompts with controlled levels of
// redundant "polluting" context. It holds the template catalog, the pollution
// scheduler, the context compositor and the prompt assembler.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
)

// Generator assembles prompts for a single template at varying pollution
// levels. Generation is deterministic: the same level, overrides and seed
// always produce the same GeneratedPrompt, hash included.
type Generator struct {
	template  Template
	scheduler *Scheduler
	variables map[string]string
	seed      int64
}

// NewGenerator binds a generator to a named template from the registry.
// Overrides replace template defaults for every subsequent Generate call.
func NewGenerator(reg *Registry, sched *Scheduler, templateName string, seed int64, overrides map[string]string) (*Generator, error) {
	tmpl, err := reg.Get(templateName)
	if err != nil {
		return nil, err
	}
	return &Generator{
		template:  tmpl,
		scheduler: sched,
		variables: mergeVariables(tmpl.Variables, overrides),
		seed:      seed,
	}, nil
}

// NewGeneratorForDifficulty binds a generator to the canonical template for a
// difficulty tier.
func NewGeneratorForDifficulty(reg *Registry, sched *Scheduler, d Difficulty, v AdversarialVariant, seed int64, overrides map[string]string) (*Generator, error) {
	tmpl, err := reg.ForDifficulty(d, v)
	if err != nil {
		return nil, err
	}
	return NewGenerator(reg, sched, tmpl.Name, seed, overrides)
}

// Template returns the template this generator is bound to.
func (g *Generator) Template() Template {
	return g.template
}

// Generate produces a prompt at the given pollution level. Levels outside
// [0, 100] fail with ErrInvalidPollutionLevel. Per-call overrides apply on top
// of the generator's variables for this call only.
func (g *Generator) Generate(level float64, overrides map[string]string) (GeneratedPrompt, error) {
	repetitions, err := g.scheduler.RepetitionsFor(level)
	if err != nil {
		return GeneratedPrompt{}, err
	}

	vars := mergeVariables(g.variables, overrides)

	system := fillPlaceholders(g.template.SystemPrompt, vars)
	user := fillPlaceholders(g.template.UserPrompt, vars)

	rng := rand.New(rand.NewSource(g.seed))
	context, repetitions := ComposeContext(g.template, vars, repetitions, rng)

	sum := sha256.Sum256([]byte(system + "\n" + context + "\n" + user))

	return GeneratedPrompt{
		SystemPrompt:       system,
		UserPrompt:         user,
		Context:            context,
		PollutionLevel:     level,
		TemplateName:       g.template.Name,
		ExpectedTool:       g.template.ExpectedTool,
		ExpectedValue:      vars["expected_value"],
		ContextValue:       vars["context_price"],
		PromptHash:         hex.EncodeToString(sum[:]),
		ContextRepetitions: repetitions,
	}, nil
}

func mergeVariables(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
