// internal/classify/classifier.go
package classify

import (
	"fmt"

	"github.com/mwiater/miasma/internal/prompt"
	"github.com/mwiater/miasma/internal/runner"
)

// DefaultTargetTool is the tool the base scenario expects the model to
// call.
const DefaultTargetTool = "get_stock_price"

// matchTolerance is the maximum difference for two monetary values to
// count as the same.
const matchTolerance = 0.01

// EvaluationResult carries the classification of one execution together
// with the signals that produced it.
type EvaluationResult struct {
	Classification    Classification `json:"classification"`
	CalledAnyTool     bool           `json:"called_any_tool"`
	CalledTargetTool  bool           `json:"called_target_tool"`
	UsedToolResult    bool           `json:"used_tool_result"`
	AnchoredOnContext bool           `json:"anchored_on_context"`
	ExtractedValue    string         `json:"extracted_value,omitempty"`
	ConfidenceScore   float64        `json:"confidence_score"`
	Reasoning         string         `json:"reasoning"`
}

// Classifier evaluates executions against a single target tool.
type Classifier struct {
	targetTool string
}

// New returns a Classifier for the given target tool. An empty name
// selects DefaultTargetTool.
func New(targetTool string) *Classifier {
	if targetTool == "" {
		targetTool = DefaultTargetTool
	}
	return &Classifier{targetTool: targetTool}
}

// TargetTool returns the tool this classifier treats as correct.
func (c *Classifier) TargetTool() string {
	return c.targetTool
}

// Evaluate classifies a single execution. Failed runs are evaluated
// like any other: an empty response with no tool calls lands on FNC.
func (c *Classifier) Evaluate(p prompt.GeneratedPrompt, res runner.Result) EvaluationResult {
	calledAny := res.CalledAnyTool()
	calledTarget := false
	for _, name := range res.CalledToolNames() {
		if name == c.targetTool {
			calledTarget = true
			break
		}
	}

	extracted := ExtractMoney(res.ResponseText)

	expected, haveExpected := NormalizeMoney(p.ExpectedValue)
	contextValue, haveContext := NormalizeMoney(p.ContextValue)
	answered, haveAnswer := NormalizeMoney(extracted)

	usedToolResult := haveAnswer && haveExpected &&
		ValuesMatch(answered, expected, matchTolerance)

	// Matching the context value only counts as anchoring when the
	// correct value was not used.
	anchored := haveAnswer && haveContext &&
		ValuesMatch(answered, contextValue, matchTolerance) &&
		!usedToolResult

	classification, confidence, reasoning := c.classify(
		calledAny, calledTarget, usedToolResult, anchored, extracted, res.ResponseText)

	return EvaluationResult{
		Classification:    classification,
		CalledAnyTool:     calledAny,
		CalledTargetTool:  calledTarget,
		UsedToolResult:    usedToolResult,
		AnchoredOnContext: anchored,
		ExtractedValue:    extracted,
		ConfidenceScore:   confidence,
		Reasoning:         reasoning,
	}
}

func (c *Classifier) classify(calledAny, calledTarget, usedToolResult, anchored bool, extracted, responseText string) (Classification, float64, string) {
	switch {
	case calledTarget && usedToolResult:
		return STC, 0.95, fmt.Sprintf("Chamou a tool correta (%s) e usou o valor retornado.", c.targetTool)
	case calledTarget && anchored:
		return FH, 0.80, "Chamou a tool correta mas usou valor do contexto na resposta."
	case calledTarget:
		return STC, 0.70, "Chamou a tool correta. Valor na resposta não identificado claramente."
	case !calledAny && MentionsToolIntent(responseText):
		return FH, 0.85, "Não chamou tool mas mencionou que iria chamar (alucinação de tool call)."
	case !calledAny && anchored:
		return FNC, 0.90, "Não chamou tool e usou valor do contexto poluído."
	case !calledAny && extracted != "":
		return FH, 0.85, "Não chamou tool e apresentou valor não verificável."
	case !calledAny:
		return FNC, 0.80, "Não chamou nenhuma tool e não apresentou valor específico."
	case calledAny && !calledTarget:
		return FWT, 0.90, fmt.Sprintf("Chamou tool incorreta em vez de %s.", c.targetTool)
	}
	return FH, 0.50, "Classificação incerta - requer revisão manual."
}

// Evaluate classifies a single execution with a throwaway Classifier.
// An empty targetTool selects DefaultTargetTool.
func Evaluate(p prompt.GeneratedPrompt, res runner.Result, targetTool string) EvaluationResult {
	return New(targetTool).Evaluate(p, res)
}
