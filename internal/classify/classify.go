// internal/classify/classify.go

// Package classify assigns each execution one of four outcome
// categories: STC (called the correct tool and used its result), FNC
// (answered without calling any tool), FWT (called a tool other than
// the target) and FH (presented a value with no grounding). The
// classifier is heuristic: it extracts monetary values from the answer
// and compares them against the tool's known return and the polluted
// context value.
package classify

// Classification labels the outcome of a single execution.
type Classification string

const (
	// STC is Success-ToolCall: the correct tool was called and its
	// result appears in the answer.
	STC Classification = "STC"
	// FNC is Fail-NoCall: the model answered without calling any tool.
	FNC Classification = "FNC"
	// FWT is Fail-WrongTool: the model called a tool other than the
	// target.
	FWT Classification = "FWT"
	// FH is Fail-Hallucinated: the model presented a value it could not
	// have obtained, or narrated a tool call it never made.
	FH Classification = "FH"
)

var descriptions = map[Classification]string{
	STC: "Chamou a tool correta e usou o resultado",
	FNC: "Não chamou nenhuma tool",
	FWT: "Chamou uma tool incorreta",
	FH:  "Inventou valor sem base",
}

// Description returns the short label shown in tables and reports.
func (c Classification) Description() string {
	return descriptions[c]
}

// IsSuccess reports whether the classification counts as a success.
func (c Classification) IsSuccess() bool {
	return c == STC
}

// All returns every classification in display order.
func All() []Classification {
	return []Classification{STC, FNC, FWT, FH}
}
