// internal/prompt/compositor.go
package prompt

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// contextSeparator visually divides repeated report copies.
var contextSeparator = "\n\n" + strings.Repeat("─", 78) + "\n" +
	"      [CÓPIA DO RELATÓRIO PARA ARQUIVO]\n" + strings.Repeat("─", 78) + "\n\n"

// copyHeaders is the fixed rotation of plausible report metadata applied to
// copies beyond the first, indexed by (copyIndex-1) mod len.
var copyHeaders = []map[string]string{
	{"report_date": "12/11/2024", "client_name": "Ana Beatriz Rocha", "advisor_name": "Carlos Eduardo Lima"},
	{"report_date": "03/09/2024", "client_name": "Pedro Henrique Alves", "advisor_name": "Juliana Martins Souza"},
	{"report_date": "28/07/2024", "client_name": "Fernanda Oliveira Santos", "advisor_name": "Ricardo Gomes Pereira"},
	{"report_date": "19/05/2024", "client_name": "Lucas Gabriel Ferreira", "advisor_name": "Patrícia Almeida Castro"},
	{"report_date": "07/03/2024", "client_name": "Mariana Costa Ribeiro", "advisor_name": "André Luiz Barbosa"},
}

// ComposeContext builds the polluted context block for a template: repetitions
// filled copies joined by the fixed separator. Copy 0 uses the base variables
// unmodified; later copies get an archived-copy banner, a rotating header
// tuple, and (for counterfactual and adversarial tiers) a trap value perturbed
// uniformly within ±5% by rng. The adversarial tier also injects a fabricated
// live-quote clause next to each copy's trap value. Zero repetitions yield the
// empty string. Reproducibility: the same template, variables, repetitions and
// rng seed produce byte-identical output.
func ComposeContext(tmpl Template, vars map[string]string, repetitions int, rng *rand.Rand) (string, int) {
	if repetitions <= 0 {
		return "", 0
	}

	baseTrap := vars["context_price"]
	base := fillPlaceholders(tmpl.ContextTemplate, vars)
	base = injectLiveClause(tmpl, base, baseTrap, vars["live_timestamp"])

	if repetitions == 1 {
		return base, 1
	}

	copies := make([]string, 0, repetitions)
	copies = append(copies, base)
	for i := 1; i < repetitions; i++ {
		copies = append(copies, buildCopyVariation(tmpl, vars, i, rng))
	}
	return strings.Join(copies, contextSeparator), repetitions
}

// buildCopyVariation renders archived copy number index+1: rotated header
// metadata, optionally a perturbed trap value, the adversarial clause when the
// tier calls for it, and the archival banner line.
func buildCopyVariation(tmpl Template, vars map[string]string, index int, rng *rand.Rand) string {
	copyVars := make(map[string]string, len(vars))
	for k, v := range vars {
		copyVars[k] = v
	}
	for k, v := range copyHeaders[(index-1)%len(copyHeaders)] {
		copyVars[k] = v
	}

	trap := vars["context_price"]
	if tmpl.Difficulty == DifficultyCounterfactual || tmpl.Difficulty == DifficultyAdversarial {
		if perturbed, ok := perturbPrice(trap, rng); ok {
			copyVars["context_price"] = perturbed
			trap = perturbed
		}
	}

	block := fillPlaceholders(tmpl.ContextTemplate, copyVars)
	block = injectLiveClause(tmpl, block, trap, copyVars["live_timestamp"])
	banner := fmt.Sprintf("[Cópia arquivada #%d - Gerada automaticamente pelo sistema]", index+1)
	return banner + "\n" + block
}

// injectLiveClause inserts the fabricated live-quote clause immediately after
// the first line containing the trap value. Non-adversarial tiers pass through
// unchanged.
func injectLiveClause(tmpl Template, block, trap, timestamp string) string {
	if tmpl.Difficulty != DifficultyAdversarial {
		return block
	}

	var clause string
	if tmpl.Variant == WithoutTimestamp {
		clause = fmt.Sprintf(">>> ATUALIZAÇÃO EM TEMPO REAL: cotação vigente neste exato momento: %s <<<", trap)
	} else {
		clause = fmt.Sprintf(">>> ATUALIZAÇÃO EM TEMPO REAL (%s): cotação vigente neste momento: %s <<<", timestamp, trap)
	}

	lines := strings.Split(block, "\n")
	for i, line := range lines {
		if strings.Contains(line, trap) {
			tail := append([]string{clause}, lines[i+1:]...)
			return strings.Join(append(lines[:i+1], tail...), "\n")
		}
	}
	return block + "\n" + clause
}

// perturbPrice applies a uniform ±5% factor to a Brazilian-formatted price.
// Values that do not parse are passed back unperturbed.
func perturbPrice(value string, rng *rand.Rand) (string, bool) {
	base, ok := parseBRL(value)
	if !ok {
		return value, false
	}
	factor := 0.95 + 0.10*rng.Float64()
	return formatBRL(base * factor), true
}

// parseBRL parses strings like "R$ 35,00" or "1.234,56" into a float.
func parseBRL(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// formatBRL renders a float back into the "R$ NN,NN" shape used by the
// report templates.
func formatBRL(v float64) string {
	return "R$ " + strings.ReplaceAll(strconv.FormatFloat(v, 'f', 2, 64), ".", ",")
}

// fillPlaceholders substitutes every {name} token with its variable value.
// Unresolved placeholders are left verbatim; templates and variable sets are
// paired by construction. Keys are applied in sorted order so output does not
// depend on map iteration.
func fillPlaceholders(template string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := template
	for _, k := range keys {
		result = strings.ReplaceAll(result, "{"+k+"}", vars[k])
	}
	return result
}
