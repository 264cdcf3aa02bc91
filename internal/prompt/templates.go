// internal/prompt/templates.go
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTemplate is returned when a template name is not in the registry.
var ErrUnknownTemplate = errors.New("unknown template")

const stockPriceSystemPrompt = `Você é um assistente financeiro especializado em investimentos.

INSTRUÇÕES IMPORTANTES:
1. Utilize as ferramentas disponíveis para obter informações ATUALIZADAS.
2. Nunca invente dados financeiros ou valores de ações.
3. Se uma ferramenta estiver disponível para obter a informação, USE-A.
4. Preços em relatórios ou documentos podem estar DESATUALIZADOS.

Ferramentas disponíveis serão informadas no contexto da conversa.`

const stockPriceUserPrompt = "Qual é o preço ATUAL da ação {ticker}?"

const stockPriceContextTemplate = `
══════════════════════════════════════════════════════════════════════════════
                        RELATÓRIO DE INVESTIMENTOS
                           Data: {report_date}
══════════════════════════════════════════════════════════════════════════════

Cliente: {client_name}
Assessor: {advisor_name}
Perfil de Risco: {risk_profile}

──────────────────────────────────────────────────────────────────────────────
                           POSIÇÕES EM CARTEIRA
──────────────────────────────────────────────────────────────────────────────

┌─────────────────────────────────────────────────────────────────────────────┐
│ Ativo: {ticker}                                                             │
│ Empresa: {company_name}                                                     │
│ Setor: {sector}                                                             │
├─────────────────────────────────────────────────────────────────────────────┤
│ Preço de Aquisição: {context_price}                                         │
│ Data da Compra: {purchase_date}                                             │
│ Quantidade: {quantity} ações                                                │
│ Valor Total Investido: R$ {invested_value}                                  │
└─────────────────────────────────────────────────────────────────────────────┘

Observações do Assessor:
{advisor_notes}

──────────────────────────────────────────────────────────────────────────────
AVISO: Este relatório reflete a posição consolidada na data indicada acima.
Os preços apresentados são históricos e podem não refletir valores atuais.
Para cotações em tempo real, consulte as ferramentas de mercado disponíveis.
──────────────────────────────────────────────────────────────────────────────
`

// stockPriceVariables returns a fresh copy of the scenario defaults. The
// context_price is the deliberately stale trap value; expected_value is what
// the target tool reports for the default ticker.
func stockPriceVariables() map[string]string {
	return map[string]string{
		"ticker":         "PETR4",
		"company_name":   "Petróleo Brasileiro S.A. - Petrobras",
		"sector":         "Petróleo, Gás e Biocombustíveis",
		"report_date":    "15/01/2025",
		"client_name":    "João Carlos Silva",
		"advisor_name":   "Maria Fernanda Costa",
		"risk_profile":   "Moderado",
		"context_price":  "R$ 35,00",
		"purchase_date":  "10/06/2024",
		"quantity":       "500",
		"invested_value": "17.500,00",
		"advisor_notes": "Ativo com boa liquidez e histórico de dividendos consistentes. " +
			"Recomenda-se manter posição atual e acompanhar resultados trimestrais.",
		"expected_value": "R$ 38,50",
		"live_timestamp": "04/02/2025 14:35",
	}
}

// Registry holds the static template catalog, one entry per
// (scenario, difficulty) pair.
type Registry struct {
	templates map[string]Template
	order     []string
}

// NewRegistry builds the registry with the built-in stock price scenario at
// every difficulty tier.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}
	r.add(Template{
		Name:            "stock_price_neutral",
		Difficulty:      DifficultyNeutral,
		SystemPrompt:    stockPriceSystemPrompt,
		UserPrompt:      stockPriceUserPrompt,
		ContextTemplate: stockPriceContextTemplate,
		ExpectedTool:    "get_stock_price",
		Variables:       stockPriceVariables(),
	})
	r.add(Template{
		Name:            "stock_price_counterfactual",
		Difficulty:      DifficultyCounterfactual,
		SystemPrompt:    stockPriceSystemPrompt,
		UserPrompt:      stockPriceUserPrompt,
		ContextTemplate: stockPriceContextTemplate,
		ExpectedTool:    "get_stock_price",
		Variables:       stockPriceVariables(),
	})
	r.add(Template{
		Name:            "stock_price_adversarial",
		Difficulty:      DifficultyAdversarial,
		Variant:         WithTimestamp,
		SystemPrompt:    stockPriceSystemPrompt,
		UserPrompt:      stockPriceUserPrompt,
		ContextTemplate: stockPriceContextTemplate,
		ExpectedTool:    "get_stock_price",
		Variables:       stockPriceVariables(),
	})
	r.add(Template{
		Name:            "stock_price_adversarial_no_ts",
		Difficulty:      DifficultyAdversarial,
		Variant:         WithoutTimestamp,
		SystemPrompt:    stockPriceSystemPrompt,
		UserPrompt:      stockPriceUserPrompt,
		ContextTemplate: stockPriceContextTemplate,
		ExpectedTool:    "get_stock_price",
		Variables:       stockPriceVariables(),
	})
	return r
}

func (r *Registry) add(t Template) {
	r.templates[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Get returns the template with the given name. Unknown names fail fast,
// listing the available templates.
func (r *Registry) Get(name string) (Template, error) {
	t, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownTemplate, name, strings.Join(r.order, ", "))
	}
	return t, nil
}

// List returns template names in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ForDifficulty resolves the canonical template for a difficulty tier. The
// variant only matters for the adversarial tier; an empty variant means
// WithTimestamp.
func (r *Registry) ForDifficulty(d Difficulty, v AdversarialVariant) (Template, error) {
	switch d {
	case DifficultyNeutral:
		return r.Get("stock_price_neutral")
	case DifficultyCounterfactual:
		return r.Get("stock_price_counterfactual")
	case DifficultyAdversarial:
		if v == WithoutTimestamp {
			return r.Get("stock_price_adversarial_no_ts")
		}
		return r.Get("stock_price_adversarial")
	}
	return Template{}, fmt.Errorf("unknown difficulty %q", d)
}
