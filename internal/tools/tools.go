// internal/tools/tools.go

// Package tools defines the catalog of functions offered to models during an
// experiment and the deterministic mock backend that answers them. The
// catalog follows the Ollama tool-calling format: a single correct tool for
// the scenario (get_stock_price) surrounded by plausible distractors.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// ToolSet selects how many distractor tools accompany the target tool.
type ToolSet string

const (
	// SetBase offers four tools: the target plus three distractors.
	SetBase ToolSet = "base"
	// SetExpanded offers eight tools: the target plus seven distractors.
	SetExpanded ToolSet = "expanded"
)

// ParseToolSet normalizes a user-supplied tool set name. An empty string
// resolves to the base set.
func ParseToolSet(raw string) (ToolSet, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(SetBase):
		return SetBase, nil
	case string(SetExpanded):
		return SetExpanded, nil
	}
	return "", fmt.Errorf("unknown tool set %q (valid: base, expanded)", raw)
}

// Definition describes a callable tool in the JSON-Schema shape the Ollama
// chat API expects.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Executor runs a named tool with parsed arguments and returns its payload.
// Implementations report domain-level failures (unknown ticker, unknown
// tool) inside the payload itself so the model still receives tool output it
// can react to; the error return is reserved for infrastructure failures.
type Executor func(ctx context.Context, name string, args map[string]any) (map[string]any, error)

// tickerParameters builds the common single-ticker argument schema.
func tickerParameters(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"ticker"},
	}
}

var baseCatalog = []Definition{
	{
		Name:        "get_stock_price",
		Description: "Obtém o preço atual de uma ação pelo seu ticker/símbolo. Use esta ferramenta para consultar cotações em tempo real.",
		Parameters:  tickerParameters("O símbolo/ticker da ação (ex: PETR4, VALE3, AAPL)"),
	},
	{
		Name:        "get_company_profile",
		Description: "Obtém informações detalhadas sobre uma empresa (setor, descrição, data de fundação, número de funcionários).",
		Parameters:  tickerParameters("O símbolo/ticker da ação"),
	},
	{
		Name:        "get_portfolio_positions",
		Description: "Lista todas as posições de um cliente em sua carteira de investimentos.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"client_id": map[string]any{
					"type":        "string",
					"description": "O identificador único do cliente",
				},
			},
			"required": []string{"client_id"},
		},
	},
	{
		Name:        "get_fx_rate",
		Description: "Obtém a taxa de câmbio atual entre duas moedas.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"from_currency": map[string]any{
					"type":        "string",
					"description": "Moeda de origem (ex: USD, EUR, BRL)",
				},
				"to_currency": map[string]any{
					"type":        "string",
					"description": "Moeda de destino (ex: USD, EUR, BRL)",
				},
			},
			"required": []string{"from_currency", "to_currency"},
		},
	},
}

var expandedExtras = []Definition{
	{
		Name:        "get_stock_dividend_history",
		Description: "Obtém o histórico de dividendos pagos por uma ação.",
		Parameters:  tickerParameters("O símbolo/ticker da ação"),
	},
	{
		Name:        "get_analyst_rating",
		Description: "Obtém a recomendação e nota dos analistas para uma ação.",
		Parameters:  tickerParameters("O símbolo/ticker da ação"),
	},
	{
		Name:        "get_market_news",
		Description: "Busca as últimas notícias do mercado sobre uma ação.",
		Parameters:  tickerParameters("O símbolo/ticker da ação"),
	},
	{
		Name:        "get_current_datetime",
		Description: "Retorna a data e hora atuais do sistema.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	},
}

// Catalog returns the tool definitions for the given set. The slice is
// freshly allocated on every call with the target tool at index zero;
// callers must treat the parameter schemas as read-only.
func Catalog(set ToolSet) []Definition {
	defs := make([]Definition, 0, len(baseCatalog)+len(expandedExtras))
	defs = append(defs, baseCatalog...)
	if set == SetExpanded {
		defs = append(defs, expandedExtras...)
	}
	return defs
}

// ByName looks a tool up across both sets.
func ByName(name string) (Definition, bool) {
	for _, def := range baseCatalog {
		if def.Name == name {
			return def, true
		}
	}
	for _, def := range expandedExtras {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
