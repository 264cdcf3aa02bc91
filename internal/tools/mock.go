// internal/tools/mock.go
package tools

import (
	"context"
	"fmt"
	"strings"
)

// defaultKey indexes the canned fallback payload for a tool.
const defaultKey = "DEFAULT"

// mockResponses holds the canned payload per tool, keyed by the argument the
// tool selects on (uppercased ticker or currency pair). Values are frozen so
// repeated runs stay comparable; the protocol never touches live market data.
var mockResponses = map[string]map[string]map[string]any{
	"get_stock_price": {
		"PETR4":    {"ticker": "PETR4", "price": 38.50, "currency": "BRL", "change": "+1.2%"},
		"VALE3":    {"ticker": "VALE3", "price": 67.80, "currency": "BRL", "change": "-0.5%"},
		"AAPL":     {"ticker": "AAPL", "price": 185.50, "currency": "USD", "change": "+0.8%"},
		defaultKey: {"ticker": "UNKNOWN", "price": 0.0, "currency": "BRL", "error": "Ticker não encontrado"},
	},
	"get_company_profile": {
		"PETR4": {
			"ticker": "PETR4",
			"name":   "Petróleo Brasileiro S.A. - Petrobras",
			"sector": "Petróleo, Gás e Biocombustíveis",
			"founded": "1953",
		},
		defaultKey: {"error": "Empresa não encontrada"},
	},
	"get_portfolio_positions": {
		defaultKey: {"error": "Cliente não encontrado"},
	},
	"get_fx_rate": {
		"USD/BRL":  {"pair": "USD/BRL", "rate": 4.95, "timestamp": "2025-01-29T10:00:00Z"},
		"EUR/BRL":  {"pair": "EUR/BRL", "rate": 5.35, "timestamp": "2025-01-29T10:00:00Z"},
		defaultKey: {"error": "Par de moedas não suportado"},
	},
	"get_stock_dividend_history": {
		"PETR4": {
			"ticker": "PETR4",
			"dividends": []map[string]any{
				{"date": "2024-12-15", "type": "JCP", "value_per_share": 1.25},
				{"date": "2024-08-20", "type": "Dividendo", "value_per_share": 0.85},
				{"date": "2024-05-10", "type": "JCP", "value_per_share": 1.10},
			},
		},
		defaultKey: {"error": "Ticker não encontrado"},
	},
	"get_analyst_rating": {
		"PETR4": {
			"ticker":         "PETR4",
			"consensus":      "Compra",
			"target_price":   42.00,
			"total_analysts": 12,
			"buy":            8,
			"hold":           3,
			"sell":           1,
		},
		defaultKey: {"error": "Ticker não encontrado"},
	},
	"get_market_news": {
		"PETR4": {
			"ticker": "PETR4",
			"news": []map[string]any{
				{"title": "Petrobras anuncia novo plano de investimentos", "date": "2025-02-03", "source": "InfoMoney"},
				{"title": "Produção de petróleo atinge recorde no 4T24", "date": "2025-01-28", "source": "Valor Econômico"},
			},
		},
		defaultKey: {"error": "Ticker não encontrado"},
	},
	"get_current_datetime": {
		defaultKey: {"datetime": "2025-02-04T14:35:00-03:00", "timezone": "America/Sao_Paulo"},
	},
}

// tickerKeyedTools marks the tools whose mock payload is selected by the
// uppercased ticker argument.
var tickerKeyedTools = map[string]bool{
	"get_stock_price":            true,
	"get_company_profile":        true,
	"get_stock_dividend_history": true,
	"get_analyst_rating":         true,
	"get_market_news":            true,
}

// MockBackend serves deterministic canned tool results for experiment runs.
type MockBackend struct{}

// NewMockBackend returns a backend whose Execute method satisfies Executor.
func NewMockBackend() *MockBackend { return &MockBackend{} }

// Execute looks up the canned payload for a tool call. Unknown tools and
// unknown lookup keys produce error payloads rather than Go errors so the
// model sees a tool message it can react to.
func (b *MockBackend) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	mocks, ok := mockResponses[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("Tool '%s' não encontrada", name)}, nil
	}
	if tickerKeyedTools[name] {
		ticker := strings.ToUpper(stringArg(args, "ticker"))
		if payload, ok := mocks[ticker]; ok {
			return payload, nil
		}
		return mocks[defaultKey], nil
	}
	if name == "get_fx_rate" {
		pair := strings.ToUpper(stringArg(args, "from_currency")) + "/" + strings.ToUpper(stringArg(args, "to_currency"))
		if payload, ok := mocks[pair]; ok {
			return payload, nil
		}
		return mocks[defaultKey], nil
	}
	if payload, ok := mocks[defaultKey]; ok {
		return payload, nil
	}
	return map[string]any{"error": "Resposta não disponível"}, nil
}

// stringArg reads a string argument, tolerating absent or non-string values.
func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if value, ok := args[key]; ok {
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
