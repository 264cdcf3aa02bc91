// internal/classify/extract.go
package classify

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// moneyPatterns match monetary amounts in model answers. They are tried
// in order and each captures the bare number in group 1.
var moneyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)R\$\s*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)(\d+[.,]\d{2})\s*(?:reais|BRL)`),
	regexp.MustCompile(`(?i)preço[^0-9]*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)cotação[^0-9]*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)(\d+[.,]\d{2})\s*(?:\(BRL\)|\(R\$\))`),
	regexp.MustCompile(`(?i)\*\*R\$\s*(\d+[.,]\d{2})\*\*`),
}

// currencyMarkers strips currency symbols and whitespace before parsing.
var currencyMarkers = regexp.MustCompile(`[R$\s]`)

// intentPatterns match answers that narrate a tool call instead of
// making one. They are applied to lowercased text.
var intentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`utilizarei.*função`),
	regexp.MustCompile(`usarei.*ferramenta`),
	regexp.MustCompile(`chamar.*get_stock`),
	regexp.MustCompile(`função.*get_stock`),
	regexp.MustCompile(`"tool":\s*"get_stock`),
	regexp.MustCompile(`vou.*consultar.*preço`),
}

// ExtractMoney returns the first monetary amount found in text, as
// written (for example "38,50"), or the empty string when no pattern
// matches.
func ExtractMoney(text string) string {
	for _, p := range moneyPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// NormalizeMoney parses a monetary string into a float for comparison.
// Currency markers are stripped, a comma is treated as the decimal
// separator, and when thousand separators leave more than one dot only
// the last one is kept as decimal. The second return is false when the
// value does not parse.
func NormalizeMoney(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	cleaned := currencyMarkers.ReplaceAllString(value, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if parts := strings.Split(cleaned, "."); len(parts) > 2 {
		cleaned = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ValuesMatch reports whether two amounts are equal within tolerance.
func ValuesMatch(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

// MentionsToolIntent reports whether the answer talks about invoking a
// tool, which without an actual call is a hallucinated invocation.
func MentionsToolIntent(text string) bool {
	lowered := strings.ToLower(text)
	for _, p := range intentPatterns {
		if p.MatchString(lowered) {
			return true
		}
	}
	return false
}
