// internal/prompt/templates_test.go
package prompt

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	names := reg.List()
	if len(names) == 0 {
		t.Fatal("expected at least one template")
	}
	found := false
	for _, name := range names {
		if name == "stock_price_neutral" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stock_price_neutral in %v", names)
	}
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	tmpl, err := reg.Get("stock_price_neutral")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if tmpl.ExpectedTool != "get_stock_price" {
		t.Fatalf("unexpected expected tool: %q", tmpl.ExpectedTool)
	}
	if tmpl.SystemPrompt == "" || tmpl.UserPrompt == "" || tmpl.ContextTemplate == "" {
		t.Fatal("template is missing prompt text")
	}
	if len(tmpl.Variables) == 0 {
		t.Fatal("template has no default variables")
	}
	if tmpl.Variables["context_price"] != "R$ 35,00" {
		t.Fatalf("unexpected trap value: %q", tmpl.Variables["context_price"])
	}
}

// TestRegistryGetUnknown verifies unknown names fail fast and the error lists
// the available templates.
func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("nonexistent_template")
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	if !strings.Contains(err.Error(), "stock_price_neutral") {
		t.Fatalf("expected error to list available templates, got %q", err.Error())
	}
}

func TestRegistryForDifficulty(t *testing.T) {
	reg := NewRegistry()
	cases := []struct {
		difficulty Difficulty
		variant    AdversarialVariant
		want       string
	}{
		{DifficultyNeutral, "", "stock_price_neutral"},
		{DifficultyCounterfactual, "", "stock_price_counterfactual"},
		{DifficultyAdversarial, WithTimestamp, "stock_price_adversarial"},
		{DifficultyAdversarial, "", "stock_price_adversarial"},
		{DifficultyAdversarial, WithoutTimestamp, "stock_price_adversarial_no_ts"},
	}
	for _, tc := range cases {
		tmpl, err := reg.ForDifficulty(tc.difficulty, tc.variant)
		if err != nil {
			t.Fatalf("ForDifficulty(%s, %s) error: %v", tc.difficulty, tc.variant, err)
		}
		if tmpl.Name != tc.want {
			t.Fatalf("ForDifficulty(%s, %s) = %q, want %q", tc.difficulty, tc.variant, tmpl.Name, tc.want)
		}
	}
}

// TestTemplatesRenderWithoutLeftoverPlaceholders renders every template with
// its own defaults and checks no known placeholder survives unsubstituted.
func TestTemplatesRenderWithoutLeftoverPlaceholders(t *testing.T) {
	placeholder := regexp.MustCompile(`\{[a-z_]+\}`)
	reg := NewRegistry()
	for _, name := range reg.List() {
		tmpl, err := reg.Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", name, err)
		}
		for _, text := range []string{tmpl.SystemPrompt, tmpl.UserPrompt, tmpl.ContextTemplate} {
			rendered := fillPlaceholders(text, tmpl.Variables)
			if m := placeholder.FindString(rendered); m != "" {
				t.Fatalf("template %q left placeholder %q unsubstituted", name, m)
			}
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(" Adversarial "); err != nil || d != DifficultyAdversarial {
		t.Fatalf("ParseDifficulty: got (%v, %v)", d, err)
	}
	if _, err := ParseDifficulty("impossible"); err == nil {
		t.Fatal("expected error for unknown difficulty")
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := ParseVariant(""); err != nil || v != WithTimestamp {
		t.Fatalf("ParseVariant empty: got (%v, %v)", v, err)
	}
	if v, err := ParseVariant("without_timestamp"); err != nil || v != WithoutTimestamp {
		t.Fatalf("ParseVariant: got (%v, %v)", v, err)
	}
	if _, err := ParseVariant("sometimes"); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}
