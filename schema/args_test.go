package schema

import "testing"

func TestNormalizeArgsKeyValueList(t *testing.T) {
	args := NormalizeArgs(`x: 1, y: true, name: "Bob"`, "")
	if args.IsText() {
		t.Fatalf("expected fields, got text %q", args.Text)
	}
	if got := args.Fields["x"]; got != float64(1) {
		t.Fatalf("x = %v (%T)", got, got)
	}
	if got := args.Fields["y"]; got != true {
		t.Fatalf("y = %v", got)
	}
	if got := args.Fields["name"]; got != "Bob" {
		t.Fatalf("name = %v", got)
	}
}

func TestNormalizeArgsSelectorShorthand(t *testing.T) {
	args := NormalizeArgs("#submit-btn", "")
	if args.IsText() {
		t.Fatalf("expected selector field")
	}
	if got := args.Fields["selector"]; got != "#submit-btn" {
		t.Fatalf("selector = %v", got)
	}
	if args.Selector() != "#submit-btn" {
		t.Fatalf("Selector() = %q", args.Selector())
	}
}

func TestNormalizeArgsQuotedSelectorShorthand(t *testing.T) {
	args := NormalizeArgs("'#go'", "")
	if got := args.Fields["selector"]; got != "#go" {
		t.Fatalf("selector = %v", got)
	}
}

func TestNormalizeArgsNavigatePassthrough(t *testing.T) {
	args := NormalizeArgs("https://example.com", "navigate")
	if !args.IsText() || args.Text != "https://example.com" {
		t.Fatalf("expected passthrough, got %+v", args)
	}
	if args.Target() != "https://example.com" {
		t.Fatalf("Target() = %q", args.Target())
	}
}

func TestNormalizeArgsJSONObject(t *testing.T) {
	args := NormalizeArgs(`{"selector": "#a", "value": 5}`, "")
	if args.IsText() {
		t.Fatalf("expected fields")
	}
	if args.Selector() != "#a" {
		t.Fatalf("selector = %q", args.Selector())
	}
	value, ok := args.Value()
	if !ok || value != "5" {
		t.Fatalf("value = %q ok=%v", value, ok)
	}
}

func TestNormalizeArgsAliases(t *testing.T) {
	args := NormalizeArgs("sel: '#go', val: 'hello'", "")
	if args.Selector() != "#go" {
		t.Fatalf("selector = %q", args.Selector())
	}
	value, ok := args.Value()
	if !ok || value != "hello" {
		t.Fatalf("value = %q ok=%v", value, ok)
	}
}

func TestNormalizeArgsAliasDoesNotOverride(t *testing.T) {
	args := NormalizeArgs("sel: '#a', selector: '#b'", "")
	if args.Selector() != "#b" {
		t.Fatalf("expected canonical key to win, got %q", args.Selector())
	}
}

func TestNormalizeArgsQuotedCommaValue(t *testing.T) {
	args := NormalizeArgs(`name: "Doe, Jane", x: 2`, "")
	if got := args.Fields["name"]; got != "Doe, Jane" {
		t.Fatalf("name = %v", got)
	}
	if got := args.Fields["x"]; got != float64(2) {
		t.Fatalf("x = %v", got)
	}
}

func TestNormalizeArgsPlainStringFallback(t *testing.T) {
	args := NormalizeArgs("  just some words  ", "")
	if !args.IsText() || args.Text != "just some words" {
		t.Fatalf("expected trimmed text, got %+v", args)
	}
}

func TestNormalizeArgsEmpty(t *testing.T) {
	args := NormalizeArgs("", "")
	if !args.IsText() || args.Text != "" {
		t.Fatalf("expected empty text, got %+v", args)
	}
}

func TestNormalizeArgsNegativeAndDecimalNumbers(t *testing.T) {
	args := NormalizeArgs("dx: -3, ratio: 1.5", "")
	if got := args.Fields["dx"]; got != float64(-3) {
		t.Fatalf("dx = %v", got)
	}
	if got := args.Fields["ratio"]; got != float64(1.5) {
		t.Fatalf("ratio = %v", got)
	}
}

func TestNormalizeArgsQuotedNumberStaysString(t *testing.T) {
	args := NormalizeArgs(`zip: "02134"`, "")
	if got := args.Fields["zip"]; got != "02134" {
		t.Fatalf("zip = %v (%T)", got, got)
	}
}

func TestNormalizeArgsURLValueKeepsColons(t *testing.T) {
	args := NormalizeArgs("url: https://example.com/x", "")
	if got := args.Fields["url"]; got != "https://example.com/x" {
		t.Fatalf("url = %v", got)
	}
	if args.Target() != "https://example.com/x" {
		t.Fatalf("Target() = %q", args.Target())
	}
}
