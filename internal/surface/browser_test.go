package surface

import (
	"strings"
	"testing"
)

func TestSetValueScriptEscapesArguments(t *testing.T) {
	script, err := setValueScript(`#name`, `Robert"); alert("x`)
	if err != nil {
		t.Fatalf("build script: %v", err)
	}
	if !strings.Contains(script, `"#name"`) {
		t.Fatalf("selector not embedded: %s", script)
	}
	if !strings.Contains(script, `"Robert\"); alert(\"x"`) {
		t.Fatalf("value not escaped: %s", script)
	}
	if !strings.Contains(script, `dispatchEvent(new Event("input"`) {
		t.Fatalf("input event missing: %s", script)
	}
	if !strings.Contains(script, `dispatchEvent(new Event("change"`) {
		t.Fatalf("change event missing: %s", script)
	}
}
