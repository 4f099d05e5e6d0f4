package schema

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Args is the canonical form of an action's argument string: either a
// single bare string (Text) or a set of typed key/value fields. Field
// values are string, float64, or bool.
type Args struct {
	Text   string         `json:"text,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// IsText reports whether the arguments reduced to a single bare string.
func (a Args) IsText() bool {
	return a.Fields == nil
}

// Selector returns the selector field, or the bare string when it looks
// like a selector.
func (a Args) Selector() string {
	if a.Fields != nil {
		if s, ok := a.Fields["selector"].(string); ok {
			return s
		}
		return ""
	}
	if isSelectorLike(a.Text) {
		return a.Text
	}
	return ""
}

// Value returns the value field as a string.
func (a Args) Value() (string, bool) {
	if a.Fields == nil {
		return "", false
	}
	v, ok := a.Fields["value"]
	if !ok {
		return "", false
	}
	return formatFieldValue(v), true
}

// Target returns the navigation target: the bare string, or a url/target
// field.
func (a Args) Target() string {
	if a.Fields == nil {
		return a.Text
	}
	for _, key := range []string{"url", "target"} {
		if s, ok := a.Fields[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

var numberLiteralRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// NormalizeArgs converts an action's raw argument string into canonical
// form. nameHint special-cases navigation-type actions, whose single bare
// argument is kept as a plain string. It never fails: every strategy
// falls through to the next, and total failure returns the trimmed,
// unquoted input as Text.
func NormalizeArgs(raw string, nameHint string) Args {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Args{Text: trimmed}
	}

	// Self-describing structured literal first. The closed union only
	// carries objects and strings; other JSON literals fall through.
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		switch v := decoded.(type) {
		case map[string]any:
			return Args{Fields: applyFieldAliases(v)}
		case string:
			return Args{Text: v}
		}
	}

	if isNavigateHint(nameHint) {
		return Args{Text: trimQuotes(trimmed)}
	}

	if fields := parseKeyValueList(trimmed); len(fields) > 0 {
		return Args{Fields: applyFieldAliases(fields)}
	}

	unquoted := trimQuotes(trimmed)
	if isSelectorLike(unquoted) {
		return Args{Fields: map[string]any{"selector": unquoted}}
	}
	return Args{Text: unquoted}
}

func isNavigateHint(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), "navigate")
}

func isSelectorLike(s string) bool {
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, ".")
}

// parseKeyValueList parses "key: value, key: value" pairs. Commas inside
// quotes do not split; malformed parts are skipped rather than failing
// the whole list.
func parseKeyValueList(s string) map[string]any {
	fields := make(map[string]any)
	for _, part := range splitOutsideQuotes(s, ',') {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = trimQuotes(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		fields[key] = coerceValue(strings.TrimSpace(value))
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func splitOutsideQuotes(s string, sep rune) []string {
	var parts []string
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		first := s[0]
		if (first == '\'' || first == '"') && s[len(s)-1] == first {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func coerceValue(s string) any {
	unquoted := trimQuotes(s)
	if unquoted != s {
		return unquoted
	}
	if numberLiteralRe.MatchString(s) {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// applyFieldAliases copies sel→selector and val→value when the canonical
// key is absent.
func applyFieldAliases(fields map[string]any) map[string]any {
	if v, ok := fields["sel"]; ok {
		if _, exists := fields["selector"]; !exists {
			fields["selector"] = v
		}
	}
	if v, ok := fields["val"]; ok {
		if _, exists := fields["value"]; !exists {
			fields["value"] = v
		}
	}
	return fields
}

func formatFieldValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
