package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedTags holds the fields extracted from one text payload. A nil
// field means the tag was absent; parsing never fails.
type ParsedTags struct {
	Step      *int
	Thought   *string
	Validator *string
	Action    *ActionCall
}

// ActionCall is an action invocation extracted from an Action tag.
type ActionCall struct {
	Name string
	Args string
}

// RawActionName is the fallback name used when the tag content does not
// match the name(args) call shape.
const RawActionName = "raw"

var (
	stepsTagRe     = regexp.MustCompile(`(?is)<\s*steps\s*>(.*?)<\s*/\s*steps\s*>`)
	thoughtTagRe   = regexp.MustCompile(`(?is)<\s*thought\s*>(.*?)<\s*/\s*thought\s*>`)
	validatorTagRe = regexp.MustCompile(`(?is)<\s*validator\s*>(.*?)<\s*/\s*validator\s*>`)
	actionTagRe    = regexp.MustCompile(`(?is)<\s*action\s*>(.*?)<\s*/\s*action\s*>`)
	callShapeRe    = regexp.MustCompile(`(?s)^\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\((.*)\)\s*$`)
)

// ParseTags extracts the step counter, thought, validator note, and action
// invocation from raw text. Matching is case-insensitive and whitespace
// tolerant; only the first occurrence of each tag is used.
func ParseTags(text string) ParsedTags {
	var tags ParsedTags
	if text == "" {
		return tags
	}
	if m := stepsTagRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(m[1])); err == nil {
			tags.Step = &n
		}
	}
	if m := thoughtTagRe.FindStringSubmatch(text); m != nil {
		thought := strings.TrimSpace(m[1])
		tags.Thought = &thought
	}
	if m := validatorTagRe.FindStringSubmatch(text); m != nil {
		validator := strings.TrimSpace(m[1])
		tags.Validator = &validator
	}
	if m := actionTagRe.FindStringSubmatch(text); m != nil {
		call := parseActionCall(m[1])
		tags.Action = &call
	}
	return tags
}

// StripTags removes all recognized tag blocks from text, leaving the
// surrounding prose for transcript display.
func StripTags(text string) string {
	for _, re := range []*regexp.Regexp{stepsTagRe, thoughtTagRe, validatorTagRe, actionTagRe} {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

func parseActionCall(content string) ActionCall {
	trimmed := strings.TrimSpace(content)
	if m := callShapeRe.FindStringSubmatch(trimmed); m != nil {
		return ActionCall{Name: m[1], Args: m[2]}
	}
	return ActionCall{Name: RawActionName, Args: trimmed}
}
