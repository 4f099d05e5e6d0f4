package schema

// AgentMarker prefixes agent prose lines (markdown-enabled).
const AgentMarker = "\x1c"

// ReasoningMarker prefixes reasoning/thought lines.
const ReasoningMarker = "\x1d"

// ValidatorMarker prefixes validator note lines.
const ValidatorMarker = "\x1e"

// ActionMarker prefixes action lifecycle lines.
const ActionMarker = "\x1a"

// ErrorMarker prefixes upstream error lines.
const ErrorMarker = "\x1f"
