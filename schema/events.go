package schema

import "encoding/json"

// EventKind is the top-level kind of one decoded stream frame.
type EventKind string

const (
	// EventRunStarted indicates the producer opened a run.
	EventRunStarted EventKind = "run_started"
	// EventThinking carries free-form reasoning text.
	EventThinking EventKind = "thinking"
	// EventContentChunk carries tagged action text (the tag mini-language).
	EventContentChunk EventKind = "content_chunk"
	// EventReasoningStep carries one numbered reasoning step.
	EventReasoningStep EventKind = "reasoning_step"
	// EventToolCallStarted announces a structured action proposal.
	EventToolCallStarted EventKind = "tool_call_started"
	// EventToolCallCompleted reports a producer-side tool completion.
	EventToolCallCompleted EventKind = "tool_call_completed"
	// EventRunCompleted indicates the run finished.
	EventRunCompleted EventKind = "run_completed"
	// EventRunError indicates the run failed upstream.
	EventRunError EventKind = "run_error"
	// EventStreamCompleted indicates the stream is done.
	EventStreamCompleted EventKind = "stream_completed"
	// EventStreamError indicates a stream-level error.
	EventStreamError EventKind = "stream_error"
)

// StreamEvent is one decoded unit from the frame decoder. Kinds outside
// the constant set above are carried through and treated as inert by the
// consumer.
type StreamEvent struct {
	Kind      EventKind       `json:"kind"`
	SessionID SessionID       `json:"session_id,omitempty"`
	RunID     RunID           `json:"run_id,omitempty"`
	Chunk     string          `json:"chunk,omitempty"`
	Message   string          `json:"message,omitempty"`
	Step      int             `json:"step,omitempty"`
	Action    *ActionPayload  `json:"action,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// ActionPayload is the structured proposal attached to tool_call_started
// events. Producers that emit tagged text instead only fill Name/Args via
// the tag parser.
type ActionPayload struct {
	Kind        string       `json:"kind,omitempty"`
	Safety      string       `json:"safety,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Rationale   string       `json:"rationale,omitempty"`
	Name        string       `json:"name,omitempty"`
	Args        string       `json:"args,omitempty"`
	Files       []FileChange `json:"files,omitempty"`
	Command     string       `json:"command,omitempty"`
}
