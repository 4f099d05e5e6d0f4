package schema

import "time"

// UserID identifies a user in the system.
type UserID string

// SessionID identifies a conversation session.
type SessionID string

// SessionName is the user-facing name of a session.
type SessionName string

// ActionID identifies a proposed action within a session.
type ActionID string

// RunID identifies one upstream run stream.
type RunID string

// ActionKind is the broad category of a proposed action.
type ActionKind string

const (
	// ActionKindCode proposes file edits.
	ActionKindCode ActionKind = "code"
	// ActionKindCommand proposes a shell command.
	ActionKindCommand ActionKind = "command"
	// ActionKindAPI proposes an interface call (navigate, click, set_value, acks).
	ActionKindAPI ActionKind = "api"
	// ActionKindPlan proposes a plan step with no direct effect.
	ActionKindPlan ActionKind = "plan"
)

// SafetyTier is the producer-assigned risk label of a proposed action.
// It is consumed as delivered and never recomputed locally.
type SafetyTier string

const (
	// SafetyLow marks actions safe to surface with minimal friction.
	SafetyLow SafetyTier = "low"
	// SafetyMedium marks actions that deserve a closer look.
	SafetyMedium SafetyTier = "medium"
	// SafetyHigh marks actions that must be read before approval.
	SafetyHigh SafetyTier = "high"
)

// FileChange describes one file touched by a code action.
type FileChange struct {
	Path    string `json:"path"`
	Kind    string `json:"kind,omitempty"`
	Content string `json:"content,omitempty"`
}

// CallSpec is the interface-call payload of an api action.
type CallSpec struct {
	// Name is the action-table entry to dispatch (case-insensitive).
	Name string `json:"name"`
	// RawArgs is the argument string as delivered by the producer.
	// It is normalized at dispatch time, not at proposal time.
	RawArgs string `json:"args,omitempty"`
}

// CommandSpec is the shell-command payload of a command action.
type CommandSpec struct {
	Line       string `json:"line"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// ProposedAction is one candidate operation emitted by the agent.
// All fields except the editable ones (Title, Description, Rationale,
// APICall.RawArgs) are immutable after finalization.
type ProposedAction struct {
	ID          ActionID   `json:"id"`
	Kind        ActionKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Rationale   string     `json:"rationale,omitempty"`
	Safety      SafetyTier `json:"safety"`

	// Payload variant. Only the field matching Kind is consulted at
	// dispatch time; a mismatch dispatches as a no-op.
	Files   []FileChange `json:"files,omitempty"`
	APICall *CallSpec    `json:"api_call,omitempty"`
	Command *CommandSpec `json:"command,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ActionStatus is the mutable execution record paired 1:1 with a
// ProposedAction.
type ActionStatus struct {
	State  ActionState `json:"state"`
	Logs   []string    `json:"logs,omitempty"`
	Result string      `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ActionSnapshot is the transport view of an action and its status.
type ActionSnapshot struct {
	Action ProposedAction `json:"action"`
	Status ActionStatus   `json:"status"`
}

// SessionSnapshot is the transport view of a session.
type SessionSnapshot struct {
	ID        SessionID   `json:"id"`
	Name      SessionName `json:"name"`
	TargetURL string      `json:"target_url,omitempty"`
	RunActive bool        `json:"run_active"`
	Actions   int         `json:"actions"`
	Active    bool        `json:"active"`
}

// TranscriptSnapshot is a view of a session's transcript scrollback.
type TranscriptSnapshot struct {
	Lines        []string `json:"lines"`
	TotalLines   int      `json:"total_lines"`
	ScrollOffset int      `json:"scroll_offset"`
	AtBottom     bool     `json:"at_bottom"`
}

// DefaultTranscriptMaxLines bounds transcript scrollback when the service
// config does not override it.
const DefaultTranscriptMaxLines = 10000
