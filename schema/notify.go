package schema

// TranscriptEvent represents appended transcript lines for a session.
type TranscriptEvent struct {
	UserID    UserID
	SessionID SessionID
	Lines     []string
}

// ActionEventType describes action lifecycle changes.
type ActionEventType string

const (
	// ActionEventProposed indicates an action was finalized for review.
	ActionEventProposed ActionEventType = "proposed"
	// ActionEventUpdated indicates an action's editable fields changed.
	ActionEventUpdated ActionEventType = "updated"
	// ActionEventState indicates an action state transition.
	ActionEventState ActionEventType = "state"
)

// ActionEvent represents a change to a proposed action.
type ActionEvent struct {
	UserID    UserID
	SessionID SessionID
	Type      ActionEventType
	Action    ActionSnapshot
}

// RunEventType describes run lifecycle changes.
type RunEventType string

const (
	// RunEventStarted indicates a run stream opened.
	RunEventStarted RunEventType = "started"
	// RunEventCompleted indicates a run stream finished.
	RunEventCompleted RunEventType = "completed"
	// RunEventFailed indicates a run stream failed.
	RunEventFailed RunEventType = "failed"
	// RunEventStopped indicates a run was cancelled by the user.
	RunEventStopped RunEventType = "stopped"
)

// RunEvent represents a change to a session's run.
type RunEvent struct {
	UserID    UserID
	SessionID SessionID
	RunID     RunID
	Type      RunEventType
	Message   string
}

// SessionEventType describes session lifecycle changes.
type SessionEventType string

const (
	// SessionEventCreated indicates a session was created.
	SessionEventCreated SessionEventType = "created"
	// SessionEventClosed indicates a session was closed.
	SessionEventClosed SessionEventType = "closed"
	// SessionEventActivated indicates a session became active.
	SessionEventActivated SessionEventType = "activated"
)

// SessionEvent represents a change to a session or session list.
type SessionEvent struct {
	UserID        UserID
	Type          SessionEventType
	Session       SessionSnapshot
	ActiveSession SessionID
}
