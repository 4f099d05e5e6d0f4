package schema

// Session lifecycle.

// CreateSessionRequest describes a request to create a session.
type CreateSessionRequest struct {
	UserID    UserID
	Name      SessionName
	TargetURL string
}

// CreateSessionResponse reports the created session.
type CreateSessionResponse struct {
	Session SessionSnapshot
}

// CloseSessionRequest describes a request to close a session. Closing
// destroys the session's actions and transcript.
type CloseSessionRequest struct {
	UserID    UserID
	SessionID SessionID
}

// CloseSessionResponse reports the closed session snapshot.
type CloseSessionResponse struct {
	Session SessionSnapshot
}

// ListSessionsRequest describes a request to list sessions.
type ListSessionsRequest struct {
	UserID UserID
}

// ListSessionsResponse reports sessions and the active one.
type ListSessionsResponse struct {
	Sessions      []SessionSnapshot
	ActiveSession SessionID
}

// ActivateSessionRequest describes a request to activate a session.
type ActivateSessionRequest struct {
	UserID    UserID
	SessionID SessionID
}

// ActivateSessionResponse reports the activated session snapshot.
type ActivateSessionResponse struct {
	Session SessionSnapshot
}

// Runs.

// StartRunRequest describes a request to open the producer stream.
type StartRunRequest struct {
	UserID    UserID
	SessionID SessionID
	Prompt    string
}

// StartRunResponse reports the started run.
type StartRunResponse struct {
	RunID   RunID
	Session SessionSnapshot
}

// StopRunRequest describes a request to cancel the active run.
type StopRunRequest struct {
	UserID    UserID
	SessionID SessionID
}

// StopRunResponse reports the stopped run.
type StopRunResponse struct {
	RunID RunID
}

// Actions.

// ListActionsRequest describes a request to list a session's actions.
type ListActionsRequest struct {
	UserID    UserID
	SessionID SessionID
}

// ListActionsResponse reports actions in proposal order.
type ListActionsResponse struct {
	Actions []ActionSnapshot
}

// GetActionRequest describes a request for one action.
type GetActionRequest struct {
	UserID    UserID
	SessionID SessionID
	ActionID  ActionID
}

// GetActionResponse reports the action snapshot.
type GetActionResponse struct {
	Action ActionSnapshot
}

// ApproveActionRequest describes a human approval.
type ApproveActionRequest struct {
	UserID    UserID
	SessionID SessionID
	ActionID  ActionID
}

// ApproveActionResponse reports the action after the transition. Applied
// is false when the action was not in a decidable state (no-op).
type ApproveActionResponse struct {
	Action  ActionSnapshot
	Applied bool
}

// RejectActionRequest describes a human rejection.
type RejectActionRequest struct {
	UserID    UserID
	SessionID SessionID
	ActionID  ActionID
}

// RejectActionResponse reports the action after the transition.
type RejectActionResponse struct {
	Action  ActionSnapshot
	Applied bool
}

// EditActionRequest describes a human edit. Nil fields are left
// unchanged; the state remains proposed.
type EditActionRequest struct {
	UserID      UserID
	SessionID   SessionID
	ActionID    ActionID
	Title       *string
	Description *string
	Rationale   *string
	RawArgs     *string
}

// EditActionResponse reports the action after the edit.
type EditActionResponse struct {
	Action  ActionSnapshot
	Applied bool
}

// Transcript.

// GetTranscriptRequest describes a request for transcript lines.
type GetTranscriptRequest struct {
	UserID    UserID
	SessionID SessionID
	Limit     int
}

// GetTranscriptResponse reports the transcript view.
type GetTranscriptResponse struct {
	Transcript TranscriptSnapshot
}

// ScrollTranscriptRequest adjusts the transcript scroll offset.
type ScrollTranscriptRequest struct {
	UserID    UserID
	SessionID SessionID
	Delta     int
	Limit     int
}

// ScrollTranscriptResponse reports the transcript view after scrolling.
type ScrollTranscriptResponse struct {
	Transcript TranscriptSnapshot
}
