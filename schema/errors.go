package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidUser indicates an invalid user identifier.
	ErrInvalidUser = errors.New("invalid user")
	// ErrSessionNotFound indicates a requested session could not be found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoSessions indicates no sessions exist for the user.
	ErrNoSessions = errors.New("no sessions")
	// ErrActionNotFound indicates a requested action could not be found.
	ErrActionNotFound = errors.New("action not found")
	// ErrInvalidActionKind indicates an unknown action kind value.
	ErrInvalidActionKind = errors.New("invalid action kind")
	// ErrInvalidSafetyTier indicates an unknown safety tier value.
	ErrInvalidSafetyTier = errors.New("invalid safety tier")
	// ErrEmptyPrompt indicates the prompt was empty.
	ErrEmptyPrompt = errors.New("empty prompt")
	// ErrRunActive indicates the session already has a running stream.
	ErrRunActive = errors.New("run already active")
	// ErrNoRun indicates the session has no active run.
	ErrNoRun = errors.New("no active run")
	// ErrUpstreamUnavailable indicates no stream provider is configured.
	ErrUpstreamUnavailable = errors.New("upstream not configured")
	// ErrSurfaceUnavailable indicates no browser surface is configured.
	ErrSurfaceUnavailable = errors.New("surface not configured")
)
