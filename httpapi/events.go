package httpapi

import (
	"time"

	"pkt.systems/tiller/internal/eventbus"
	"pkt.systems/tiller/schema"
)

// StreamEvent is the wire form of one SSE event sent to UI clients.
type StreamEvent struct {
	Seq           uint64                  `json:"seq,omitempty"`
	Type          string                  `json:"type"`
	SessionID     schema.SessionID        `json:"session_id,omitempty"`
	Lines         []string                `json:"lines,omitempty"`
	ActionEvent   string                  `json:"action_event,omitempty"`
	Action        *schema.ActionSnapshot  `json:"action,omitempty"`
	RunEvent      string                  `json:"run_event,omitempty"`
	RunID         schema.RunID            `json:"run_id,omitempty"`
	Message       string                  `json:"message,omitempty"`
	SessionEvent  string                  `json:"session_event,omitempty"`
	Session       *schema.SessionSnapshot `json:"session,omitempty"`
	ActiveSession schema.SessionID        `json:"active_session,omitempty"`
	Snapshot      *SnapshotPayload        `json:"snapshot,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// SnapshotPayload seeds client state on stream connect.
type SnapshotPayload struct {
	Sessions      []schema.SessionSnapshot                       `json:"sessions"`
	ActiveSession schema.SessionID                               `json:"active_session"`
	Transcripts   map[schema.SessionID]schema.TranscriptSnapshot `json:"transcripts"`
	Actions       map[schema.SessionID][]schema.ActionSnapshot   `json:"actions"`
}

// wireEvent converts a bus event into its SSE wire form.
func wireEvent(event eventbus.Event) StreamEvent {
	out := StreamEvent{
		Seq:       event.Seq,
		Type:      string(event.Type),
		Timestamp: time.Now(),
	}
	switch event.Type {
	case eventbus.EventAction:
		action := event.Action.Action
		out.SessionID = event.Action.SessionID
		out.ActionEvent = string(event.Action.Type)
		out.Action = &action
	case eventbus.EventTranscript:
		out.SessionID = event.Transcript.SessionID
		out.Lines = event.Transcript.Lines
	case eventbus.EventRun:
		out.SessionID = event.Run.SessionID
		out.RunEvent = string(event.Run.Type)
		out.RunID = event.Run.RunID
		out.Message = event.Run.Message
	case eventbus.EventSession:
		sess := event.Session.Session
		out.SessionEvent = string(event.Session.Type)
		out.SessionID = sess.ID
		out.Session = &sess
		out.ActiveSession = event.Session.ActiveSession
	}
	return out
}
