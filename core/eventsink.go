package core

import "pkt.systems/tiller/schema"

// EventSink receives session, run, transcript, and action events from
// the core service.
type EventSink interface {
	OnActionEvent(event schema.ActionEvent)
	OnTranscript(event schema.TranscriptEvent)
	OnRunEvent(event schema.RunEvent)
	OnSessionEvent(event schema.SessionEvent)
}
