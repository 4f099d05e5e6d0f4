package tiller

import (
	"pkt.systems/tiller/core"
	"pkt.systems/tiller/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnActionEvent(event schema.ActionEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnActionEvent(event)
	}
}

func (f eventFanout) OnTranscript(event schema.TranscriptEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTranscript(event)
	}
}

func (f eventFanout) OnRunEvent(event schema.RunEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnRunEvent(event)
	}
}

func (f eventFanout) OnSessionEvent(event schema.SessionEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSessionEvent(event)
	}
}
