package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tiller/internal/logx"
	"pkt.systems/tiller/schema"
)

// consumeRun reads the producer stream until it ends. Each event is fully
// processed before the next read; approved executions run elsewhere and
// never block this loop.
func (s *service) consumeRun(ctx context.Context, userID schema.UserID, sessionID schema.SessionID, run *runState, stream EventStream) {
	log := logx.WithRun(logx.WithUserSession(ctx, userID, sessionID), run.id)
	defer func() { _ = stream.Close() }()

	var streamErr error
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				streamErr = err
			}
			break
		}
		s.handleStreamEvent(log, userID, sessionID, event)
	}

	s.mu.Lock()
	stopped := run.stopped
	if sess := s.sessionLocked(userID, sessionID); sess != nil && sess.run == run {
		sess.run = nil
	}
	s.mu.Unlock()

	event := schema.RunEvent{UserID: userID, SessionID: sessionID, RunID: run.id}
	switch {
	case stopped || errors.Is(streamErr, context.Canceled):
		// An intentional stop is not an error.
		event.Type = schema.RunEventStopped
		s.appendTranscript(userID, sessionID,
			schema.ActionMarker+fmt.Sprintf("%s run stopped", time.Now().Format("15:04:05")))
		log.Info("service run stopped")
	case streamErr != nil:
		event.Type = schema.RunEventFailed
		event.Message = streamErr.Error()
		s.appendTranscript(userID, sessionID,
			schema.ErrorMarker+fmt.Sprintf("run failed: %v", streamErr))
		log.Warn("service run failed", "err", streamErr)
	default:
		event.Type = schema.RunEventCompleted
		s.appendTranscript(userID, sessionID,
			schema.ActionMarker+fmt.Sprintf("%s run completed", time.Now().Format("15:04:05")))
		log.Info("service run completed")
	}
	s.emitRunEvent(event)
	s.persistUser(log, userID)
}

// handleStreamEvent routes one decoded event. Unknown kinds are inert.
func (s *service) handleStreamEvent(log pslog.Logger, userID schema.UserID, sessionID schema.SessionID, event schema.StreamEvent) {
	switch event.Kind {
	case schema.EventRunStarted:
		log.Debug("stream run started", "upstream_run", event.RunID)
	case schema.EventThinking:
		s.appendMarkedLines(userID, sessionID, schema.ReasoningMarker, event.Message)
	case schema.EventReasoningStep:
		line := strings.TrimSpace(event.Message)
		if event.Step > 0 {
			line = fmt.Sprintf("step %d: %s", event.Step, line)
		}
		s.appendMarkedLines(userID, sessionID, schema.ReasoningMarker, line)
	case schema.EventContentChunk:
		s.handleContentChunk(log, userID, sessionID, event.Chunk)
	case schema.EventToolCallStarted:
		if event.Action == nil {
			log.Debug("stream tool call without payload")
			return
		}
		action := s.actionFromPayload(*event.Action)
		s.proposeAction(log, userID, sessionID, action)
	case schema.EventToolCallCompleted:
		s.appendMarkedLines(userID, sessionID, schema.ActionMarker, event.Message)
	case schema.EventRunCompleted:
		log.Debug("stream run completed", "upstream_run", event.RunID)
	case schema.EventRunError, schema.EventStreamError:
		message := strings.TrimSpace(event.Message)
		if message == "" {
			message = "upstream error"
		}
		s.appendMarkedLines(userID, sessionID, schema.ErrorMarker, message)
		log.Warn("stream error event", "kind", event.Kind, "message", message)
	case schema.EventStreamCompleted:
		log.Debug("stream completed event")
	default:
		log.Debug("stream unknown event kind", "kind", event.Kind)
	}
}

// handleContentChunk extracts tagged fields from one chunk of agent text.
func (s *service) handleContentChunk(log pslog.Logger, userID schema.UserID, sessionID schema.SessionID, chunk string) {
	if strings.TrimSpace(chunk) == "" {
		return
	}
	tags := schema.ParseTags(chunk)
	if tags.Step != nil {
		s.appendMarkedLines(userID, sessionID, schema.ReasoningMarker, fmt.Sprintf("step %d", *tags.Step))
	}
	if tags.Thought != nil {
		s.appendMarkedLines(userID, sessionID, schema.ReasoningMarker, *tags.Thought)
	}
	if tags.Validator != nil {
		s.appendMarkedLines(userID, sessionID, schema.ValidatorMarker, *tags.Validator)
	}
	if prose := schema.StripTags(chunk); prose != "" {
		s.appendMarkedLines(userID, sessionID, schema.AgentMarker, prose)
	}
	if tags.Action != nil {
		action := s.actionFromCall(*tags.Action)
		s.proposeAction(log, userID, sessionID, action)
	}
}

// actionFromCall builds a proposal from a tag-derived invocation. Tagged
// text carries no kind or safety tier, so proposals default to api calls
// at the configured tier.
func (s *service) actionFromCall(call schema.ActionCall) schema.ProposedAction {
	return schema.ProposedAction{
		ID:        schema.ActionID(newID()),
		Kind:      schema.ActionKindAPI,
		Title:     call.Name,
		Safety:    s.cfg.DefaultSafety,
		APICall:   &schema.CallSpec{Name: call.Name, RawArgs: call.Args},
		CreatedAt: time.Now(),
	}
}

// actionFromPayload builds a proposal from a structured tool call. The
// producer's safety tier is kept as delivered; only absent fields get
// defaults.
func (s *service) actionFromPayload(payload schema.ActionPayload) schema.ProposedAction {
	kind, err := schema.NormalizeActionKind(payload.Kind)
	if err != nil {
		kind = schema.ActionKindAPI
	}
	safety, err := schema.NormalizeSafetyTier(payload.Safety)
	if err != nil {
		safety = s.cfg.DefaultSafety
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = payload.Name
	}
	action := schema.ProposedAction{
		ID:          schema.ActionID(newID()),
		Kind:        kind,
		Title:       title,
		Description: payload.Description,
		Rationale:   payload.Rationale,
		Safety:      safety,
		Files:       append([]schema.FileChange(nil), payload.Files...),
		CreatedAt:   time.Now(),
	}
	if strings.TrimSpace(payload.Name) != "" {
		action.APICall = &schema.CallSpec{Name: payload.Name, RawArgs: payload.Args}
	}
	if strings.TrimSpace(payload.Command) != "" {
		action.Command = &schema.CommandSpec{Line: payload.Command}
	}
	return action
}

// proposeAction records a new action and finalizes it for review. The
// draft and proposed transitions happen in one atomic step; nothing
// observes the draft from outside.
func (s *service) proposeAction(log pslog.Logger, userID schema.UserID, sessionID schema.SessionID, action schema.ProposedAction) {
	rec := &actionRecord{action: action, status: schema.ActionStatus{State: schema.StateDraft}}
	rec.status.State = schema.StateProposed

	s.mu.Lock()
	sess := s.sessionLocked(userID, sessionID)
	if sess == nil {
		s.mu.Unlock()
		return
	}
	sess.actions[action.ID] = rec
	sess.actionOrder = append(sess.actionOrder, action.ID)
	snapshot := rec.snapshot()
	s.mu.Unlock()

	logx.WithAction(log, action.ID).Info("service action proposed",
		"action_kind", action.Kind, "safety", action.Safety, "title", action.Title)
	s.emitActionEvent(schema.ActionEvent{
		UserID:    userID,
		SessionID: sessionID,
		Type:      schema.ActionEventProposed,
		Action:    snapshot,
	})
	s.appendTranscript(userID, sessionID,
		schema.ActionMarker+fmt.Sprintf("proposed %s [%s]", actionLabel(action), action.Safety))
	s.persistUser(log, userID)
}

// appendMarkedLines splits text on newlines and appends each line with
// the marker prefix.
func (s *service) appendMarkedLines(userID schema.UserID, sessionID schema.SessionID, marker, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		lines = append(lines, marker+strings.TrimRight(line, " \t"))
	}
	s.appendTranscript(userID, sessionID, lines...)
}
