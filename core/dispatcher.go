package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tiller/internal/logx"
	"pkt.systems/tiller/schema"
)

// dispatchResult carries the outcome of one execution attempt. Errors
// never propagate past the dispatcher; they surface through ActionStatus.
type dispatchResult struct {
	logs   []string
	result string
	err    error
}

// ackNames are protocol acknowledgements: they complete the approval
// round-trip without touching the page.
var ackNames = map[string]struct{}{
	"respond": {},
	"finish":  {},
	"fail":    {},
	"waiting": {},
	"memory":  {},
}

// executeAction runs one approved action to a terminal state. It runs on
// its own goroutine so execution never blocks the stream loop.
func (s *service) executeAction(userID schema.UserID, sessionID schema.SessionID, actionID schema.ActionID) {
	log := logx.WithAction(s.logger.With("user", userID, "session", sessionID), actionID)

	s.mu.Lock()
	sess := s.sessionLocked(userID, sessionID)
	if sess == nil {
		s.mu.Unlock()
		return
	}
	rec := sess.actions[actionID]
	if rec == nil || rec.status.State != schema.StateExecuting {
		s.mu.Unlock()
		return
	}
	action := rec.snapshot().Action
	s.mu.Unlock()

	ctx := pslog.ContextWithLogger(context.Background(), log)
	outcome := s.dispatch(ctx, log, action)

	s.mu.Lock()
	sess = s.sessionLocked(userID, sessionID)
	if sess == nil {
		s.mu.Unlock()
		return
	}
	rec = sess.actions[actionID]
	if rec == nil || rec.status.State != schema.StateExecuting {
		s.mu.Unlock()
		return
	}
	rec.status.Logs = append(rec.status.Logs, outcome.logs...)
	if outcome.err != nil {
		rec.status.State = schema.StateFailed
		rec.status.Error = outcome.err.Error()
	} else {
		rec.status.State = schema.StateSucceeded
		rec.status.Result = outcome.result
	}
	snapshot := rec.snapshot()
	s.mu.Unlock()

	if outcome.err != nil {
		log.Warn("service action failed", "err", outcome.err)
	} else {
		log.Info("service action succeeded", "result", outcome.result)
	}
	s.emitActionEvent(schema.ActionEvent{
		UserID:    userID,
		SessionID: sessionID,
		Type:      schema.ActionEventState,
		Action:    snapshot,
	})
	s.appendTranscript(userID, sessionID,
		schema.ActionMarker+fmt.Sprintf("%s %s", snapshot.Status.State, actionLabel(snapshot.Action)))
	s.persistUser(log, userID)
}

// dispatch resolves the action against the fixed table. Only the payload
// matching the action kind is consulted; mismatches and unknown names
// settle as logged no-ops rather than failures.
func (s *service) dispatch(ctx context.Context, log pslog.Logger, action schema.ProposedAction) dispatchResult {
	started := time.Now()
	if action.Kind != schema.ActionKindAPI {
		log.Debug("service dispatch no-op", "action_kind", action.Kind)
		return dispatchResult{
			logs:   []string{fmt.Sprintf("no page effect for kind %s", action.Kind)},
			result: "no-op",
		}
	}
	if action.APICall == nil {
		log.Debug("service dispatch no-op", "reason", "missing api payload")
		return dispatchResult{
			logs:   []string{"api action without call payload"},
			result: "no-op",
		}
	}

	name := strings.ToLower(strings.TrimSpace(action.APICall.Name))
	args := schema.NormalizeArgs(action.APICall.RawArgs, name)

	if _, ok := ackNames[name]; ok {
		log.Debug("service dispatch ack", "name", name)
		return dispatchResult{
			logs:   []string{fmt.Sprintf("ack %s", name)},
			result: name,
		}
	}

	var err error
	switch name {
	case "navigate":
		err = s.dispatchNavigate(ctx, args)
	case "click":
		err = s.dispatchClick(ctx, args)
	case "set_value":
		err = s.dispatchSetValue(ctx, args)
	default:
		log.Debug("service dispatch unknown action", "name", name)
		return dispatchResult{
			logs:   []string{fmt.Sprintf("unknown action %s ignored", name)},
			result: "ignored",
		}
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	if err != nil {
		return dispatchResult{
			logs: []string{fmt.Sprintf("%s failed after %s: %v", name, elapsed, err)},
			err:  err,
		}
	}
	return dispatchResult{
		logs:   []string{fmt.Sprintf("%s completed in %s", name, elapsed)},
		result: name,
	}
}

func (s *service) dispatchNavigate(ctx context.Context, args schema.Args) error {
	if s.surface == nil {
		return schema.ErrSurfaceUnavailable
	}
	target := strings.TrimSpace(args.Target())
	if target == "" {
		return fmt.Errorf("navigate requires a target url")
	}
	return s.surface.Navigate(ctx, target)
}

func (s *service) dispatchClick(ctx context.Context, args schema.Args) error {
	if s.surface == nil {
		return schema.ErrSurfaceUnavailable
	}
	selector := strings.TrimSpace(args.Selector())
	if selector == "" {
		return fmt.Errorf("click requires a selector")
	}
	return s.surface.Click(ctx, selector)
}

func (s *service) dispatchSetValue(ctx context.Context, args schema.Args) error {
	if s.surface == nil {
		return schema.ErrSurfaceUnavailable
	}
	selector := strings.TrimSpace(args.Selector())
	if selector == "" {
		return fmt.Errorf("set_value requires a selector")
	}
	value, ok := args.Value()
	if !ok {
		return fmt.Errorf("set_value requires a value")
	}
	return s.surface.SetValue(ctx, selector, value)
}
