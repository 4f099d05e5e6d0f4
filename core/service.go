package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tiller/internal/logx"
	"pkt.systems/tiller/internal/persist"
	"pkt.systems/tiller/schema"
)

// service implements the core service behavior.
type service struct {
	cfg      schema.ServiceConfig
	provider StreamProvider
	surface  Surface
	sink     EventSink
	store    *persist.Store
	logger   pslog.Logger
	mu       sync.Mutex
	users    map[schema.UserID]*userState
}

type userState struct {
	sessions map[schema.SessionID]*session
	order    []schema.SessionID
	active   schema.SessionID
}

type session struct {
	ID        schema.SessionID
	Name      schema.SessionName
	TargetURL string

	transcript  *transcript
	actions     map[schema.ActionID]*actionRecord
	actionOrder []schema.ActionID
	run         *runState
}

type actionRecord struct {
	action schema.ProposedAction
	status schema.ActionStatus
}

func (r *actionRecord) snapshot() schema.ActionSnapshot {
	action := r.action
	action.Files = append([]schema.FileChange(nil), r.action.Files...)
	if r.action.APICall != nil {
		call := *r.action.APICall
		action.APICall = &call
	}
	if r.action.Command != nil {
		cmd := *r.action.Command
		action.Command = &cmd
	}
	status := r.status
	status.Logs = append([]string(nil), r.status.Logs...)
	return schema.ActionSnapshot{Action: action, Status: status}
}

type runState struct {
	id      schema.RunID
	cancel  context.CancelFunc
	stopped bool
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	var store *persist.Store
	if cfg.StateDir != "" {
		store, err = persist.NewStoreWithLogger(cfg.StateDir, deps.Logger)
		if err != nil {
			return nil, err
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:      cfg,
		provider: deps.StreamProvider,
		surface:  deps.Surface,
		sink:     deps.EventSink,
		store:    store,
		logger:   logger,
		users:    make(map[schema.UserID]*userState),
	}, nil
}

func (s *service) CreateSession(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error) {
	if ctx == nil {
		return schema.CreateSessionResponse{}, errors.New("missing context")
	}
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.CreateSessionResponse{}, err
	}
	log := logx.WithUser(ctx, userID)

	name := req.Name
	if strings.TrimSpace(string(name)) == "" {
		name = "session"
	}
	sess := &session{
		ID:         schema.SessionID(newID()),
		Name:       name,
		TargetURL:  strings.TrimSpace(req.TargetURL),
		transcript: newTranscript(s.cfg.TranscriptMaxLines),
		actions:    make(map[schema.ActionID]*actionRecord),
	}

	s.mu.Lock()
	state := s.userStateLocked(userID)
	state.sessions[sess.ID] = sess
	state.order = append(state.order, sess.ID)
	if state.active == "" {
		state.active = sess.ID
	}
	event := schema.SessionEvent{
		UserID:        userID,
		Type:          schema.SessionEventCreated,
		Session:       sess.Snapshot(state.active == sess.ID),
		ActiveSession: state.active,
	}
	snapshot := event.Session
	s.mu.Unlock()
	s.emitSessionEvent(event)
	s.persistUser(log, userID)
	log.With("session", sess.ID, "session_name", sess.Name).Info("service session created")
	return schema.CreateSessionResponse{Session: snapshot}, nil
}

func (s *service) CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error) {
	if ctx == nil {
		return schema.CloseSessionResponse{}, errors.New("missing context")
	}
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.CloseSessionResponse{}, err
	}
	log := logx.WithUserSession(ctx, userID, req.SessionID)

	s.mu.Lock()
	state := s.userStateLocked(userID)
	sess := state.sessions[req.SessionID]
	if sess == nil {
		s.mu.Unlock()
		log.Warn("service session close failed", "err", schema.ErrSessionNotFound)
		return schema.CloseSessionResponse{}, schema.ErrSessionNotFound
	}
	var cancel context.CancelFunc
	if sess.run != nil {
		sess.run.stopped = true
		cancel = sess.run.cancel
	}
	delete(state.sessions, req.SessionID)
	state.order = removeSessionID(state.order, req.SessionID)
	if state.active == req.SessionID {
		state.active = ""
		if len(state.order) > 0 {
			state.active = state.order[0]
		}
	}
	event := schema.SessionEvent{
		UserID:        userID,
		Type:          schema.SessionEventClosed,
		Session:       sess.Snapshot(false),
		ActiveSession: state.active,
	}
	snapshot := event.Session
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.emitSessionEvent(event)
	s.persistUser(log, userID)
	log.Info("service session closed")
	return schema.CloseSessionResponse{Session: snapshot}, nil
}

func (s *service) ListSessions(ctx context.Context, req schema.ListSessionsRequest) (schema.ListSessionsResponse, error) {
	_ = ctx
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.ListSessionsResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.userStateLocked(userID)
	sessions := make([]schema.SessionSnapshot, 0, len(state.order))
	for _, id := range state.order {
		sess := state.sessions[id]
		if sess == nil {
			continue
		}
		sessions = append(sessions, sess.Snapshot(id == state.active))
	}
	return schema.ListSessionsResponse{Sessions: sessions, ActiveSession: state.active}, nil
}

func (s *service) ActivateSession(ctx context.Context, req schema.ActivateSessionRequest) (schema.ActivateSessionResponse, error) {
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.ActivateSessionResponse{}, err
	}
	log := logx.WithUserSession(ctx, userID, req.SessionID)

	s.mu.Lock()
	state := s.userStateLocked(userID)
	sess := state.sessions[req.SessionID]
	if sess == nil {
		s.mu.Unlock()
		return schema.ActivateSessionResponse{}, schema.ErrSessionNotFound
	}
	state.active = req.SessionID
	event := schema.SessionEvent{
		UserID:        userID,
		Type:          schema.SessionEventActivated,
		Session:       sess.Snapshot(true),
		ActiveSession: state.active,
	}
	snapshot := event.Session
	s.mu.Unlock()
	s.emitSessionEvent(event)
	s.persistUser(log, userID)
	log.Debug("service session activated")
	return schema.ActivateSessionResponse{Session: snapshot}, nil
}

func (s *service) StartRun(ctx context.Context, req schema.StartRunRequest) (schema.StartRunResponse, error) {
	if ctx == nil {
		return schema.StartRunResponse{}, errors.New("missing context")
	}
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.StartRunResponse{}, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return schema.StartRunResponse{}, schema.ErrEmptyPrompt
	}
	if s.provider == nil {
		return schema.StartRunResponse{}, schema.ErrUpstreamUnavailable
	}
	log := logx.WithUserSession(ctx, userID, req.SessionID)

	runID := schema.RunID(newID())
	// The cancel func is set before the run is published so a stop racing
	// this start always finds it.
	runCtx, cancel := context.WithCancel(context.Background())
	run := &runState{id: runID, cancel: cancel}

	s.mu.Lock()
	state := s.userStateLocked(userID)
	sess := state.sessions[req.SessionID]
	if sess == nil {
		s.mu.Unlock()
		cancel()
		return schema.StartRunResponse{}, schema.ErrSessionNotFound
	}
	if sess.run != nil {
		s.mu.Unlock()
		cancel()
		return schema.StartRunResponse{}, schema.ErrRunActive
	}
	sess.run = run
	targetURL := sess.TargetURL
	s.mu.Unlock()

	log = logx.WithRun(log, runID)
	runCtx = logx.ContextWithUserLogger(runCtx, log, userID)
	runCtx = logx.ContextWithSession(runCtx, req.SessionID)

	stream, err := s.provider.Open(runCtx, OpenStreamRequest{
		UserID:    userID,
		SessionID: req.SessionID,
		RunID:     runID,
		Prompt:    req.Prompt,
		TargetURL: targetURL,
	})
	if err != nil {
		cancel()
		s.mu.Lock()
		if sess := s.sessionLocked(userID, req.SessionID); sess != nil && sess.run == run {
			sess.run = nil
		}
		s.mu.Unlock()
		log.Warn("service run open failed", "err", err)
		return schema.StartRunResponse{}, fmt.Errorf("%w: %v", schema.ErrUpstreamUnavailable, err)
	}

	s.appendTranscript(userID, req.SessionID,
		schema.ActionMarker+fmt.Sprintf("%s run started", time.Now().Format("15:04:05")))
	s.emitRunEvent(schema.RunEvent{
		UserID:    userID,
		SessionID: req.SessionID,
		RunID:     runID,
		Type:      schema.RunEventStarted,
	})
	snapshot := s.sessionSnapshot(userID, req.SessionID)
	log.Info("service run started")

	go s.consumeRun(runCtx, userID, req.SessionID, run, stream)
	return schema.StartRunResponse{RunID: runID, Session: snapshot}, nil
}

func (s *service) StopRun(ctx context.Context, req schema.StopRunRequest) (schema.StopRunResponse, error) {
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.StopRunResponse{}, err
	}
	log := logx.WithUserSession(ctx, userID, req.SessionID)

	s.mu.Lock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		s.mu.Unlock()
		return schema.StopRunResponse{}, schema.ErrSessionNotFound
	}
	if sess.run == nil {
		s.mu.Unlock()
		return schema.StopRunResponse{}, schema.ErrNoRun
	}
	run := sess.run
	run.stopped = true
	cancel := run.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	logx.WithRun(log, run.id).Info("service run stop requested")
	return schema.StopRunResponse{RunID: run.id}, nil
}

func (s *service) ListActions(ctx context.Context, req schema.ListActionsRequest) (schema.ListActionsResponse, error) {
	_ = ctx
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.ListActionsResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		return schema.ListActionsResponse{}, schema.ErrSessionNotFound
	}
	actions := make([]schema.ActionSnapshot, 0, len(sess.actionOrder))
	for _, id := range sess.actionOrder {
		if rec := sess.actions[id]; rec != nil {
			actions = append(actions, rec.snapshot())
		}
	}
	return schema.ListActionsResponse{Actions: actions}, nil
}

func (s *service) GetAction(ctx context.Context, req schema.GetActionRequest) (schema.GetActionResponse, error) {
	_ = ctx
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.GetActionResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		return schema.GetActionResponse{}, schema.ErrSessionNotFound
	}
	rec := sess.actions[req.ActionID]
	if rec == nil {
		return schema.GetActionResponse{}, schema.ErrActionNotFound
	}
	return schema.GetActionResponse{Action: rec.snapshot()}, nil
}

func (s *service) ApproveAction(ctx context.Context, req schema.ApproveActionRequest) (schema.ApproveActionResponse, error) {
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.ApproveActionResponse{}, err
	}
	log := logx.WithAction(logx.WithUserSession(ctx, userID, req.SessionID), req.ActionID)

	s.mu.Lock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		s.mu.Unlock()
		return schema.ApproveActionResponse{}, schema.ErrSessionNotFound
	}
	rec := sess.actions[req.ActionID]
	if rec == nil {
		s.mu.Unlock()
		return schema.ApproveActionResponse{}, schema.ErrActionNotFound
	}
	if !rec.status.State.Decidable() {
		snapshot := rec.snapshot()
		s.mu.Unlock()
		log.Debug("service action approve ignored", "state", snapshot.Status.State)
		return schema.ApproveActionResponse{Action: snapshot, Applied: false}, nil
	}
	if rec.status.State == schema.StateDraft {
		rec.status.State = schema.StateProposed
	}
	rec.status.State = schema.StateExecuting
	snapshot := rec.snapshot()
	s.mu.Unlock()

	s.audit(log, "action approved", "action_kind", snapshot.Action.Kind, "safety", snapshot.Action.Safety)
	s.emitActionEvent(schema.ActionEvent{
		UserID:    userID,
		SessionID: req.SessionID,
		Type:      schema.ActionEventState,
		Action:    snapshot,
	})
	s.appendTranscript(userID, req.SessionID,
		schema.ActionMarker+fmt.Sprintf("approved %s", actionLabel(snapshot.Action)))
	s.persistUser(log, userID)

	go s.executeAction(userID, req.SessionID, req.ActionID)
	return schema.ApproveActionResponse{Action: snapshot, Applied: true}, nil
}

func (s *service) RejectAction(ctx context.Context, req schema.RejectActionRequest) (schema.RejectActionResponse, error) {
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.RejectActionResponse{}, err
	}
	log := logx.WithAction(logx.WithUserSession(ctx, userID, req.SessionID), req.ActionID)

	s.mu.Lock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		s.mu.Unlock()
		return schema.RejectActionResponse{}, schema.ErrSessionNotFound
	}
	rec := sess.actions[req.ActionID]
	if rec == nil {
		s.mu.Unlock()
		return schema.RejectActionResponse{}, schema.ErrActionNotFound
	}
	if !rec.status.State.Decidable() {
		snapshot := rec.snapshot()
		s.mu.Unlock()
		log.Debug("service action reject ignored", "state", snapshot.Status.State)
		return schema.RejectActionResponse{Action: snapshot, Applied: false}, nil
	}
	if rec.status.State == schema.StateDraft {
		rec.status.State = schema.StateProposed
	}
	rec.status.State = schema.StateRejected
	snapshot := rec.snapshot()
	s.mu.Unlock()

	s.audit(log, "action rejected", "action_kind", snapshot.Action.Kind, "safety", snapshot.Action.Safety)
	s.emitActionEvent(schema.ActionEvent{
		UserID:    userID,
		SessionID: req.SessionID,
		Type:      schema.ActionEventState,
		Action:    snapshot,
	})
	s.appendTranscript(userID, req.SessionID,
		schema.ActionMarker+fmt.Sprintf("rejected %s", actionLabel(snapshot.Action)))
	s.persistUser(log, userID)
	return schema.RejectActionResponse{Action: snapshot, Applied: true}, nil
}

func (s *service) EditAction(ctx context.Context, req schema.EditActionRequest) (schema.EditActionResponse, error) {
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.EditActionResponse{}, err
	}
	log := logx.WithAction(logx.WithUserSession(ctx, userID, req.SessionID), req.ActionID)

	s.mu.Lock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		s.mu.Unlock()
		return schema.EditActionResponse{}, schema.ErrSessionNotFound
	}
	rec := sess.actions[req.ActionID]
	if rec == nil {
		s.mu.Unlock()
		return schema.EditActionResponse{}, schema.ErrActionNotFound
	}
	if !rec.status.State.Decidable() {
		snapshot := rec.snapshot()
		s.mu.Unlock()
		log.Debug("service action edit ignored", "state", snapshot.Status.State)
		return schema.EditActionResponse{Action: snapshot, Applied: false}, nil
	}
	if req.Title != nil {
		rec.action.Title = *req.Title
	}
	if req.Description != nil {
		rec.action.Description = *req.Description
	}
	if req.Rationale != nil {
		rec.action.Rationale = *req.Rationale
	}
	if req.RawArgs != nil && rec.action.APICall != nil {
		rec.action.APICall.RawArgs = *req.RawArgs
	}
	snapshot := rec.snapshot()
	s.mu.Unlock()

	s.audit(log, "action edited", "action_kind", snapshot.Action.Kind)
	s.emitActionEvent(schema.ActionEvent{
		UserID:    userID,
		SessionID: req.SessionID,
		Type:      schema.ActionEventUpdated,
		Action:    snapshot,
	})
	s.persistUser(log, userID)
	return schema.EditActionResponse{Action: snapshot, Applied: true}, nil
}

func (s *service) GetTranscript(ctx context.Context, req schema.GetTranscriptRequest) (schema.GetTranscriptResponse, error) {
	_ = ctx
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.GetTranscriptResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		return schema.GetTranscriptResponse{}, schema.ErrSessionNotFound
	}
	return schema.GetTranscriptResponse{Transcript: sess.transcript.Snapshot(req.Limit)}, nil
}

func (s *service) ScrollTranscript(ctx context.Context, req schema.ScrollTranscriptRequest) (schema.ScrollTranscriptResponse, error) {
	_ = ctx
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return schema.ScrollTranscriptResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(userID, req.SessionID)
	if sess == nil {
		return schema.ScrollTranscriptResponse{}, schema.ErrSessionNotFound
	}
	sess.transcript.Scroll(req.Delta, req.Limit)
	return schema.ScrollTranscriptResponse{Transcript: sess.transcript.Snapshot(req.Limit)}, nil
}

// Snapshot returns the transport view of the session.
func (sess *session) Snapshot(active bool) schema.SessionSnapshot {
	return schema.SessionSnapshot{
		ID:        sess.ID,
		Name:      sess.Name,
		TargetURL: sess.TargetURL,
		RunActive: sess.run != nil,
		Actions:   len(sess.actionOrder),
		Active:    active,
	}
}

// userStateLocked returns the user's state, restoring it from the persist
// store on first access. Callers hold s.mu.
func (s *service) userStateLocked(userID schema.UserID) *userState {
	state := s.users[userID]
	if state != nil {
		return state
	}
	state = &userState{sessions: make(map[schema.SessionID]*session)}
	s.users[userID] = state
	if s.store == nil {
		return state
	}
	snapshot, ok, err := s.store.Load(userID)
	if err != nil || !ok {
		return state
	}
	for _, saved := range snapshot.Sessions {
		sess := &session{
			ID:        saved.ID,
			Name:      saved.Name,
			TargetURL: saved.TargetURL,
			transcript: newTranscriptFromPersisted(
				saved.Transcript.Lines, saved.Transcript.ScrollOffset, s.cfg.TranscriptMaxLines),
			actions: make(map[schema.ActionID]*actionRecord, len(saved.Actions)),
		}
		for _, snap := range saved.Actions {
			rec := &actionRecord{action: snap.Action, status: snap.Status}
			// Runs do not survive a restart; an action caught mid-execution
			// is recorded as failed rather than resumed.
			if rec.status.State == schema.StateExecuting {
				rec.status.State = schema.StateFailed
				rec.status.Error = "interrupted by restart"
			}
			sess.actions[snap.Action.ID] = rec
			sess.actionOrder = append(sess.actionOrder, snap.Action.ID)
		}
		state.sessions[sess.ID] = sess
	}
	for _, id := range snapshot.Order {
		if _, ok := state.sessions[id]; ok {
			state.order = append(state.order, id)
		}
	}
	if _, ok := state.sessions[snapshot.Active]; ok {
		state.active = snapshot.Active
	} else if len(state.order) > 0 {
		state.active = state.order[0]
	}
	return state
}

func (s *service) sessionLocked(userID schema.UserID, sessionID schema.SessionID) *session {
	state := s.userStateLocked(userID)
	return state.sessions[sessionID]
}

func (s *service) sessionSnapshot(userID schema.UserID, sessionID schema.SessionID) schema.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.userStateLocked(userID)
	sess := state.sessions[sessionID]
	if sess == nil {
		return schema.SessionSnapshot{}
	}
	return sess.Snapshot(state.active == sessionID)
}

// appendTranscript adds lines to a session transcript and notifies the
// sink. Missing sessions are ignored.
func (s *service) appendTranscript(userID schema.UserID, sessionID schema.SessionID, lines ...string) {
	if len(lines) == 0 {
		return
	}
	s.mu.Lock()
	sess := s.sessionLocked(userID, sessionID)
	if sess == nil {
		s.mu.Unlock()
		return
	}
	sess.transcript.Append(lines...)
	s.mu.Unlock()
	s.emitTranscript(schema.TranscriptEvent{UserID: userID, SessionID: sessionID, Lines: lines})
}

func (s *service) persistUser(log pslog.Logger, userID schema.UserID) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	state := s.users[userID]
	if state == nil {
		s.mu.Unlock()
		return
	}
	snapshot := persist.UserSnapshot{
		Order:  append([]schema.SessionID(nil), state.order...),
		Active: state.active,
	}
	for _, id := range state.order {
		sess := state.sessions[id]
		if sess == nil {
			continue
		}
		lines, offset := sess.transcript.Export()
		saved := persist.SessionSnapshot{
			ID:        sess.ID,
			Name:      sess.Name,
			TargetURL: sess.TargetURL,
			Transcript: persist.TranscriptSnapshot{
				Lines:        lines,
				ScrollOffset: offset,
			},
		}
		for _, actionID := range sess.actionOrder {
			if rec := sess.actions[actionID]; rec != nil {
				saved.Actions = append(saved.Actions, rec.snapshot())
			}
		}
		snapshot.Sessions = append(snapshot.Sessions, saved)
	}
	s.mu.Unlock()
	if err := s.store.Save(userID, snapshot); err != nil {
		log.Warn("service state save failed", "err", err)
	}
}

// audit records a human decision unless audit trails are disabled.
func (s *service) audit(log pslog.Logger, msg string, kv ...any) {
	if s.cfg.DisableAuditLogging {
		return
	}
	log.Info(msg, kv...)
}

func (s *service) emitActionEvent(event schema.ActionEvent) {
	if s.sink != nil {
		s.sink.OnActionEvent(event)
	}
}

func (s *service) emitTranscript(event schema.TranscriptEvent) {
	if s.sink != nil {
		s.sink.OnTranscript(event)
	}
}

func (s *service) emitRunEvent(event schema.RunEvent) {
	if s.sink != nil {
		s.sink.OnRunEvent(event)
	}
}

func (s *service) emitSessionEvent(event schema.SessionEvent) {
	if s.sink != nil {
		s.sink.OnSessionEvent(event)
	}
}

func normalizeUserID(userID schema.UserID) (schema.UserID, error) {
	if err := schema.ValidateUserID(userID); err != nil {
		return "", err
	}
	return userID, nil
}

func removeSessionID(order []schema.SessionID, id schema.SessionID) []schema.SessionID {
	out := order[:0]
	for _, candidate := range order {
		if candidate == id {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func actionLabel(action schema.ProposedAction) string {
	if action.Kind == schema.ActionKindAPI && action.APICall != nil {
		return action.APICall.Name
	}
	if strings.TrimSpace(action.Title) != "" {
		return action.Title
	}
	return string(action.Kind)
}
