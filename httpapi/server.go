package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/tiller/core"
	"pkt.systems/tiller/internal/eventbus"
	"pkt.systems/tiller/internal/logx"
	"pkt.systems/tiller/schema"
)

// Authenticator verifies username, password, and totp.
type Authenticator interface {
	Authenticate(username, password, totp string) error
	ChangePassword(username, currentPassword, totp, newPassword string) error
}

// Server serves the HTTP API and UI.
type Server struct {
	cfg      Config
	service  core.Service
	auth     Authenticator
	sessions *sessionStore
	bus      *eventbus.Bus
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service, auth Authenticator, bus *eventbus.Bus) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		auth:     auth,
		sessions: newSessionStore(ttl, cfg.SessionFile),
		bus:      bus,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/chpasswd", s.requireSession(s.handleChangePassword))
	mux.HandleFunc("/api/me", s.requireSession(s.handleMe))
	mux.HandleFunc("/api/sessions", s.requireSession(s.handleSessions))
	mux.HandleFunc("/api/sessions/activate", s.requireSession(s.handleActivate))
	mux.HandleFunc("/api/sessions/close", s.requireSession(s.handleClose))
	mux.HandleFunc("/api/prompt", s.requireSession(s.handlePrompt))
	mux.HandleFunc("/api/stop", s.requireSession(s.handleStop))
	mux.HandleFunc("/api/actions", s.requireSession(s.handleActions))
	mux.HandleFunc("/api/actions/approve", s.requireSession(s.handleApprove))
	mux.HandleFunc("/api/actions/reject", s.requireSession(s.handleReject))
	mux.HandleFunc("/api/actions/edit", s.requireSession(s.handleEdit))
	mux.HandleFunc("/api/transcript", s.requireSession(s.handleTranscript))
	mux.HandleFunc("/api/stream", s.requireSession(s.handleStream))

	return withRequestLogging(mux, s.lookupSession)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := fs.ReadFile(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	stat, err := fs.Stat(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	data = applyUIMaxTranscriptLines(data, s.cfg.UIMaxTranscriptLines)
	http.ServeContent(w, r, "index.html", stat.ModTime(), bytes.NewReader(data))
}

const uiMaxTranscriptLinesPlaceholder = "UI_MAX_TRANSCRIPT_LINES"
const defaultUIMaxTranscriptLines = 2000

func applyUIMaxTranscriptLines(data []byte, maxLines int) []byte {
	if maxLines <= 0 {
		maxLines = defaultUIMaxTranscriptLines
	}
	return bytes.ReplaceAll(data, []byte(uiMaxTranscriptLinesPlaceholder), []byte(strconv.Itoa(maxLines)))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
		TOTP     string `json:"totp"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http login decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log = log.With("user", payload.Username)
	if err := s.auth.Authenticate(payload.Username, payload.Password, payload.TOTP); err != nil {
		log.Warn("http login failed", "err", err)
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	token, sess := s.sessions.create(schema.UserID(payload.Username))
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.expiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]any{"username": payload.Username})
	log.Info("http login ok")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	token := s.sessionToken(r)
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	if token != "" {
		if entry, ok := s.sessions.get(token); ok {
			log = log.With("user", entry.userID, "http_session", entry.id)
		}
		s.sessions.delete(token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	log.Info("http logout")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID).With("remote", clientIP(r))
	var payload struct {
		CurrentPassword string `json:"current_password"`
		TOTP            string `json:"totp"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http chpasswd decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch {
	case strings.TrimSpace(payload.CurrentPassword) == "":
		writeError(w, http.StatusBadRequest, errors.New("current password is required"))
		return
	case strings.TrimSpace(payload.NewPassword) == "":
		writeError(w, http.StatusBadRequest, errors.New("new password is required"))
		return
	case payload.NewPassword != payload.ConfirmPassword:
		writeError(w, http.StatusBadRequest, errors.New("passwords do not match"))
		return
	case strings.TrimSpace(payload.TOTP) == "":
		writeError(w, http.StatusBadRequest, errors.New("totp is required"))
		return
	}
	if err := s.auth.ChangePassword(string(userID), payload.CurrentPassword, payload.TOTP, payload.NewPassword); err != nil {
		log.Warn("http chpasswd failed", "err", err)
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	log.Info("http chpasswd ok")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	writeJSON(w, http.StatusOK, map[string]any{"username": userID})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	log := logx.WithUser(r.Context(), userID)
	switch r.Method {
	case http.MethodGet:
		resp, err := s.service.ListSessions(r.Context(), schema.ListSessionsRequest{UserID: userID})
		if err != nil {
			log.Warn("http sessions list failed", "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http sessions list ok", "count", len(resp.Sessions))
	case http.MethodPost:
		var payload struct {
			Name      string `json:"name"`
			TargetURL string `json:"target_url"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			log.Warn("http sessions decode failed", "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := s.service.CreateSession(r.Context(), schema.CreateSessionRequest{
			UserID:    userID,
			Name:      schema.SessionName(payload.Name),
			TargetURL: payload.TargetURL,
		})
		if err != nil {
			log.Warn("http sessions create failed", "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http sessions create ok", "session", resp.Session.ID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http activate decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.ActivateSession(r.Context(), schema.ActivateSessionRequest{
		UserID:    userID,
		SessionID: schema.SessionID(payload.SessionID),
	})
	if err != nil {
		log.Warn("http activate failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http activate ok", "session", resp.Session.ID)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http close decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.CloseSession(r.Context(), schema.CloseSessionRequest{
		UserID:    userID,
		SessionID: schema.SessionID(payload.SessionID),
	})
	if err != nil {
		log.Warn("http close failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http close ok", "session", resp.Session.ID)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID string `json:"session_id"`
		Prompt    string `json:"prompt"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http prompt decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := s.resolveSessionID(r, userID, schema.SessionID(payload.SessionID))
	resp, err := s.service.StartRun(r.Context(), schema.StartRunRequest{
		UserID:    userID,
		SessionID: sessionID,
		Prompt:    payload.Prompt,
	})
	if err != nil {
		log.Warn("http prompt failed", "session", sessionID, "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http prompt ok", "session", sessionID, "run", resp.RunID, "prompt_len", len(payload.Prompt))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http stop decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := s.resolveSessionID(r, userID, schema.SessionID(payload.SessionID))
	resp, err := s.service.StopRun(r.Context(), schema.StopRunRequest{
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		log.Warn("http stop failed", "session", sessionID, "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http stop ok", "session", sessionID, "run", resp.RunID)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	sessionID := s.resolveSessionID(r, userID, schema.SessionID(r.URL.Query().Get("session_id")))
	if actionID := r.URL.Query().Get("action_id"); actionID != "" {
		resp, err := s.service.GetAction(r.Context(), schema.GetActionRequest{
			UserID:    userID,
			SessionID: sessionID,
			ActionID:  schema.ActionID(actionID),
		})
		if err != nil {
			log.Warn("http action get failed", "session", sessionID, "action", actionID, "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Debug("http action get ok", "session", sessionID, "action", actionID)
		return
	}
	resp, err := s.service.ListActions(r.Context(), schema.ListActionsRequest{
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		log.Warn("http actions list failed", "session", sessionID, "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Debug("http actions list ok", "session", sessionID, "count", len(resp.Actions))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID string `json:"session_id"`
		ActionID  string `json:"action_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http approve decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := s.resolveSessionID(r, userID, schema.SessionID(payload.SessionID))
	resp, err := s.service.ApproveAction(r.Context(), schema.ApproveActionRequest{
		UserID:    userID,
		SessionID: sessionID,
		ActionID:  schema.ActionID(payload.ActionID),
	})
	if err != nil {
		log.Warn("http approve failed", "session", sessionID, "action", payload.ActionID, "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http approve ok", "session", sessionID, "action", payload.ActionID, "applied", resp.Applied)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID string `json:"session_id"`
		ActionID  string `json:"action_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http reject decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := s.resolveSessionID(r, userID, schema.SessionID(payload.SessionID))
	resp, err := s.service.RejectAction(r.Context(), schema.RejectActionRequest{
		UserID:    userID,
		SessionID: sessionID,
		ActionID:  schema.ActionID(payload.ActionID),
	})
	if err != nil {
		log.Warn("http reject failed", "session", sessionID, "action", payload.ActionID, "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http reject ok", "session", sessionID, "action", payload.ActionID, "applied", resp.Applied)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload struct {
		SessionID   string  `json:"session_id"`
		ActionID    string  `json:"action_id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Rationale   *string `json:"rationale"`
		RawArgs     *string `json:"args"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http edit decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := s.resolveSessionID(r, userID, schema.SessionID(payload.SessionID))
	resp, err := s.service.EditAction(r.Context(), schema.EditActionRequest{
		UserID:      userID,
		SessionID:   sessionID,
		ActionID:    schema.ActionID(payload.ActionID),
		Title:       payload.Title,
		Description: payload.Description,
		Rationale:   payload.Rationale,
		RawArgs:     payload.RawArgs,
	})
	if err != nil {
		log.Warn("http edit failed", "session", sessionID, "action", payload.ActionID, "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http edit ok", "session", sessionID, "action", payload.ActionID, "applied", resp.Applied)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	log := logx.WithUser(r.Context(), userID)
	switch r.Method {
	case http.MethodGet:
		sessionID := s.resolveSessionID(r, userID, schema.SessionID(r.URL.Query().Get("session_id")))
		limit := parseInt(r.URL.Query().Get("limit"), s.cfg.InitialTranscriptLines)
		resp, err := s.service.GetTranscript(r.Context(), schema.GetTranscriptRequest{
			UserID:    userID,
			SessionID: sessionID,
			Limit:     limit,
		})
		if err != nil {
			log.Warn("http transcript failed", "session", sessionID, "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Debug("http transcript ok", "session", sessionID, "lines", resp.Transcript.TotalLines)
	case http.MethodPost:
		var payload struct {
			SessionID string `json:"session_id"`
			Delta     int    `json:"delta"`
			Limit     int    `json:"limit"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			log.Warn("http scroll decode failed", "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sessionID := s.resolveSessionID(r, userID, schema.SessionID(payload.SessionID))
		limit := payload.Limit
		if limit <= 0 {
			limit = s.cfg.InitialTranscriptLines
		}
		resp, err := s.service.ScrollTranscript(r.Context(), schema.ScrollTranscriptRequest{
			UserID:    userID,
			SessionID: sessionID,
			Delta:     payload.Delta,
			Limit:     limit,
		})
		if err != nil {
			log.Warn("http scroll failed", "session", sessionID, "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Debug("http scroll ok", "session", sessionID, "offset", resp.Transcript.ScrollOffset)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.WithUser(r.Context(), userID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before anything is written: the bus registers the channel
	// and returns the retained history in one step, so every event is
	// either in that history or arrives on the channel.
	ch, unsubscribe, seq, history := s.bus.Subscribe(userID)
	defer unsubscribe()

	snapshot := s.buildSnapshot(r, userID)
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	// delivered is the highest seq written so far; channel events at or
	// below it were already served from history. Fresh clients start at
	// the subscribe-time seq, the snapshot covers everything before it.
	delivered := lastID
	if lastID == 0 {
		delivered = seq
	}
	replayCount := 0
	for _, event := range history {
		if event.Seq <= delivered {
			continue
		}
		_ = writeSSEvent(w, wireEvent(event))
		delivered = event.Seq
		replayCount++
	}
	if replayCount > 0 {
		flusher.Flush()
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "sessions", len(snapshot.Sessions))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event := <-ch:
			if event.Seq <= delivered {
				continue
			}
			delivered = event.Seq
			_ = writeSSEvent(w, wireEvent(event))
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(r *http.Request, userID schema.UserID) SnapshotPayload {
	resp, err := s.service.ListSessions(r.Context(), schema.ListSessionsRequest{UserID: userID})
	if err != nil {
		return SnapshotPayload{}
	}
	transcripts := make(map[schema.SessionID]schema.TranscriptSnapshot)
	actions := make(map[schema.SessionID][]schema.ActionSnapshot)
	for _, sess := range resp.Sessions {
		if tr, err := s.service.GetTranscript(r.Context(), schema.GetTranscriptRequest{
			UserID:    userID,
			SessionID: sess.ID,
			Limit:     s.cfg.InitialTranscriptLines,
		}); err == nil {
			transcripts[sess.ID] = tr.Transcript
		}
		if ar, err := s.service.ListActions(r.Context(), schema.ListActionsRequest{
			UserID:    userID,
			SessionID: sess.ID,
		}); err == nil {
			actions[sess.ID] = ar.Actions
		}
	}
	return SnapshotPayload{
		Sessions:      resp.Sessions,
		ActiveSession: resp.ActiveSession,
		Transcripts:   transcripts,
		Actions:       actions,
	}
}

// resolveSessionID falls back to the user's active session when the
// request names none.
func (s *Server) resolveSessionID(r *http.Request, userID schema.UserID, requested schema.SessionID) schema.SessionID {
	if requested != "" {
		return requested
	}
	resp, err := s.service.ListSessions(r.Context(), schema.ListSessionsRequest{UserID: userID})
	if err != nil {
		return requested
	}
	return resp.ActiveSession
}

func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, schema.UserID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logx.Ctx(r.Context()).With("remote", clientIP(r))
		token := s.sessionToken(r)
		if token == "" {
			log.Warn("http session missing")
			writeError(w, http.StatusUnauthorized, errors.New("missing session"))
			return
		}
		entry, ok := s.sessions.get(token)
		if !ok {
			log.Warn("http session invalid")
			writeError(w, http.StatusUnauthorized, errors.New("invalid session"))
			return
		}
		log = log.With("user", entry.userID, "http_session", entry.id)
		ctx := logx.ContextWithUserLogger(r.Context(), log, entry.userID)
		next(w, r.WithContext(ctx), entry.userID)
	}
}

func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) lookupSession(r *http.Request) (schema.UserID, string) {
	if s == nil || r == nil {
		return "", ""
	}
	token := s.sessionToken(r)
	if token == "" {
		return "", ""
	}
	entry, ok := s.sessions.get(token)
	if !ok {
		return "", ""
	}
	return entry.userID, entry.id
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrSessionNotFound), errors.Is(err, schema.ErrActionNotFound), errors.Is(err, schema.ErrNoSessions):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrRunActive):
		return http.StatusConflict
	case errors.Is(err, schema.ErrUpstreamUnavailable), errors.Is(err, schema.ErrSurfaceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
