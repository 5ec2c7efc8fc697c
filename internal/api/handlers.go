package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/SurveyPipe/internal/models"
	"github.com/BTreeMap/SurveyPipe/internal/schema"
)

// createSessionRequest is the body of POST /sessions.
type createSessionRequest struct {
	Goal string `json:"goal"`
}

// inputRequest is the body of POST /sessions/{id}/input.
type inputRequest struct {
	Input string `json:"input"`
}

// turnResponse is the engine output for one turn: the outbound messages and
// the input mode the next turn expects, plus the session snapshot.
type turnResponse struct {
	Session   *models.Session  `json:"session"`
	Messages  []string         `json:"messages"`
	InputMode models.InputMode `json:"input_mode"`
	Completed bool             `json:"completed"`
}

// handleGoals serves GET /goals, listing registered goal names.
func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(schema.Names()))
}

// handleSessions serves the /sessions collection: POST creates a session and
// returns the opening prompt, GET lists sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSession(w, r)
	case http.MethodGet:
		s.listSessions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Goal == "" {
		writeError(w, http.StatusBadRequest, "goal is required")
		return
	}

	engine, err := s.engineFor(req.Goal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.manager.CreateSession(r.Context(), req.Goal)
	if err != nil {
		slog.Error("api.createSession: failed to create session", "goal", req.Goal, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	messages, mode := engine.Start(session)
	writeJSONResponse(w, http.StatusCreated, models.Success(turnResponse{
		Session:   session,
		Messages:  messages,
		InputMode: mode,
		Completed: mode == models.InputModeDone,
	}))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.manager.ListSessions(r.Context())
	if err != nil {
		slog.Error("api.listSessions: failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

// handleSessionByID routes /sessions/{id} and its sub-resources.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.getSession(w, r, id)
		case http.MethodDelete:
			s.deleteSession(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(parts) == 2 && parts[1] == "input":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.advanceSession(w, r, id)
	case len(parts) == 2 && parts[1] == "payload":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.getPayload(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.manager.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("api.getSession: failed to load session", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(session))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.manager.DeleteSession(r.Context(), id); err != nil {
		slog.Error("api.deleteSession: failed to delete session", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("session deleted", nil))
}

// advanceSession feeds one turn of input through the engine and persists the
// updated session.
func (s *Server) advanceSession(w http.ResponseWriter, r *http.Request, id string) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.manager.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("api.advanceSession: failed to load session", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	engine, err := s.engineFor(session.GoalName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	messages, mode, err := engine.Advance(r.Context(), session, req.Input)
	if err != nil {
		slog.Error("api.advanceSession: engine failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process input")
		return
	}

	if err := s.manager.SaveSession(r.Context(), session); err != nil {
		slog.Error("api.advanceSession: failed to persist session", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse{
		Session:   session,
		Messages:  messages,
		InputMode: mode,
		Completed: mode == models.InputModeDone,
	}))
}

// getPayload serves the final payload of a completed session. An incomplete
// session yields 409 so clients do not export partial answers by accident.
func (s *Server) getPayload(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.manager.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("api.getPayload: failed to load session", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	goal, ok := schema.Lookup(session.GoalName)
	if !ok {
		writeError(w, http.StatusInternalServerError, "session references unknown goal")
		return
	}
	if !schema.Completed(goal, session.Answers) {
		writeError(w, http.StatusConflict, "interview is not complete")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(schema.Payload(goal, session.Answers)))
}
