package apiserver

import (
	"net/http"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.ready.Load()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":    ready,
		"sessions": s.store.Len(),
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents.All()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.store.Create()
	if err != nil {
		s.logger.Error("Failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

// lookup resolves the {id} path value and writes a 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	sess, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found: "+id)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found: "+r.PathValue("id"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type credentialRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req credentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.SetCredential(req.Secret); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type queryRequest struct {
	Query string `json:"query"`
}

// handleSubmitQuery starts a turn. With ?wait=true the response is sent
// once the session is idle again.
func (s *Server) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	turn, err := sess.Submit(req.Query)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, sess.Snapshot())
		return
	}
	if _, err := turn.Wait(r.Context()); err != nil {
		s.logger.Debug("Client went away while waiting for session %s: %v", sess.ID(), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
