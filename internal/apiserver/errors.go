package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/moolen/medidesk/internal/session"
)

// writeJSON writes data with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(data)
}

// writeError sends an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
}

// writeSessionError maps session sentinels to HTTP status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "EMPTY_QUERY", err.Error())
	case errors.Is(err, session.ErrEmptyCredential):
		writeError(w, http.StatusBadRequest, "EMPTY_CREDENTIAL", err.Error())
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, "BUSY", err.Error())
	case errors.Is(err, session.ErrLocked):
		writeError(w, http.StatusPreconditionFailed, "LOCKED", err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, "SESSION_CLOSED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

const maxBodyBytes = 64 << 10

// decodeBody reads a JSON request body into v and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}
