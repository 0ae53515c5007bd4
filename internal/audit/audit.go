// Package audit writes command-center session events to a JSONL file for
// later review. One Logger can be shared by many sessions; each session
// writes through its own SessionLog.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeSessionStart marks the start of a new session.
	EventTypeSessionStart EventType = "session_start"
	// EventTypeCredentialSet marks the session being unlocked.
	EventTypeCredentialSet EventType = "credential_set"
	// EventTypeUserMessage marks an accepted user request.
	EventTypeUserMessage EventType = "user_message"
	// EventTypeDelegation marks the coordinator choosing a function.
	EventTypeDelegation EventType = "delegation"
	// EventTypeAgentResponse marks a specialist reply being delivered.
	EventTypeAgentResponse EventType = "agent_response"
	// EventTypeClassificationError marks the coordinator failing to delegate.
	EventTypeClassificationError EventType = "classification_error"
	// EventTypeTurnFailed marks a turn aborted by an unexpected failure.
	EventTypeTurnFailed EventType = "turn_failed"
	// EventTypeSessionEnd marks the end of a session.
	EventTypeSessionEnd EventType = "session_end"
)

// Event represents a single audit log event.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Agent     string                 `json:"agent,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Logger writes audit events as JSON lines.
type Logger struct {
	closer io.Closer
	writer *bufio.Writer
	mutex  sync.Mutex
}

// NewLogger opens filePath for appending, creating it if needed.
func NewLogger(filePath string) (*Logger, error) {
	// #nosec G304 -- Audit log path is intentionally configurable by user
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &Logger{closer: file, writer: bufio.NewWriter(file)}, nil
}

// NewWriterLogger writes events to w. Close does not close w.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{writer: bufio.NewWriter(w)}
}

// ForSession returns a SessionLog stamping events with sessionID.
// A nil Logger yields a nil SessionLog, which discards events.
func (l *Logger) ForSession(sessionID string) *SessionLog {
	if l == nil {
		return nil
	}
	return &SessionLog{logger: l, sessionID: sessionID}
}

func (l *Logger) write(event Event) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	// Flush every event so a crash loses nothing.
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	if l.closer != nil {
		if err := l.closer.Close(); err != nil {
			return fmt.Errorf("failed to close audit log: %w", err)
		}
	}
	return nil
}

// SessionLog records the events of one session. All methods are no-ops on a
// nil receiver.
type SessionLog struct {
	logger    *Logger
	sessionID string
}

func (s *SessionLog) emit(typ EventType, agent string, data map[string]interface{}) error {
	if s == nil {
		return nil
	}
	return s.logger.write(Event{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: s.sessionID,
		Agent:     agent,
		Data:      data,
	})
}

// LogSessionStart logs the start of a session.
func (s *SessionLog) LogSessionStart(backend, model string) error {
	return s.emit(EventTypeSessionStart, "", map[string]interface{}{
		"backend": backend,
		"model":   model,
	})
}

// LogCredentialSet logs the session being unlocked. The credential itself is
// never written.
func (s *SessionLog) LogCredentialSet(first bool) error {
	return s.emit(EventTypeCredentialSet, "", map[string]interface{}{
		"first": first,
	})
}

// LogUserMessage logs an accepted user request.
func (s *SessionLog) LogUserMessage(message string) error {
	return s.emit(EventTypeUserMessage, "", map[string]interface{}{
		"message": message,
	})
}

// LogDelegation logs the function the coordinator called and where it led.
func (s *SessionLog) LogDelegation(agent, functionName string, args map[string]any, duration time.Duration) error {
	return s.emit(EventTypeDelegation, agent, map[string]interface{}{
		"function_name": functionName,
		"args":          args,
		"duration_ms":   duration.Milliseconds(),
	})
}

// LogAgentResponse logs a specialist reply.
func (s *SessionLog) LogAgentResponse(agent string, secure bool, content string) error {
	return s.emit(EventTypeAgentResponse, agent, map[string]interface{}{
		"secure":  secure,
		"content": content,
	})
}

// LogClassificationError logs a failed classification.
func (s *SessionLog) LogClassificationError(message string, duration time.Duration) error {
	return s.emit(EventTypeClassificationError, "", map[string]interface{}{
		"message":     message,
		"duration_ms": duration.Milliseconds(),
	})
}

// LogTurnFailed logs a turn aborted by a crash.
func (s *SessionLog) LogTurnFailed(reason string) error {
	return s.emit(EventTypeTurnFailed, "", map[string]interface{}{
		"reason": reason,
	})
}

// LogSessionEnd logs the end of a session.
func (s *SessionLog) LogSessionEnd() error {
	return s.emit(EventTypeSessionEnd, "", nil)
}
