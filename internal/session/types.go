package session

import (
	"fmt"
	"time"

	"github.com/moolen/medidesk/internal/agents"
)

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
	RoleAgent  Role = "agent"
)

// Message is one transcript entry. Messages never change once appended.
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Agent     agents.Identity `json:"agent,omitempty"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	// Metadata is set on agent messages only.
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries display hints for agent messages.
type MessageMetadata struct {
	Secure bool `json:"secure"`
}

// Level is the severity of an operations log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// LogEntry is one line of the operations log shown next to the transcript.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Phase is the position of the session in the turn state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	// PhaseAwaitingDelegation: the coordinator is classifying the request.
	PhaseAwaitingDelegation
	// PhaseDelegated: a specialist is working on the request.
	PhaseDelegated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingDelegation:
		return "awaiting_delegation"
	case PhaseDelegated:
		return "delegated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "awaiting_delegation":
		*p = PhaseAwaitingDelegation
	case "delegated":
		*p = PhaseDelegated
	default:
		return fmt.Errorf("unknown session phase %q", string(b))
	}
	return nil
}

// Snapshot is a point-in-time copy of the session state. Callers own it.
type Snapshot struct {
	ID          string          `json:"id"`
	Ready       bool            `json:"ready"`
	ActiveAgent agents.Identity `json:"active_agent"`
	Processing  bool            `json:"processing"`
	Phase       Phase           `json:"phase"`
	Transcript  []Message       `json:"transcript"`
	Logs        []LogEntry      `json:"logs"`
}

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeDelegated Outcome = "delegated"
	OutcomeFailed    Outcome = "failed"
	OutcomeCrashed   Outcome = "crashed"
	OutcomeCancelled Outcome = "cancelled"
)
