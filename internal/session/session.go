// Package session runs the command-center conversation: it admits requests,
// asks the coordinator where to route them, plays back the chosen
// specialist's reply after a short delay, and keeps the transcript and
// operations log that the front ends render.
//
// A session handles one request at a time. Submit returns immediately; the
// turn continues on its own goroutine and subscribers receive a Snapshot
// after every state change.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/audit"
	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/logging"
	"github.com/moolen/medidesk/internal/metrics"
	"github.com/moolen/medidesk/internal/simulator"
)

var (
	// ErrLocked is returned by Submit before a credential has been set.
	ErrLocked = errors.New("session is locked: no credential set")
	// ErrEmptyQuery is returned by Submit for blank queries.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrBusy is returned by Submit while another turn is in progress.
	ErrBusy = errors.New("a request is already being processed")
	// ErrEmptyCredential is returned by SetCredential for blank secrets.
	ErrEmptyCredential = errors.New("credential is empty")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session is closed")
)

const (
	// DefaultResponseDelay is how long a specialist appears to work.
	DefaultResponseDelay = 1500 * time.Millisecond
	// Apology is appended when the coordinator could not delegate.
	Apology = "Maaf, saya tidak dapat menentukan sub-agen yang tepat untuk permintaan ini."

	previewRunes            = 30
	defaultSubscriberBuffer = 16
)

// Config configures a Session. Classifier is required.
type Config struct {
	// ID defaults to a random UUID.
	ID         string
	Classifier delegation.Classifier
	// Clock drives the response delay. Defaults to the real clock.
	Clock clock.WithDelayedExecution
	// ResponseDelay defaults to DefaultResponseDelay when zero.
	ResponseDelay time.Duration
	Audit         *audit.SessionLog
	Metrics       *metrics.Metrics
	// Simulate produces specialist replies. Defaults to simulator.Simulate.
	Simulate func(agent agents.Identity, query string) string
	// SubscriberBuffer is the channel size for Subscribe. Defaults to 16.
	SubscriberBuffer int
}

// Session is a single-writer state machine. All exported methods are safe
// for concurrent use.
type Session struct {
	id         string
	classifier delegation.Classifier
	clock      clock.WithDelayedExecution
	audit      *audit.SessionLog
	metrics    *metrics.Metrics
	simulate   func(agents.Identity, string) string
	logger     *logging.Logger
	subBuffer  int

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	credential  string
	ready       bool
	phase       Phase
	active      agents.Identity
	processing  bool
	transcript  []Message
	logs        []LogEntry
	delay       time.Duration
	current     *Turn
	pending     clock.Timer
	subscribers map[int]chan Snapshot
	nextSubID   int
	closed      bool
}

// New creates a locked, idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Classifier == nil {
		return nil, errors.New("session: classifier is required")
	}
	if cfg.ResponseDelay < 0 {
		return nil, fmt.Errorf("session: response delay must not be negative, got %s", cfg.ResponseDelay)
	}

	s := &Session{
		id:          cfg.ID,
		classifier:  cfg.Classifier,
		clock:       cfg.Clock,
		audit:       cfg.Audit,
		metrics:     cfg.Metrics,
		simulate:    cfg.Simulate,
		subBuffer:   cfg.SubscriberBuffer,
		delay:       cfg.ResponseDelay,
		subscribers: make(map[int]chan Snapshot),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.simulate == nil {
		s.simulate = simulator.Simulate
	}
	if s.subBuffer <= 0 {
		s.subBuffer = defaultSubscriberBuffer
	}
	if s.delay == 0 {
		s.delay = DefaultResponseDelay
	}
	s.logger = logging.GetLogger("session").WithField("session_id", s.id)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetCredential unlocks the session. Later calls replace the credential for
// subsequent turns.
func (s *Session) SetCredential(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrEmptyCredential
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	first := !s.ready
	s.credential = secret
	s.ready = true
	if first {
		s.appendLogLocked(LevelSuccess, "System initialized. Security protocols active.")
		s.appendLogLocked(LevelInfo, "Coordinator Agent ready.")
	}
	s.publishLocked()
	s.mu.Unlock()

	_ = s.audit.LogCredentialSet(first)
	if first {
		s.logger.Info("Session unlocked")
	}
	return nil
}

// SetResponseDelay changes the specialist delay for turns delegated from now
// on.
func (s *Session) SetResponseDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("response delay must not be negative, got %s", d)
	}
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
	return nil
}

// Submit starts a turn for query. It returns ErrLocked, ErrEmptyQuery,
// ErrBusy or ErrClosed without touching the state when the request cannot
// be admitted.
func (s *Session) Submit(query string) (*Turn, error) {
	s.mu.Lock()
	if err := s.admitLocked(query); err != nil {
		s.mu.Unlock()
		s.metrics.Rejected(rejectionReason(err))
		s.logger.Debug("Rejected request: %v", err)
		return nil, err
	}

	turn := newTurn()
	s.current = turn
	s.transcript = append(s.transcript, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   query,
		Timestamp: s.clock.Now(),
	})
	s.processing = true
	s.active = agents.Coordinator
	s.phase = PhaseAwaitingDelegation
	s.appendLogLocked(LevelInfo, fmt.Sprintf("Incoming request: \"%s...\"", preview(query)))
	s.appendLogLocked(LevelWarning, "Coordinator analyzing user intent...")
	credential := s.credential
	s.publishLocked()
	s.mu.Unlock()

	s.metrics.TurnStarted()
	_ = s.audit.LogUserMessage(query)

	go s.run(turn, credential, query)
	return turn, nil
}

func (s *Session) admitLocked(query string) error {
	switch {
	case s.closed:
		return ErrClosed
	case !s.ready:
		return ErrLocked
	case strings.TrimSpace(query) == "":
		return ErrEmptyQuery
	case s.processing:
		return ErrBusy
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrEmptyQuery):
		return "empty"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "closed"
	}
}

// run performs the classification step of a turn.
func (s *Session) run(turn *Turn, credential, query string) {
	defer s.recoverTurn(turn)

	start := s.clock.Now()
	result := s.classifier.Classify(s.ctx, credential, query)
	elapsed := s.clock.Since(start)

	if result.IsDelegation() {
		s.delegate(turn, result, query, elapsed)
		return
	}
	s.fail(turn, result.Message, elapsed)
}

func (s *Session) delegate(turn *Turn, result delegation.Result, query string, elapsed time.Duration) {
	agent := delegation.Resolve(result.FunctionName)
	def := agents.MustGet(agent)

	s.mu.Lock()
	if !s.ownsLocked(turn) {
		s.mu.Unlock()
		s.finish(turn, OutcomeCancelled)
		return
	}
	s.appendLogLocked(LevelSuccess, "Intent Identified. Delegating to: "+def.Name)
	s.appendLogLocked(LevelInfo, fmt.Sprintf("Function Call: %s(%s)", result.FunctionName, argsJSON(result.Args)))
	if !delegation.Known(result.FunctionName) {
		s.appendLogLocked(LevelWarning, fmt.Sprintf("Unrecognized function %q. Falling back to %s.", result.FunctionName, def.Name))
	}
	s.active = agent
	s.phase = PhaseDelegated
	// AfterFunc callbacks may run under the clock's own lock, so the
	// continuation moves to a fresh goroutine.
	s.pending = s.clock.AfterFunc(s.delay, func() {
		go s.complete(turn, agent, query)
	})
	s.publishLocked()
	s.mu.Unlock()

	s.metrics.Delegated(string(agent))
	_ = s.audit.LogDelegation(string(agent), result.FunctionName, result.Args, elapsed)
	fields := []logging.LogField{
		logging.Field("function", result.FunctionName),
		logging.Field("agent", agent),
		logging.Field("duration_ms", elapsed.Milliseconds()),
	}
	if !delegation.Known(result.FunctionName) {
		s.logger.WarnWithFields("Coordinator called an unknown function", fields...)
	} else {
		s.logger.InfoWithFields("Delegated request", fields...)
	}
}

// complete delivers the specialist reply once the delay has elapsed.
func (s *Session) complete(turn *Turn, agent agents.Identity, query string) {
	defer s.recoverTurn(turn)

	content := s.simulate(agent, query)
	def := agents.MustGet(agent)

	s.mu.Lock()
	if !s.ownsLocked(turn) {
		s.mu.Unlock()
		s.finish(turn, OutcomeCancelled)
		return
	}
	s.transcript = append(s.transcript, Message{
		ID:        uuid.NewString(),
		Role:      RoleAgent,
		Agent:     agent,
		Content:   content,
		Timestamp: s.clock.Now(),
		Metadata:  &MessageMetadata{Secure: def.Secure},
	})
	s.appendLogLocked(LevelSuccess, "Sub-agent task completed successfully.")
	s.resetLocked()
	s.publishLocked()
	s.mu.Unlock()

	_ = s.audit.LogAgentResponse(string(agent), def.Secure, content)
	s.finish(turn, OutcomeDelegated)
}

func (s *Session) fail(turn *Turn, message string, elapsed time.Duration) {
	s.mu.Lock()
	if !s.ownsLocked(turn) {
		s.mu.Unlock()
		s.finish(turn, OutcomeCancelled)
		return
	}
	s.appendLogLocked(LevelError, "Delegation failed. Coordinator could not determine intent: "+message)
	s.transcript = append(s.transcript, Message{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Content:   Apology,
		Timestamp: s.clock.Now(),
	})
	s.resetLocked()
	s.publishLocked()
	s.mu.Unlock()

	_ = s.audit.LogClassificationError(message, elapsed)
	s.logger.WarnWithFields("Delegation failed",
		logging.Field("message", message),
		logging.Field("duration_ms", elapsed.Milliseconds()))
	s.finish(turn, OutcomeFailed)
}

// recoverTurn turns a panic inside a turn into a logged critical error and
// returns the session to idle.
func (s *Session) recoverTurn(turn *Turn) {
	r := recover()
	if r == nil {
		return
	}

	s.mu.Lock()
	if s.ownsLocked(turn) {
		s.appendLogLocked(LevelError, fmt.Sprintf("Critical Error: %v", r))
		s.resetLocked()
		s.publishLocked()
	}
	s.mu.Unlock()

	_ = s.audit.LogTurnFailed(fmt.Sprint(r))
	s.logger.Error("Turn crashed: %v", r)
	s.finish(turn, OutcomeCrashed)
}

func (s *Session) finish(turn *Turn, outcome Outcome) {
	if turn.finish(outcome) {
		s.metrics.TurnFinished(string(outcome))
	}
}

// ownsLocked reports whether turn may still change the session.
func (s *Session) ownsLocked(turn *Turn) bool {
	return !s.closed && s.current == turn
}

func (s *Session) resetLocked() {
	s.processing = false
	s.active = agents.None
	s.phase = PhaseIdle
	s.current = nil
	s.pending = nil
}

func (s *Session) appendLogLocked(level Level, message string) {
	s.logs = append(s.logs, LogEntry{
		ID:        uuid.NewString(),
		Timestamp: s.clock.Now(),
		Level:     level,
		Message:   message,
	})
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	transcript := make([]Message, len(s.transcript))
	for i, m := range s.transcript {
		if m.Metadata != nil {
			md := *m.Metadata
			m.Metadata = &md
		}
		transcript[i] = m
	}
	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)

	return Snapshot{
		ID:          s.id,
		Ready:       s.ready,
		ActiveAgent: s.active,
		Processing:  s.processing,
		Phase:       s.phase,
		Transcript:  transcript,
		Logs:        logs,
	}
}

// Subscribe returns a channel receiving a Snapshot after every state change,
// and a func that cancels the subscription. Slow subscribers miss
// intermediate updates rather than blocking the session, but the newest
// snapshot is always buffered. The channel is closed on cancel or
// Close.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, s.subBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

func (s *Session) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full buffer: drop the oldest snapshot so the newest state is
		// always delivered.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close cancels any in-flight turn and releases subscribers. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
	}
	turn := s.current
	s.resetLocked()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancel()
	if turn != nil {
		s.finish(turn, OutcomeCancelled)
	}
	_ = s.audit.LogSessionEnd()
	s.logger.Debug("Session closed")
	return nil
}

// preview returns the first runes of query for the operations log.
func preview(query string) string {
	r := []rune(query)
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r)
}

// argsJSON renders call arguments the way they appear in the operations log.
func argsJSON(args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return fmt.Sprintf("%v", args)
	}
	return strings.TrimRight(buf.String(), "\n")
}
