package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/moolen/medidesk/internal/audit"
	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/metrics"
)

// Factory creates sessions that share one classifier, audit sink and
// metrics set. The front ends each hold one.
type Factory struct {
	Classifier delegation.Classifier
	// Backend and Model are recorded in the session_start audit event.
	Backend string
	Model   string
	Audit   *audit.Logger
	Metrics *metrics.Metrics
	Clock   clock.WithDelayedExecution

	mu    sync.RWMutex
	delay time.Duration
}

// SetResponseDelay changes the delay given to sessions created afterwards.
// Zero selects DefaultResponseDelay.
func (f *Factory) SetResponseDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// ResponseDelay returns the delay new sessions start with.
func (f *Factory) ResponseDelay() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.delay == 0 {
		return DefaultResponseDelay
	}
	return f.delay
}

// New creates a session. An empty id selects a random one.
func (f *Factory) New(id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	log := f.Audit.ForSession(id)
	s, err := New(Config{
		ID:            id,
		Classifier:    f.Classifier,
		Clock:         f.Clock,
		ResponseDelay: f.ResponseDelay(),
		Audit:         log,
		Metrics:       f.Metrics,
	})
	if err != nil {
		return nil, err
	}
	_ = log.LogSessionStart(f.Backend, f.Model)
	return s, nil
}
