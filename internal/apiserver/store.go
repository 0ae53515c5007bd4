package apiserver

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/moolen/medidesk/internal/logging"
	"github.com/moolen/medidesk/internal/metrics"
	"github.com/moolen/medidesk/internal/session"
)

// DefaultMaxSessions bounds the store when no size is configured.
const DefaultMaxSessions = 256

// Store holds live sessions in an LRU. Evicted and removed sessions are
// closed.
type Store struct {
	cache   *lru.Cache[string, *session.Session]
	factory *session.Factory
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewStore creates a store holding at most size sessions.
func NewStore(factory *session.Factory, size int, m *metrics.Metrics) (*Store, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	s := &Store{
		factory: factory,
		metrics: m,
		logger:  logging.GetLogger("apiserver.store"),
	}
	cache, err := lru.NewWithEvict(size, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *Store) onEvict(id string, sess *session.Session) {
	_ = sess.Close()
	s.metrics.SetSessions(s.cache.Len())
	s.logger.Debug("Session %s closed and removed", id)
}

// Create starts a new session and stores it.
func (s *Store) Create() (*session.Session, error) {
	sess, err := s.factory.New("")
	if err != nil {
		return nil, err
	}
	if s.cache.Add(sess.ID(), sess) {
		s.logger.Info("Session limit reached, evicted least recently used session")
	}
	s.metrics.SetSessions(s.cache.Len())
	return sess, nil
}

// Get returns the session and marks it recently used.
func (s *Store) Get(id string) (*session.Session, bool) {
	return s.cache.Get(id)
}

// Delete closes and removes the session.
func (s *Store) Delete(id string) bool {
	return s.cache.Remove(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Each calls fn for every live session.
func (s *Store) Each(fn func(*session.Session)) {
	for _, sess := range s.cache.Values() {
		fn(sess)
	}
}

// Close closes every session.
func (s *Store) Close() {
	s.cache.Purge()
}
