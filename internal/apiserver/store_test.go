package apiserver

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/metrics"
	"github.com/moolen/medidesk/internal/session"
)

func newStore(t *testing.T, size int) (*Store, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	factory := &session.Factory{Classifier: delegation.NewClient(delegation.Options{
		Connect: delegation.ScenarioConnector(delegation.DefaultScenario()),
	})}
	store, err := NewStore(factory, size, m)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store, m
}

func TestStore_EvictionClosesSession(t *testing.T) {
	store, m := newStore(t, 2)

	first, err := store.Create()
	require.NoError(t, err)
	second, err := store.Create()
	require.NoError(t, err)

	_, ok := store.Get(first.ID())
	require.True(t, ok)

	third, err := store.Create()
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	_, ok = store.Get(second.ID())
	assert.False(t, ok, "least recently used session is evicted")
	assert.ErrorIs(t, second.SetCredential("k"), session.ErrClosed)
	assert.NoError(t, third.SetCredential("k"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsActive))
}

func TestStore_DeleteAndEach(t *testing.T) {
	store, m := newStore(t, 0)

	a, err := store.Create()
	require.NoError(t, err)
	b, err := store.Create()
	require.NoError(t, err)

	var seen []string
	store.Each(func(s *session.Session) { seen = append(seen, s.ID()) })
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, seen)

	assert.True(t, store.Delete(a.ID()))
	assert.False(t, store.Delete(a.ID()))
	assert.ErrorIs(t, a.SetCredential("k"), session.ErrClosed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))

	store.Close()
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, b.SetCredential("k"), session.ErrClosed)
}
