package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopWait bool
}

func (f *fakeComponent) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.rec.add("start " + f.name)
	return nil
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	if f.stopWait {
		<-ctx.Done()
		f.rec.add("timeout " + f.name)
		return ctx.Err()
	}
	f.rec.add("stop " + f.name)
	return nil
}

func (f *fakeComponent) Name() string { return f.name }

func TestManager_StartsInDependencyOrder(t *testing.T) {
	rec := &recorder{}
	tracing := &fakeComponent{name: "tracing", rec: rec}
	api := &fakeComponent{name: "api", rec: rec}
	watcher := &fakeComponent{name: "watcher", rec: rec}

	m := NewManager()
	require.NoError(t, m.Register(tracing))
	require.NoError(t, m.Register(watcher))
	require.NoError(t, m.Register(api, tracing, watcher))

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning(api))

	require.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.IsRunning(api))

	assert.Equal(t, []string{
		"start tracing", "start watcher", "start api",
		"stop api", "stop watcher", "stop tracing",
	}, rec.events)
}

func TestManager_RegisterValidation(t *testing.T) {
	rec := &recorder{}
	a := &fakeComponent{name: "a", rec: rec}
	b := &fakeComponent{name: "b", rec: rec}

	m := NewManager()
	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeComponent{rec: rec}))
	assert.Error(t, m.Register(a, b), "unregistered dependency")
	require.NoError(t, m.Register(a))
	assert.Error(t, m.Register(a), "duplicate")
}

func TestManager_RollsBackOnStartFailure(t *testing.T) {
	rec := &recorder{}
	first := &fakeComponent{name: "first", rec: rec}
	broken := &fakeComponent{name: "broken", rec: rec, startErr: errors.New("port in use")}

	m := NewManager()
	require.NoError(t, m.Register(first))
	require.NoError(t, m.Register(broken, first))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialization failed for broken: port in use")
	assert.Equal(t, []string{"start first", "stop first"}, rec.events)
	assert.False(t, m.IsRunning(first))
}

func TestManager_ShutdownTimeoutPerComponent(t *testing.T) {
	rec := &recorder{}
	slow := &fakeComponent{name: "slow", rec: rec, stopWait: true}
	fast := &fakeComponent{name: "fast", rec: rec}

	m := NewManager()
	m.SetShutdownTimeout(20 * time.Millisecond)
	require.NoError(t, m.Register(fast))
	require.NoError(t, m.Register(slow))
	require.NoError(t, m.Start(context.Background()))

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, []string{"start fast", "start slow", "timeout slow", "stop fast"}, rec.events)
}
