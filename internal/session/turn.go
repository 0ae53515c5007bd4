package session

import (
	"context"
	"sync"
)

// Turn tracks one accepted request until the session is idle again.
type Turn struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newTurn() *Turn {
	return &Turn{done: make(chan struct{})}
}

// Done is closed when the turn has ended.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Outcome reports how the turn ended. It is empty until Done is closed.
func (t *Turn) Outcome() Outcome {
	select {
	case <-t.done:
		return t.outcome
	default:
		return ""
	}
}

// Wait blocks until the turn ends or ctx is done.
func (t *Turn) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// finish records the outcome. Only the first call has an effect.
func (t *Turn) finish(outcome Outcome) bool {
	finished := false
	t.once.Do(func() {
		t.outcome = outcome
		close(t.done)
		finished = true
	})
	return finished
}
