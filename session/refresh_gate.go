// api/session/refresh_gate.go
package session

import (
	"context"
	"sync"
)

// RefreshFunc exchanges the current credentials for a fresh token.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshGate serializes token refreshes. When several callers hit an expired
// token at once, exactly one runs the refresh; the rest block on the same
// in-flight attempt and share its outcome. All coordination state lives in the
// gate itself, so independent sessions never observe each other's refreshes.
type RefreshGate struct {
	mu       sync.Mutex
	inflight *refreshAttempt
}

type refreshAttempt struct {
	done  chan struct{}
	token string
	err   error
}

func NewRefreshGate() *RefreshGate {
	return &RefreshGate{}
}

// Refresh returns a fresh token, running fn at most once per burst of
// concurrent callers. A caller whose context expires while waiting gets the
// context error; the refresh itself keeps running for the others.
func (g *RefreshGate) Refresh(ctx context.Context, fn RefreshFunc) (string, error) {
	g.mu.Lock()
	if attempt := g.inflight; attempt != nil {
		g.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.token, attempt.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	attempt := &refreshAttempt{done: make(chan struct{})}
	g.inflight = attempt
	g.mu.Unlock()

	attempt.token, attempt.err = fn(ctx)

	g.mu.Lock()
	g.inflight = nil
	g.mu.Unlock()
	close(attempt.done)

	return attempt.token, attempt.err
}

// Refreshing reports whether a refresh is currently in flight.
func (g *RefreshGate) Refreshing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight != nil
}
