// api/session/session_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/model"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	identity := model.Identity{
		UserID:      "user-1",
		Email:       "agent@example.com",
		WorkspaceID: "ws-1",
	}

	token, err := tm.Issue(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, identity, *parsed)
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := tm.Issue(model.Identity{UserID: "user-1", WorkspaceID: "ws-1"})
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, casaflow_errors.ErrUnauthorized)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Millisecond)

	token, err := tm.Issue(model.Identity{UserID: "user-1", WorkspaceID: "ws-1"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, casaflow_errors.ErrUnauthorized)
}

func TestTokenGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	_, err := tm.Validate("not.a.token")
	assert.ErrorIs(t, err, casaflow_errors.ErrUnauthorized)
}

func TestRefreshGateSingleFlight(t *testing.T) {
	gate := NewRefreshGate()

	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "fresh-token", nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make(chan string, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := gate.Refresh(context.Background(), fn)
			assert.NoError(t, err)
			results <- token
		}()
	}

	// Let every goroutine reach the gate before the refresh completes.
	require.Eventually(t, gate.Refreshing, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "only one refresh may run per burst")
	for i := 0; i < waiters; i++ {
		assert.Equal(t, "fresh-token", <-results)
	}
	assert.False(t, gate.Refreshing())
}

func TestRefreshGateSharesFailure(t *testing.T) {
	gate := NewRefreshGate()
	wantErr := errors.New("upstream down")

	release := make(chan struct{})
	go func() {
		_, _ = gate.Refresh(context.Background(), func(ctx context.Context) (string, error) {
			<-release
			return "", wantErr
		})
	}()
	require.Eventually(t, gate.Refreshing, time.Second, time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := gate.Refresh(context.Background(), func(ctx context.Context) (string, error) {
			t.Error("waiter must not start a second refresh")
			return "", nil
		})
		done <- err
	}()

	close(release)
	assert.ErrorIs(t, <-done, wantErr)
}

func TestRefreshGateRetryAfterFailure(t *testing.T) {
	gate := NewRefreshGate()

	_, err := gate.Refresh(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("first attempt fails")
	})
	require.Error(t, err)

	token, err := gate.Refresh(context.Background(), func(ctx context.Context) (string, error) {
		return "second-attempt", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "second-attempt", token)
}

func TestRefreshGateWaiterContextCancelled(t *testing.T) {
	gate := NewRefreshGate()

	release := make(chan struct{})
	go func() {
		_, _ = gate.Refresh(context.Background(), func(ctx context.Context) (string, error) {
			<-release
			return "token", nil
		})
	}()
	require.Eventually(t, gate.Refreshing, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gate.Refresh(ctx, func(ctx context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}
