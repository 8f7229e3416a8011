// SPDX-License-Identifier: MIT

package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reelroom/reelroom/internal/api"
)

type scriptedAPI struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (api.StatusSnapshot, error)
}

func (s *scriptedAPI) Status(ctx context.Context, ownerID, movieID string) (api.StatusSnapshot, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	fn := s.fn
	s.mu.Unlock()
	return fn(call)
}

func (s *scriptedAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish in time")
	}
}

func TestPollerStopsOnFailedStage(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedAPI{fn: func(call int) (api.StatusSnapshot, error) {
		if call == 1 {
			return api.StatusSnapshot{Stage: api.StageReencoding, Percentage: 10}, nil
		}
		return api.StatusSnapshot{Stage: api.StageFailed, Message: "encode error"}, nil
	}}

	var snaps []api.StatusSnapshot
	var mu sync.Mutex
	p := New(client, Options{Interval: 5 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{
		OnSnapshot: func(s api.StatusSnapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	}))

	waitDone(t, p)

	// No further ticks after the terminal stage even though the interval
	// would keep firing.
	calls := client.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, client.callCount())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 2)
	assert.Equal(t, api.StageFailed, snaps[1].Stage)
}

func TestPollerStopIsIdempotentAndImmediate(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedAPI{fn: func(call int) (api.StatusSnapshot, error) {
		return api.StatusSnapshot{Stage: api.StageReencoding, Percentage: float64(call)}, nil
	}}

	p := New(client, Options{Interval: 5 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{}))

	p.Stop()
	p.Stop() // safe to call twice
	waitDone(t, p)

	calls := client.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, client.callCount(), "no ticks after Stop")
}

func TestPollerStopBeforeStart(t *testing.T) {
	p := New(&scriptedAPI{fn: func(int) (api.StatusSnapshot, error) {
		return api.StatusSnapshot{}, nil
	}}, Options{}, zerolog.Nop())
	p.Stop() // must not panic or block

	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{}))
	waitDone(t, p)
}

func TestPollerRejectsReuse(t *testing.T) {
	client := &scriptedAPI{fn: func(int) (api.StatusSnapshot, error) {
		return api.StatusSnapshot{Stage: api.StageCompleted, Percentage: 100}, nil
	}}
	p := New(client, Options{Interval: time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{}))
	assert.ErrorIs(t, p.Start(context.Background(), "alice", "m1", Handlers{}), ErrAlreadyStarted)
	waitDone(t, p)
}

func TestPollerSwallowsTransientErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedAPI{fn: func(call int) (api.StatusSnapshot, error) {
		if call < 3 {
			return api.StatusSnapshot{}, &api.RequestError{Sentinel: api.ErrUpstreamError, Operation: "status", Status: 500}
		}
		return api.StatusSnapshot{Stage: api.StageCompleted, Percentage: 100}, nil
	}}

	var got []api.StatusSnapshot
	var mu sync.Mutex
	p := New(client, Options{Interval: 2 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{
		OnSnapshot: func(s api.StatusSnapshot) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		},
	}))

	waitDone(t, p)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1, "failed polls must not surface snapshots")
	assert.Equal(t, api.StageCompleted, got[0].Stage)
	assert.GreaterOrEqual(t, client.callCount(), 3)
}

func TestPollerStopsOnAuthFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedAPI{fn: func(int) (api.StatusSnapshot, error) {
		return api.StatusSnapshot{}, &api.RequestError{Sentinel: api.ErrAuthExpired, Operation: "status", Status: 401}
	}}

	authErr := make(chan error, 1)
	p := New(client, Options{Interval: 2 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{
		OnAuthExpired: func(err error) { authErr <- err },
	}))

	waitDone(t, p)

	select {
	case err := <-authErr:
		assert.True(t, api.IsAuthExpired(err))
	default:
		t.Fatal("expected auth-expired callback")
	}
	assert.Equal(t, 1, client.callCount(), "auth failure stops polling immediately")
}

func TestPollerTimesOutWithoutTerminalStage(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedAPI{fn: func(int) (api.StatusSnapshot, error) {
		return api.StatusSnapshot{Stage: api.StageReencoding, Percentage: 20}, nil
	}}

	timedOut := make(chan struct{}, 1)
	p := New(client, Options{Interval: 2 * time.Millisecond, MaxWait: 30 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(context.Background(), "alice", "m1", Handlers{
		OnTimeout: func() { timedOut <- struct{}{} },
	}))

	waitDone(t, p)

	select {
	case <-timedOut:
	default:
		t.Fatal("expected timeout callback")
	}
}

func TestPollerHonorsContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedAPI{fn: func(int) (api.StatusSnapshot, error) {
		return api.StatusSnapshot{Stage: api.StageStarting, Percentage: 0}, nil
	}}

	p := New(client, Options{Interval: 2 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, p.Start(ctx, "alice", "m1", Handlers{}))

	cancel()
	waitDone(t, p)
}
