// SPDX-License-Identifier: MIT

// Package status polls the library backend for transcode progress of one
// movie and feeds snapshots to the session controller. A poller is single
// use: the controller creates a fresh one for every wait or recovery cycle.
package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/reelroom/reelroom/internal/api"
	"github.com/reelroom/reelroom/internal/metrics"
)

// API is the slice of the library client the poller needs.
type API interface {
	Status(ctx context.Context, ownerID, movieID string) (api.StatusSnapshot, error)
}

// Handlers receive poll outcomes. All callbacks fire from the poll goroutine.
type Handlers struct {
	// OnSnapshot is called for every successfully fetched snapshot,
	// including the terminal one.
	OnSnapshot func(api.StatusSnapshot)
	// OnAuthExpired is called once when polling stops due to a 401/403.
	OnAuthExpired func(error)
	// OnTimeout is called once when the overall wait deadline elapses
	// before a terminal stage is observed.
	OnTimeout func()
}

// Options tune one poller.
type Options struct {
	Interval time.Duration // fixed poll interval, default 8s
	MaxWait  time.Duration // overall deadline, default 30m
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 8 * time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 30 * time.Minute
	}
}

// ErrAlreadyStarted is returned by Start on reuse.
var ErrAlreadyStarted = errors.New("status: poller already started")

// Poller issues one authenticated status request per interval until a
// terminal stage is observed, the deadline elapses, or Stop is called.
// Requests run sequentially on one goroutine, so at most one is in flight; a
// tick that would overlap a slow request simply fires late.
type Poller struct {
	client API
	opts   Options
	log    zerolog.Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a poller for one movie's wait cycle.
func New(client API, opts Options, log zerolog.Logger) *Poller {
	opts.defaults()
	return &Poller{
		client: client,
		opts:   opts,
		log:    log,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins polling in a background goroutine. It returns
// ErrAlreadyStarted on reuse; create a new Poller per cycle.
func (p *Poller) Start(ctx context.Context, ownerID, movieID string, h Handlers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	go p.run(ctx, ownerID, movieID, h)
	return nil
}

// Stop halts future ticks immediately. Safe to call multiple times and
// before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
}

// Done is closed once the poll goroutine has exited. Stop does not wait;
// tests and teardown paths that need quiescence select on Done.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context, ownerID, movieID string, h Handlers) {
	defer close(p.done)

	deadline := time.NewTimer(p.opts.MaxWait)
	defer deadline.Stop()

	// Transient failures widen the gap between attempts instead of
	// hammering the fixed interval; the next success resets it.
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = p.opts.Interval
	retry.MaxInterval = 4 * p.opts.Interval

	wait := time.Duration(0) // first poll fires immediately
	for {
		timer := time.NewTimer(wait)
		select {
		case <-p.stop:
			timer.Stop()
			p.log.Debug().Msg("status poll stopped")
			return
		case <-ctx.Done():
			timer.Stop()
			p.log.Debug().Msg("status poll context canceled")
			return
		case <-deadline.C:
			timer.Stop()
			p.log.Warn().Dur("maxWait", p.opts.MaxWait).Msg("status poll deadline elapsed")
			metrics.RecordPoll("timeout")
			if h.OnTimeout != nil {
				h.OnTimeout()
			}
			return
		case <-timer.C:
		}

		snap, err := p.client.Status(ctx, ownerID, movieID)
		if err != nil {
			if api.IsAuthExpired(err) {
				p.log.Warn().Err(err).Msg("status poll auth expired, stopping")
				metrics.RecordPoll("auth_expired")
				if h.OnAuthExpired != nil {
					h.OnAuthExpired(err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			// Transient: swallow and keep polling.
			wait = retry.NextBackOff()
			p.log.Debug().Err(err).Dur("retryIn", wait).Msg("status poll failed")
			metrics.RecordPoll("error")
			continue
		}

		retry.Reset()
		wait = p.opts.Interval
		metrics.RecordPoll("ok")

		// Deliver before deciding to stop so the controller also sees the
		// terminal snapshot.
		if h.OnSnapshot != nil {
			h.OnSnapshot(snap)
		}
		if snap.Stage.Terminal() {
			p.log.Info().Str("stage", string(snap.Stage)).Msg("status poll reached terminal stage")
			return
		}
	}
}
