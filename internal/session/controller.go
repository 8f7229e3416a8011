// SPDX-License-Identifier: MIT

// Package session implements the playback session controller: it acquires a
// streaming manifest (requesting on-demand transcoding when none exists),
// promotes the session to playing on status-channel readiness, tracks and
// persists playback position, and recovers position and state after
// retryable stream errors.
//
// The controller reconciles user playback, transcode progress polling, and
// player error events behind one mutex. Every asynchronous continuation
// carries the generation it was created under and no-ops when a newer
// session has taken over.
package session

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reelroom/reelroom/internal/api"
	"github.com/reelroom/reelroom/internal/config"
	"github.com/reelroom/reelroom/internal/log"
	"github.com/reelroom/reelroom/internal/media"
	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/player"
	"github.com/reelroom/reelroom/internal/position"
	"github.com/reelroom/reelroom/internal/status"
)

var (
	// ErrSessionActive is returned by Start while another session runs on
	// this controller.
	ErrSessionActive = errors.New("session: another session is active")
	// ErrNoSession is returned by operations that need a running session.
	ErrNoSession = errors.New("session: no active session")
	// ErrNoActiveSubtitle is returned by SetSubtitleOffset without an
	// enabled track.
	ErrNoActiveSubtitle = errors.New("session: no active subtitle track")
)

// API is the slice of the library client the controller consumes.
type API interface {
	status.API
	Playlist(ctx context.Context, ownerID, movieID string) (string, error)
	RequestProcessing(ctx context.Context, ownerID, movieID string) error
	Subtitles(ctx context.Context, ownerID, movieID string) ([]api.SubtitleTrack, error)
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// Controller drives one playback session at a time.
type Controller struct {
	client  API
	player  player.Player
	store   position.Store
	cfg     config.Playback
	notify  Notifier
	dataDir string
	baseLog zerolog.Logger

	mu        sync.Mutex
	gen       uint64
	cycle     uint64
	state     State
	active    bool
	sessionID string
	ref       media.MovieRef
	movieID   string
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	poller        *status.Poller
	attachStarted bool
	pendingOffset float64
	recoveryPos   float64
	lastSaved     float64
	trackerStop   chan struct{}
	activeTrack   *api.SubtitleTrack
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the UI notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithDataDir sets the directory for materialized subtitle tracks.
func WithDataDir(dir string) Option {
	return func(c *Controller) { c.dataDir = dir }
}

// WithLogger overrides the base logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.baseLog = l }
}

// New creates an idle controller.
func New(client API, p player.Player, store position.Store, cfg config.Playback, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		player:  p,
		store:   store,
		cfg:     cfg,
		notify:  NopNotifier{},
		dataDir: "data",
		baseLog: log.WithComponent("session"),
		state:   StateIdle,
	}
	c.logger = c.baseLog
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current life-cycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// stale reports whether a continuation belongs to a superseded session.
// Caller must hold c.mu.
func (c *Controller) stale(gen uint64) bool {
	return gen != c.gen
}

// boundListener routes player events back into the controller tagged with
// the generation they were registered under.
type boundListener struct {
	c   *Controller
	gen uint64
}

func (l boundListener) OnManifestParsed() { l.c.onManifestParsed(l.gen) }

func (l boundListener) OnError(ev player.ErrorEvent) { l.c.onPlayerError(l.gen, ev) }

// Start begins playback of ref. It attempts one direct manifest acquisition;
// when the manifest does not exist yet it issues a single processing request
// and enters the processing-wait state driven by the status channel. A
// processing-request failure here leaves the controller Idle so the user can
// retry manually. A controller whose previous session ended in Failed is
// reusable: terminal failures leave no session active.
func (c *Controller) Start(ctx context.Context, ref media.MovieRef) error {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateFailed {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.gen++
	g := c.gen
	c.ref = ref
	c.movieID = ref.ID()
	c.sessionID = uuid.NewString()
	c.state = StateAcquiring
	c.active = true
	c.attachStarted = false
	c.recoveryPos = 0
	c.lastSaved = 0
	c.activeTrack = nil
	sctx, cancel := context.WithCancel(ctx)
	c.ctx = sctx
	c.cancel = cancel
	c.logger = c.baseLog.With().
		Str("session", c.sessionID).
		Str("movie", c.movieID).
		Logger()
	owner, movieID := ref.Owner, c.movieID
	logger := c.logger
	c.mu.Unlock()

	metrics.SessionsActive.Inc()
	logger.Info().Str("path", ref.Path()).Msg("session started")

	manifestURL, err := c.client.Playlist(sctx, owner, movieID)
	if err == nil {
		c.attach(g, manifestURL, false)
		return nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		logger.Error().Err(err).Msg("manifest acquisition failed")
		c.failTerminal(g, "could not reach the library; try again")
		return err
	}

	// Manifest not available yet: expected. One processing request, then
	// wait on the status channel.
	logger.Info().Msg("no manifest yet, requesting processing")
	if err := c.client.RequestProcessing(sctx, owner, movieID); err != nil {
		logger.Error().Err(err).Msg("processing request failed")
		c.mu.Lock()
		if !c.stale(g) {
			c.resetLocked()
			c.notify.PlaybackFailed("processing could not be started; try again")
			metrics.SessionsTotal.WithLabelValues("failed").Inc()
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(g) {
		return nil
	}
	c.state = StateWaiting
	c.notify.PlaybackWaiting(api.StatusSnapshot{Stage: api.StageStarting})
	return c.startPollerLocked(g)
}

// startPollerLocked starts a fresh status poller for the current cycle.
// Handlers carry both the session generation and the poll cycle: entering
// recovery bumps the cycle, so a snapshot still in flight from the stopped
// poller cannot route into the new cycle. Caller must hold c.mu.
func (c *Controller) startPollerLocked(g uint64) error {
	cy := c.cycle
	p := status.New(c.client, status.Options{
		Interval: c.cfg.PollInterval,
		MaxWait:  c.cfg.MaxProcessingWait,
	}, c.logger.With().Str("component", "status").Logger())
	c.poller = p
	return p.Start(c.ctx, c.ref.Owner, c.movieID, status.Handlers{
		OnSnapshot:    func(s api.StatusSnapshot) { c.onSnapshot(g, cy, s) },
		OnAuthExpired: func(err error) { c.onAuthExpired(g, cy, err) },
		OnTimeout:     func() { c.onPollTimeout(g, cy) },
	})
}

// ready reports whether the server is far enough along to serve partial
// output for playback.
func (c *Controller) ready(s api.StatusSnapshot) bool {
	return s.Stage == api.StageUploading ||
		(s.Stage == api.StageCompleted && s.Percentage >= c.cfg.ReadyPercent)
}

func (c *Controller) onSnapshot(g, cy uint64, snap api.StatusSnapshot) {
	c.mu.Lock()
	if c.stale(g) || cy != c.cycle {
		c.mu.Unlock()
		return
	}
	if snap.Stage == api.StageFailed {
		msg := "processing failed"
		if snap.Message != "" {
			msg = "processing failed: " + snap.Message
		}
		c.failLocked(msg)
		c.mu.Unlock()
		return
	}
	if c.state == StateWaiting || c.state == StateRecovering {
		c.notify.PlaybackWaiting(snap)
	}
	ready := c.ready(snap)
	if !ready && snap.Stage == api.StageCompleted {
		// Last snapshot of the cycle: the transcode is done and nothing
		// will raise the percentage further. Attach rather than wait on a
		// poller that has already stopped.
		ready = true
	}
	if c.attachStarted || !ready {
		c.mu.Unlock()
		return
	}

	// First readiness signal for this cycle.
	c.attachStarted = true
	recovering := c.state == StateRecovering
	if !recovering {
		c.state = StateAttaching
	}
	owner, movieID := c.ref.Owner, c.movieID
	sctx := c.ctx
	logger := c.logger
	c.mu.Unlock()

	logger.Info().
		Str("stage", string(snap.Stage)).
		Float64("percentage", snap.Percentage).
		Bool("recovering", recovering).
		Msg("stream ready enough to start")

	manifestURL, err := c.client.Playlist(sctx, owner, movieID)
	if err != nil {
		logger.Error().Err(err).Msg("manifest fetch after readiness failed")
		c.failTerminal(g, "stream became available but could not be loaded")
		return
	}
	c.attach(g, manifestURL, recovering)
}

// attach resolves the start offset and loads the manifest into the player.
// The seek and play commands run when the player reports the manifest as
// parsed.
func (c *Controller) attach(g uint64, manifestURL string, recovering bool) {
	c.mu.Lock()
	if c.stale(g) {
		c.mu.Unlock()
		return
	}
	captured := c.recoveryPos
	movieID := c.movieID
	lctx := c.ctx
	logger := c.logger
	c.mu.Unlock()

	var offset float64
	if recovering {
		offset = resolveRecoveryOffset(captured, c.player.BufferedEnd(), c.cfg)
	} else {
		saved, err := c.store.Load(lctx, movieID)
		if err != nil {
			logger.Warn().Err(err).Msg("position load failed, starting at 0")
			saved = 0
		}
		offset = saved
	}

	c.mu.Lock()
	if c.stale(g) {
		c.mu.Unlock()
		return
	}
	if !recovering {
		c.state = StateAttaching
	}
	c.pendingOffset = offset
	sctx := c.ctx
	c.mu.Unlock()

	logger.Info().
		Float64("offset", offset).
		Bool("recovering", recovering).
		Msg("attaching player")

	if err := c.player.Load(sctx, manifestURL, boundListener{c: c, gen: g}); err != nil {
		logger.Error().Err(err).Msg("player load failed")
		c.failTerminal(g, "player could not load the stream")
	}
}

func (c *Controller) onManifestParsed(g uint64) {
	c.mu.Lock()
	if c.stale(g) {
		c.mu.Unlock()
		return
	}
	offset := c.pendingOffset
	wasRecovering := c.state == StateRecovering
	c.state = StatePlaying
	c.lastSaved = offset
	if wasRecovering {
		c.recoveryPos = 0
	}
	logger := c.logger
	c.mu.Unlock()

	// Player commands run unlocked: an engine may deliver further events
	// synchronously from inside them.
	c.player.Seek(offset)
	if err := c.player.Play(); err != nil {
		logger.Warn().Err(err).Msg("autoplay rejected")
	}

	c.mu.Lock()
	stillPlaying := !c.stale(g) && c.state == StatePlaying
	if stillPlaying {
		c.startTrackingLocked(g)
	}
	c.mu.Unlock()
	if !stillPlaying {
		// Play itself surfaced an error and the session already moved on.
		return
	}

	if wasRecovering {
		metrics.RecordRecovery("recovered")
		logger.Info().Msg("playback recovered")
	} else {
		logger.Info().Msg("playback started")
	}
	c.notify.PlaybackStarted()
}

// onPlayerError is the recovery entry point. While a recovery is already in
// flight further retryable errors are dropped: at most one recovery cycle
// runs at a time.
func (c *Controller) onPlayerError(g uint64, ev player.ErrorEvent) {
	c.mu.Lock()
	if c.stale(g) {
		c.mu.Unlock()
		return
	}

	decision := player.Classify(ev)
	metrics.RecordClassification(decision.Retryable)
	if !decision.Retryable {
		c.logger.Debug().
			Str("type", ev.Type).
			Str("details", ev.Details).
			Int("code", ev.ResponseCode).
			Msg("ignoring non-retryable player error")
		c.mu.Unlock()
		return
	}
	if c.state == StateRecovering {
		metrics.RecordRecovery("dropped")
		c.logger.Debug().Msg("recovery in flight, dropping error event")
		c.mu.Unlock()
		return
	}
	if c.state != StatePlaying && c.state != StateAttaching {
		c.mu.Unlock()
		return
	}

	c.state = StateRecovering
	c.cycle++ // in-flight snapshots from the stopped poller are now stale
	c.attachStarted = false
	c.player.Pause()
	raw := c.player.CurrentTime()
	c.recoveryPos = math.Max(0, raw-c.cfg.ErrorRewindSec)
	c.player.ExitFullscreen()
	c.stopTrackingLocked()
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
	owner, movieID := c.ref.Owner, c.movieID
	recoveryPos := c.recoveryPos
	sctx := c.ctx
	logger := c.logger
	c.mu.Unlock()

	logger.Warn().
		Str("type", ev.Type).
		Str("details", ev.Details).
		Int("code", ev.ResponseCode).
		Float64("recoveryPos", recoveryPos).
		Msg("retryable stream error, starting recovery")

	err := c.client.RequestProcessing(sctx, owner, movieID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(g) {
		return
	}
	if err != nil {
		// Deliberate bound: no automatic retry of a failed recovery
		// request, the user must restart playback.
		logger.Error().Err(err).Msg("recovery processing request failed")
		metrics.RecordRecovery("failed")
		c.failLocked("playback could not be recovered; please restart playback")
		return
	}
	if perr := c.startPollerLocked(g); perr != nil {
		logger.Error().Err(perr).Msg("recovery poller start failed")
		metrics.RecordRecovery("failed")
		c.failLocked("playback could not be recovered; please restart playback")
	}
}

// Recovering reports whether an error-triggered recovery cycle is in flight.
func (c *Controller) Recovering() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRecovering
}

// RecoveryPosition returns the position captured for the current recovery
// cycle, 0 outside recovery.
func (c *Controller) RecoveryPosition() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recoveryPos
}

func (c *Controller) onAuthExpired(g, cy uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(g) || cy != c.cycle {
		return
	}
	c.logger.Warn().Err(err).Msg("library session expired")
	c.notify.SessionExpired()
	c.failLocked("session expired; sign in again")
}

func (c *Controller) onPollTimeout(g, cy uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(g) || cy != c.cycle {
		return
	}
	c.failLocked("processing is taking too long; try again later")
}

// failTerminal takes the lock and fails the session if still current.
func (c *Controller) failTerminal(g uint64, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(g) {
		return
	}
	c.failLocked(msg)
}

// failLocked moves the session to Failed and restores an actionable UI
// state. The session context is canceled so nothing outlives the session; a
// subsequent Start is accepted from Failed. Caller must hold c.mu.
func (c *Controller) failLocked(msg string) {
	if c.state == StateFailed {
		return
	}
	c.state = StateFailed
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
	c.stopTrackingLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.active {
		c.active = false
		metrics.SessionsActive.Dec()
	}
	metrics.SessionsTotal.WithLabelValues("failed").Inc()
	c.logger.Error().Str("state", c.state.String()).Msg(msg)
	c.notify.PlaybackFailed(msg)
}

// resetLocked returns the controller to Idle after a failed start. Caller
// must hold c.mu.
func (c *Controller) resetLocked() {
	c.state = StateIdle
	if c.active {
		c.active = false
		metrics.SessionsActive.Dec()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// startTrackingLocked begins the periodic, throttled position save. Caller
// must hold c.mu.
func (c *Controller) startTrackingLocked(g uint64) {
	if c.trackerStop != nil {
		return
	}
	stop := make(chan struct{})
	c.trackerStop = stop
	go c.trackPosition(g, stop)
}

// stopTrackingLocked halts the position tracker. Caller must hold c.mu.
func (c *Controller) stopTrackingLocked() {
	if c.trackerStop != nil {
		close(c.trackerStop)
		c.trackerStop = nil
	}
}

// Close tears the session down: stops polling and tracking, detaches the
// player, releases subtitle rendering, and invalidates every outstanding
// asynchronous continuation. Safe to call on an idle controller.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++ // all outstanding continuations are now stale
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
	c.stopTrackingLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	wasActive := c.active
	played := c.state == StatePlaying
	c.active = false
	c.state = StateIdle
	c.activeTrack = nil
	c.recoveryPos = 0
	logger := c.logger
	c.mu.Unlock()

	c.player.ClearTextTrack()
	c.player.Destroy()

	if wasActive {
		metrics.SessionsActive.Dec()
		if played {
			metrics.SessionsTotal.WithLabelValues("played").Inc()
		}
	}
	logger.Info().Msg("session closed")
}
