// SPDX-License-Identifier: MIT

// Command reelroomd runs the playback-session daemon: it serves health and
// metrics endpoints, keeps the position store open, and can drive a playback
// session against the media-library backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reelroom/reelroom/internal/api"
	"github.com/reelroom/reelroom/internal/config"
	rlog "github.com/reelroom/reelroom/internal/log"
	"github.com/reelroom/reelroom/internal/media"
	"github.com/reelroom/reelroom/internal/player"
	"github.com/reelroom/reelroom/internal/position"
	"github.com/reelroom/reelroom/internal/session"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	playRef := flag.String("play", "", "play one movie and exit: owner/collection/name/year/file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "reelroomd: load configuration: %v\n", err)
		os.Exit(1)
	}

	rlog.Configure(rlog.Config{
		Level:   cfg.LogLevel,
		Service: "reelroom",
	})
	logger := rlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Listen).
		Msg("starting reelroomd")
	logger.Info().Msgf("→ Library: %s (auth: %v)", cfg.APIBaseURL, cfg.APIToken != "")
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "store.open_failed").Msg("failed to open position store")
	}
	defer store.Close() //nolint:errcheck

	client := api.New(cfg.APIBaseURL, api.WithToken(func() string {
		return cfg.APIToken
	}))

	// Hot reload of the config file; playback knobs apply to the next session.
	mgr := config.NewManager(cfg, strings.TrimSpace(*configPath), rlog.WithComponent("config"))
	mgr.OnChange(func(c config.Config) {
		logger.Info().Str("event", "config.reloaded").Msg("configuration reloaded")
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":%q}`+"\n", version)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.Listen).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if strings.TrimSpace(*configPath) != "" {
		g.Go(func() error {
			return mgr.Watch(gctx)
		})
	}

	if *playRef != "" {
		g.Go(func() error {
			defer stop() // one-shot mode: playing to the end ends the daemon
			return runPlayback(gctx, *playRef, client, store, mgr.Current().Playback, cfg.DataDir)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}

// openStore picks the position backend: Redis when configured, otherwise a
// local badger database under the data directory.
func openStore(cfg config.Config) (position.Store, error) {
	if cfg.RedisAddr != "" {
		return position.NewRedisStore(position.RedisConfig{Addr: cfg.RedisAddr},
			rlog.WithComponent("position"))
	}
	return position.OpenBadgerStore(filepath.Join(cfg.DataDir, "positions"))
}

// parseMovieRef parses the -play argument, five slash-separated fields:
// owner/collection/name/year/file.
func parseMovieRef(raw string) (media.MovieRef, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 5 {
		return media.MovieRef{}, fmt.Errorf("want owner/collection/name/year/file, got %d fields", len(parts))
	}
	year, err := strconv.Atoi(parts[3])
	if err != nil {
		return media.MovieRef{}, fmt.Errorf("invalid year %q: %w", parts[3], err)
	}
	return media.MovieRef{
		Owner:      parts[0],
		Collection: parts[1],
		Name:       parts[2],
		Year:       year,
		VideoFile:  parts[4],
	}, nil
}

// runPlayback drives one session with the logging no-op player until the
// session fails or the daemon is stopped.
func runPlayback(ctx context.Context, raw string, client session.API, store position.Store, playback config.Playback, dataDir string) error {
	ref, err := parseMovieRef(raw)
	if err != nil {
		return fmt.Errorf("parse -play: %w", err)
	}
	logger := rlog.WithMovie("playback", ref.ID())

	failed := make(chan string, 1)
	ctrl := session.New(client, player.NewNop(rlog.WithComponent("player")), store, playback,
		session.WithDataDir(dataDir),
		session.WithNotifier(logNotifier{log: logger, failed: failed}))
	defer ctrl.Close()

	if err := ctrl.Start(ctx, ref); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case msg := <-failed:
		return fmt.Errorf("playback failed: %s", msg)
	}
}

// logNotifier surfaces session events on the daemon log and reports the
// terminal failure to the one-shot playback runner.
type logNotifier struct {
	log    zerolog.Logger
	failed chan string
}

func (n logNotifier) PlaybackWaiting(s api.StatusSnapshot) {
	n.log.Info().
		Str("stage", string(s.Stage)).
		Float64("percentage", s.Percentage).
		Msg("waiting for processing")
}

func (n logNotifier) PlaybackStarted() {
	n.log.Info().Msg("playback started")
}

func (n logNotifier) PlaybackFailed(msg string) {
	n.log.Error().Msg(msg)
	select {
	case n.failed <- msg:
	default:
	}
}

func (n logNotifier) SessionExpired() {
	n.log.Warn().Msg("library session expired, re-authentication required")
}
