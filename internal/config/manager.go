// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Manager holds the current configuration and reloads it when the config
// file changes. Running sessions keep the values they started with; new
// sessions pick up the reloaded configuration.
type Manager struct {
	mu   sync.RWMutex
	cfg  Config
	path string
	log  zerolog.Logger
	subs []func(Config)
}

// NewManager wraps an already-loaded configuration.
func NewManager(cfg Config, path string, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, path: path, log: log}
}

// Current returns the active configuration.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OnChange registers a callback invoked after every successful reload.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Watch blocks until ctx is done, reloading the config file on change
// events. Invalid reloads keep the previous configuration.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck

	// Watch the directory: editors replace files, which drops the watch on
	// the file itself.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != m.path || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			m.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (m *Manager) reload() {
	cfg, err := Load(m.path)
	if err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config reload failed, keeping previous")
		return
	}

	m.mu.Lock()
	m.cfg = cfg
	subs := make([]func(Config), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.log.Info().Str("path", m.path).Msg("config reloaded")
	for _, fn := range subs {
		fn(cfg)
	}
}
