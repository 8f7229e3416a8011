// SPDX-License-Identifier: MIT

package session

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/reelroom/reelroom/internal/api"
	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/vtt"
)

// PickTrack selects the best subtitle track for the preferred languages using
// BCP 47 matching, so "en" picks up "en-US" tracks and vice versa. Returns
// nil when nothing matches.
func PickTrack(tracks []api.SubtitleTrack, preferred []string) *api.SubtitleTrack {
	if len(tracks) == 0 || len(preferred) == 0 {
		return nil
	}
	tags := make([]language.Tag, 0, len(tracks))
	idx := make([]int, 0, len(tracks))
	for i, tr := range tracks {
		tag, err := language.Parse(tr.Language)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		idx = append(idx, i)
	}
	if len(tags) == 0 {
		return nil
	}
	matcher := language.NewMatcher(tags)
	for _, pref := range preferred {
		want, err := language.Parse(pref)
		if err != nil {
			continue
		}
		if _, i, conf := matcher.Match(want); conf >= language.High {
			return &tracks[idx[i]]
		}
	}
	return nil
}

// EnableSubtitle fetches the named track, applies its stored per-movie
// offset, materializes the shifted document next to the position data, and
// attaches it to the player. It replaces any previously active track.
func (c *Controller) EnableSubtitle(track api.SubtitleTrack) error {
	c.mu.Lock()
	if c.state != StatePlaying && c.state != StateAttaching {
		c.mu.Unlock()
		return ErrNoSession
	}
	sctx := c.ctx
	movieID := c.movieID
	logger := c.logger
	c.mu.Unlock()

	offset, err := c.store.LoadSubtitleOffset(sctx, movieID, track.Language)
	if err != nil {
		logger.Warn().Err(err).Str("language", track.Language).Msg("subtitle offset load failed, using 0")
		offset = 0
	}

	body, err := c.client.FetchText(sctx, track.URL)
	if err != nil {
		return fmt.Errorf("fetch subtitle %q: %w", track.Language, err)
	}

	path, err := vtt.Materialize(c.dataDir, movieID, track.Language,
		body, time.Duration(offset*float64(time.Second)))
	if err != nil {
		return fmt.Errorf("materialize subtitle %q: %w", track.Language, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying && c.state != StateAttaching {
		return ErrNoSession
	}
	if c.activeTrack != nil {
		c.player.ClearTextTrack()
	}
	if err := c.player.SetTextTrack(path); err != nil {
		return fmt.Errorf("attach subtitle %q: %w", track.Language, err)
	}
	tr := track
	c.activeTrack = &tr
	metrics.SubtitleLoadsTotal.Inc()
	c.logger.Info().
		Str("language", track.Language).
		Float64("offset", offset).
		Msg("subtitle enabled")
	return nil
}

// SetSubtitleOffset persists a new timing offset for the active track and
// re-materializes it so the change applies immediately.
func (c *Controller) SetSubtitleOffset(seconds float64) error {
	c.mu.Lock()
	if c.activeTrack == nil {
		c.mu.Unlock()
		return ErrNoActiveSubtitle
	}
	track := *c.activeTrack
	sctx := c.ctx
	movieID := c.movieID
	c.mu.Unlock()

	if err := c.store.SaveSubtitleOffset(sctx, movieID, track.Language, seconds); err != nil {
		return fmt.Errorf("save subtitle offset: %w", err)
	}
	return c.EnableSubtitle(track)
}

// DisableSubtitle detaches the active track. A no-op when none is active.
func (c *Controller) DisableSubtitle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeTrack == nil {
		return
	}
	c.activeTrack = nil
	c.player.ClearTextTrack()
	c.logger.Info().Msg("subtitle disabled")
}

// EnablePreferredSubtitle picks the best available track for the configured
// language preference and enables it. Returns ErrNoActiveSubtitle when no
// track matches.
func (c *Controller) EnablePreferredSubtitle() error {
	tracks, err := c.AvailableSubtitles()
	if err != nil {
		return err
	}
	track := PickTrack(tracks, c.cfg.SubtitleLanguages)
	if track == nil {
		return ErrNoActiveSubtitle
	}
	return c.EnableSubtitle(*track)
}

// AvailableSubtitles lists the server-side tracks for the current movie.
func (c *Controller) AvailableSubtitles() ([]api.SubtitleTrack, error) {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateFailed {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	sctx := c.ctx
	owner, movieID := c.ref.Owner, c.movieID
	c.mu.Unlock()
	return c.client.Subtitles(sctx, owner, movieID)
}
