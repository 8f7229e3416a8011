// SPDX-License-Identifier: MIT

package session

import (
	"time"

	"github.com/reelroom/reelroom/internal/metrics"
)

// trackPosition periodically samples the player position and persists it when
// it moved meaningfully since the last save. Runs until stop is closed or the
// session generation moves on.
func (c *Controller) trackPosition(g uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.stale(g) || c.state != StatePlaying {
			c.mu.Unlock()
			return
		}
		current := c.player.CurrentTime()
		if !shouldPersist(current, c.lastSaved, c.cfg.SaveDeltaSec) {
			c.mu.Unlock()
			continue
		}
		movieID := c.movieID
		sctx := c.ctx
		logger := c.logger
		c.mu.Unlock()

		if err := c.store.Save(sctx, movieID, current); err != nil {
			// Non-fatal: the next qualifying tick tries again.
			logger.Warn().Err(err).Float64("position", current).Msg("position save failed")
			continue
		}

		c.mu.Lock()
		if !c.stale(g) {
			c.lastSaved = current
		}
		c.mu.Unlock()
		metrics.RecordPositionSave()
		logger.Debug().Float64("position", current).Msg("position saved")
	}
}
