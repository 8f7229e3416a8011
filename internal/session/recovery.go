// SPDX-License-Identifier: MIT

package session

import (
	"math"

	"github.com/reelroom/reelroom/internal/config"
)

// resolveRecoveryOffset computes the reattach start offset from the position
// captured at error time (already rewound by ErrorRewindSec from the raw
// player time). Close to the buffered edge the rewind is taken from the
// captured position so the player has room to prebuffer; otherwise it is
// taken from the raw error time. Never negative.
func resolveRecoveryOffset(captured, bufferedEnd float64, cfg config.Playback) float64 {
	raw := captured + cfg.ErrorRewindSec
	target := raw - cfg.ReattachRewindSec
	if bufferedEnd > 0 && bufferedEnd-captured <= cfg.EdgeWindowSec {
		target = captured - cfg.ReattachRewindSec
	}
	return math.Max(0, target)
}

// shouldPersist reports whether a position-tracking tick qualifies for a
// save: meaningful playback (>0s) that moved more than delta seconds since
// the last persisted value.
func shouldPersist(current, lastSaved, delta float64) bool {
	return current > 0 && math.Abs(current-lastSaved) > delta
}
