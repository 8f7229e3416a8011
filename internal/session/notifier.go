// SPDX-License-Identifier: MIT

package session

import "github.com/reelroom/reelroom/internal/api"

// Notifier surfaces session state to the user interface. Every terminal
// condition ends in exactly one PlaybackFailed or SessionExpired call so the
// UI can restore an actionable play affordance; the controller never dies
// silently.
type Notifier interface {
	// PlaybackWaiting reports transcode progress while the session waits
	// for the stream to become playable.
	PlaybackWaiting(snapshot api.StatusSnapshot)
	// PlaybackStarted fires when playback (re)starts.
	PlaybackStarted()
	// PlaybackFailed reports a terminal failure for this session.
	PlaybackFailed(message string)
	// SessionExpired reports that library authorization was rejected; the
	// auth collaborator must re-authenticate.
	SessionExpired()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) PlaybackWaiting(api.StatusSnapshot) {}
func (NopNotifier) PlaybackStarted()                   {}
func (NopNotifier) PlaybackFailed(string)              {}
func (NopNotifier) SessionExpired()                    {}

var _ Notifier = NopNotifier{}
