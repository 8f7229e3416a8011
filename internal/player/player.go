// SPDX-License-Identifier: MIT

// Package player defines the contract of the external adaptive-bitrate
// playback engine and the error-classification policy applied to its runtime
// events. The engine itself (segment fetch, buffering, decode) is out of
// scope; the session controller only depends on this surface.
package player

import "context"

// Listener receives engine events for one loaded source. A listener is bound
// to a single Load call; events after Destroy or a subsequent Load must not
// be delivered.
type Listener interface {
	// OnManifestParsed fires once the manifest has been parsed and the
	// engine can accept seek/play commands.
	OnManifestParsed()
	// OnError fires for every runtime error the engine surfaces.
	OnError(ev ErrorEvent)
}

// Player is the adaptive player attachment point. One source is attached at a
// time: Load must synchronously detach and destroy any previous attachment
// before loading the new manifest.
type Player interface {
	Load(ctx context.Context, manifestURL string, l Listener) error
	Play() error
	Pause()
	Seek(seconds float64)
	CurrentTime() float64
	// BufferedEnd returns the end of the buffered range in seconds, or 0
	// when nothing is buffered.
	BufferedEnd() float64
	ExitFullscreen()
	// SetTextTrack renders the subtitle file at path as the active track,
	// replacing any previous one.
	SetTextTrack(path string) error
	ClearTextTrack()
	Destroy()
}
