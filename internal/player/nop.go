// SPDX-License-Identifier: MIT

package player

import (
	"context"

	"github.com/rs/zerolog"
)

// Nop is a Player that only logs. It lets the daemon drive a full session
// life cycle without a real decode engine attached: Load reports the manifest
// as parsed immediately so the controller reaches the playing state.
type Nop struct {
	log zerolog.Logger
	pos float64
}

// NewNop creates a logging no-op player.
func NewNop(log zerolog.Logger) *Nop {
	return &Nop{log: log}
}

func (n *Nop) Load(ctx context.Context, manifestURL string, l Listener) error {
	n.log.Info().Str("manifest", manifestURL).Msg("nop player: load")
	l.OnManifestParsed()
	return nil
}

func (n *Nop) Play() error { return nil }
func (n *Nop) Pause()      {}

func (n *Nop) Seek(seconds float64) { n.pos = seconds }

func (n *Nop) CurrentTime() float64 { return n.pos }
func (n *Nop) BufferedEnd() float64 { return n.pos }
func (n *Nop) ExitFullscreen()      {}

func (n *Nop) SetTextTrack(path string) error {
	n.log.Debug().Str("path", path).Msg("nop player: text track")
	return nil
}

func (n *Nop) ClearTextTrack() {}
func (n *Nop) Destroy()        {}

var _ Player = (*Nop)(nil)
