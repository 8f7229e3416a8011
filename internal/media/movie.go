// SPDX-License-Identifier: MIT

// Package media defines the movie reference used to correlate status polling,
// position storage and processing requests.
package media

import (
	"crypto/sha256"
	"fmt"

	"github.com/jxskiss/base62"
)

// MovieRef identifies a playable asset inside a shared library.
type MovieRef struct {
	Owner      string // library owner identifier
	Collection string
	Name       string
	Year       int
	VideoFile  string
}

// Path returns the library-relative path of the video file. The path is the
// canonical form every backend component keys on.
func (r MovieRef) Path() string {
	return fmt.Sprintf("%s/%s (%d)/%s", r.Collection, r.Name, r.Year, r.VideoFile)
}

// ID returns the stable movie identifier: sha256 of Path(), truncated to 128
// bits and base62-encoded. Two refs with identical fields always yield the
// same id.
func (r MovieRef) ID() string {
	sum := sha256.Sum256([]byte(r.Path()))
	return base62.StdEncoding.EncodeToString(sum[:16])
}

func (r MovieRef) String() string {
	return r.Owner + ":" + r.Path()
}
