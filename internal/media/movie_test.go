// SPDX-License-Identifier: MIT

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovieRefPath(t *testing.T) {
	ref := MovieRef{
		Owner:      "alice",
		Collection: "movies",
		Name:       "Heat",
		Year:       1995,
		VideoFile:  "heat.mkv",
	}
	assert.Equal(t, "movies/Heat (1995)/heat.mkv", ref.Path())
}

func TestMovieIDDeterministic(t *testing.T) {
	a := MovieRef{Collection: "movies", Name: "Heat", Year: 1995, VideoFile: "heat.mkv"}
	b := MovieRef{Collection: "movies", Name: "Heat", Year: 1995, VideoFile: "heat.mkv"}

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEmpty(t, a.ID())
}

func TestMovieIDSensitiveToPathFields(t *testing.T) {
	base := MovieRef{Collection: "movies", Name: "Heat", Year: 1995, VideoFile: "heat.mkv"}

	variants := []MovieRef{
		{Collection: "classics", Name: "Heat", Year: 1995, VideoFile: "heat.mkv"},
		{Collection: "movies", Name: "Ronin", Year: 1995, VideoFile: "heat.mkv"},
		{Collection: "movies", Name: "Heat", Year: 1996, VideoFile: "heat.mkv"},
		{Collection: "movies", Name: "Heat", Year: 1995, VideoFile: "heat.mp4"},
	}
	for _, v := range variants {
		assert.NotEqual(t, base.ID(), v.ID(), "changing %v must change the id", v)
	}
}

func TestMovieIDIgnoresOwner(t *testing.T) {
	// The owner scopes API routes, not the content identity: the same file
	// shared out of two libraries resolves to one id.
	a := MovieRef{Owner: "alice", Collection: "movies", Name: "Heat", Year: 1995, VideoFile: "heat.mkv"}
	b := MovieRef{Owner: "bob", Collection: "movies", Name: "Heat", Year: 1995, VideoFile: "heat.mkv"}
	assert.Equal(t, a.ID(), b.ID())
}
