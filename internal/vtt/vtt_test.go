// SPDX-License-Identifier: MIT

package vtt

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `WEBVTT

1
00:00:05.000 --> 00:00:07.500
First line

2
01:02:03.250 --> 01:02:05.750 line:0 position:50%
Second line
`

func TestShiftForward(t *testing.T) {
	out, err := ShiftDocument(sample, 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, out, "00:00:07.000 --> 00:00:09.500")
	assert.Contains(t, out, "01:02:05.250 --> 01:02:07.750 line:0 position:50%")
	assert.Contains(t, out, "First line")
}

func TestShiftRoundTrip(t *testing.T) {
	// +o then -o reproduces the original to millisecond precision when no
	// clipping occurred.
	offset := 1234 * time.Millisecond
	forward, err := ShiftDocument(sample, offset)
	require.NoError(t, err)
	back, err := ShiftDocument(forward, -offset)
	require.NoError(t, err)

	want := normalize(t, sample)
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// normalize runs a zero shift so timestamp formatting (hours always present)
// matches ShiftDocument output.
func normalize(t *testing.T, doc string) string {
	t.Helper()
	out, err := ShiftDocument(doc, 0)
	require.NoError(t, err)
	return out
}

func TestShiftClipsAtZero(t *testing.T) {
	doc := "00:00:05.000 --> 00:00:08.000\nHello\n"
	out, err := ShiftDocument(doc, -9999*time.Second)
	require.NoError(t, err)
	// Start clips to zero and the end moves by the same clipped amount, so
	// the cue keeps its 3s duration.
	assert.Contains(t, out, "00:00:00.000 --> 00:00:03.000")
}

func TestShiftClippedCueKeepsMinimumDuration(t *testing.T) {
	doc := "00:00:05.000 --> 00:00:05.040\nBlip\n"
	out, err := ShiftDocument(doc, -9999*time.Second)
	require.NoError(t, err)
	assert.Contains(t, out, "00:00:00.000 --> 00:00:00.100")
}

func TestShiftAcceptsHourlessInput(t *testing.T) {
	doc := "00:05.000 --> 00:07.000\nShort form\n"
	out, err := ShiftDocument(doc, time.Second)
	require.NoError(t, err)
	// Hours are always emitted on output.
	assert.Contains(t, out, "00:00:06.000 --> 00:00:08.000")
}

func TestShiftRejectsReversedTiming(t *testing.T) {
	doc := "00:00:09.000 --> 00:00:05.000\nBroken\n"
	_, err := ShiftDocument(doc, 0)
	require.Error(t, err)
}

func TestShiftLeavesCueTextAlone(t *testing.T) {
	doc := "NOTE 00:00:05.000 looks like a timestamp but is not a timing line\n"
	out, err := ShiftDocument(doc, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestMaterializeWritesStablePath(t *testing.T) {
	dir := t.TempDir()

	path, err := Materialize(dir, "movie1", "en", sample, 500*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "movie1.en.vtt"))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "00:00:05.500 --> 00:00:08.000")

	// Rebuild with another offset overwrites the same path.
	path2, err := Materialize(dir, "movie1", "en", sample, 0)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	body, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "00:00:05.000 --> 00:00:07.500")
}
