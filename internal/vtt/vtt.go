// SPDX-License-Identifier: MIT

// Package vtt applies user subtitle-timing offsets to WebVTT documents.
// Shifted tracks are materialized as new files; the active rendering is torn
// down and rebuilt rather than mutated in place.
package vtt

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// minCueDuration is the lower bound enforced between a cue's start and end.
const minCueDuration = 100 * time.Millisecond

// timingLine matches "HH:MM:SS.mmm --> HH:MM:SS.mmm" with optional hours on
// input and optional trailing cue settings.
var timingLine = regexp.MustCompile(
	`^(?:(\d{1,4}):)?([0-5]?\d):([0-5]\d)\.(\d{3})[ \t]+-->[ \t]+(?:(\d{1,4}):)?([0-5]?\d):([0-5]\d)\.(\d{3})(.*)$`)

// ShiftDocument returns the document with every cue timing shifted by offset.
// A start that would go negative is clipped to zero, and the paired end moves
// by the same clipped amount, so cue durations survive clipping. End times
// always stay at least 100ms after their start. Non-timing lines pass through
// untouched. Timestamps are always emitted with an hours field.
func ShiftDocument(src string, offset time.Duration) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		m := timingLine.FindStringSubmatch(line)
		if m == nil {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		start := parseTimestamp(m[1], m[2], m[3], m[4])
		end := parseTimestamp(m[5], m[6], m[7], m[8])
		if end < start {
			return "", fmt.Errorf("vtt: line %d: end %s before start %s", lineNo, m[5]+":"+m[6], m[1]+":"+m[2])
		}

		// Clip at zero: the effective shift applied to both timestamps.
		effective := offset
		if start+effective < 0 {
			effective = -start
		}
		newStart := start + effective
		newEnd := end + effective
		if newEnd < newStart+minCueDuration {
			newEnd = newStart + minCueDuration
		}

		out.WriteString(formatTimestamp(newStart))
		out.WriteString(" --> ")
		out.WriteString(formatTimestamp(newEnd))
		out.WriteString(m[9])
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("vtt: scan: %w", err)
	}
	return out.String(), nil
}

// Materialize writes the shifted document atomically into dir and returns the
// file path. The file name is stable per movie+track so rebuilds overwrite
// the previous rendition.
func Materialize(dir, movieID, language, src string, offset time.Duration) (string, error) {
	shifted, err := ShiftDocument(src, offset)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("vtt: create dir: %w", err)
	}
	path := filepath.Join(dir, movieID+"."+language+".vtt")
	if err := renameio.WriteFile(path, []byte(shifted), 0o644); err != nil {
		return "", fmt.Errorf("vtt: write track: %w", err)
	}
	return path, nil
}

func parseTimestamp(hh, mm, ss, ms string) time.Duration {
	h := 0
	if hh != "" {
		h, _ = strconv.Atoi(hh)
	}
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	frac, _ := strconv.Atoi(ms)
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(frac)*time.Millisecond
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
