// SPDX-License-Identifier: MIT

package api

import "time"

// Stage is a named phase of server-side transcoding progress.
type Stage string

const (
	StageStarting      Stage = "starting"
	StageReencoding    Stage = "reencoding"
	StageConvertingHLS Stage = "converting_hls"
	StageUploading     Stage = "uploading"
	StageCompleted     Stage = "completed"
	StageFailed        Stage = "failed"
)

// Terminal reports whether no further progress will be published for the
// stage.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// StatusSnapshot is one poll result for a movie's transcode progress. It is
// transient: overwritten on every tick, never persisted.
type StatusSnapshot struct {
	Stage      Stage      `json:"stageName"`
	Percentage float64    `json:"percentage"`
	Message    string     `json:"message,omitempty"`
	ETA        *time.Time `json:"eta,omitempty"`
}

// SubtitleTrack describes one selectable subtitle rendition.
type SubtitleTrack struct {
	Language string `json:"language"`
	Label    string `json:"label"`
	URL      string `json:"url"`
}
