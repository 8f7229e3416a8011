// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the playback-session
// subsystem. No per-session or per-movie labels: cardinality stays bounded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks currently active playback sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelroom_sessions_active",
		Help: "Current number of active playback sessions.",
	})

	// SessionsTotal counts started sessions by final outcome.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelroom_sessions_total",
		Help: "Total number of playback sessions, by outcome (played/failed).",
	}, []string{"outcome"})

	// RecoveriesTotal counts error-triggered recovery cycles by result.
	RecoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelroom_recoveries_total",
		Help: "Total number of playback recovery cycles, by result (recovered/failed/dropped).",
	}, []string{"result"})

	// StatusPollsTotal counts status poll attempts by result.
	StatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelroom_status_polls_total",
		Help: "Total number of transcode status polls, by result (ok/error/auth_expired/timeout).",
	}, []string{"result"})

	// ClassifierDecisionsTotal counts stream error classifications.
	ClassifierDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelroom_classifier_decisions_total",
		Help: "Total number of stream error classifications, by decision (retryable/fatal).",
	}, []string{"decision"})

	// SubtitleLoadsTotal counts materialized-and-attached subtitle tracks.
	SubtitleLoadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelroom_subtitle_loads_total",
		Help: "Total number of subtitle tracks fetched, shifted and attached.",
	})

	// PositionSavesTotal counts persisted playback positions.
	PositionSavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelroom_position_saves_total",
		Help: "Total number of persisted playback positions.",
	})
)

// RecordPoll records one status poll attempt.
func RecordPoll(result string) {
	StatusPollsTotal.WithLabelValues(result).Inc()
}

// RecordRecovery records the outcome of one recovery cycle.
func RecordRecovery(result string) {
	RecoveriesTotal.WithLabelValues(result).Inc()
}

// RecordClassification records one classifier decision.
func RecordClassification(retryable bool) {
	decision := "fatal"
	if retryable {
		decision = "retryable"
	}
	ClassifierDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordPositionSave records one persisted position.
func RecordPositionSave() {
	PositionSavesTotal.Inc()
}
