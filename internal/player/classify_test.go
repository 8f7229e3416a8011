// SPDX-License-Identifier: MIT

package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDecisionTable(t *testing.T) {
	tests := []struct {
		name      string
		ev        ErrorEvent
		retryable bool
	}{
		{"buffer stall", ErrorEvent{Type: TypeMediaError, Details: DetailBufferStalled}, true},
		{"buffer append", ErrorEvent{Type: TypeMediaError, Details: DetailBufferAppend}, false},
		{"level empty", ErrorEvent{Type: TypeNetworkError, Details: DetailLevelEmpty}, true},
		{"frag load 403", ErrorEvent{Type: TypeNetworkError, Details: DetailFragLoad, ResponseCode: 403}, true},
		{"frag load 404", ErrorEvent{Type: TypeNetworkError, Details: DetailFragLoad, ResponseCode: 404}, true},
		{"frag load 500", ErrorEvent{Type: TypeNetworkError, Details: DetailFragLoad, ResponseCode: 500}, false},
		{"frag load no code", ErrorEvent{Type: TypeNetworkError, Details: DetailFragLoad}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, Classify(tc.ev).Retryable)
		})
	}
}

func TestClassifyFailsClosed(t *testing.T) {
	// Any (type, details, code) combination outside the table is fatal.
	unknown := []ErrorEvent{
		{},
		{Type: "otherError"},
		{Type: TypeMediaError},
		{Type: TypeMediaError, Details: DetailFragLoad, ResponseCode: 404},
		{Type: TypeNetworkError, Details: DetailBufferStalled},
		{Type: TypeNetworkError, Details: "manifestLoadError", ResponseCode: 404},
		{Type: "muxError", Details: "remuxAllocError", ResponseCode: 403},
	}
	for _, ev := range unknown {
		assert.False(t, Classify(ev).Retryable, "event %+v must be fatal", ev)
	}
}
