// SPDX-License-Identifier: MIT

package player

// Error event taxonomy of the adaptive engine. Type and detail strings match
// the engine's wire names verbatim so classification stays a table lookup.
const (
	TypeMediaError   = "mediaError"
	TypeNetworkError = "networkError"

	DetailBufferStalled = "bufferStalledError"
	DetailBufferAppend  = "bufferAppendError"
	DetailLevelEmpty    = "levelEmptyError"
	DetailFragLoad      = "fragLoadError"
)

// ErrorEvent is one runtime error surfaced by the engine.
type ErrorEvent struct {
	Type         string
	Details      string
	ResponseCode int // HTTP status of the failed request, 0 if not applicable
}
