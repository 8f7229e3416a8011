// SPDX-License-Identifier: MIT

package session

// State is the controller's playback life-cycle position. Transitions:
//
//	Idle → Acquiring → Waiting → Attaching → Playing ⇄ Recovering
//	                                       ↘ Failed
//
// Recovering owns the retry cycle end to end, so "recovering while not
// retrying" is unrepresentable.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateWaiting
	StateAttaching
	StatePlaying
	StateRecovering
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateAcquiring:  "acquiring",
	StateWaiting:    "waiting",
	StateAttaching:  "attaching",
	StatePlaying:    "playing",
	StateRecovering: "recovering",
	StateFailed:     "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}
