// SPDX-License-Identifier: MIT

package player

// Decision is the classification result for one error event.
type Decision struct {
	Retryable bool
}

// Classify maps an engine error event to retryable or fatal. The table is
// exhaustive policy: any combination not listed is non-retryable (fail
// closed).
//
//	mediaError   / bufferStalledError        -> retryable
//	mediaError   / bufferAppendError         -> fatal
//	networkError / levelEmptyError           -> retryable
//	networkError / fragLoadError  (403, 404) -> retryable
//	anything else                            -> fatal
func Classify(ev ErrorEvent) Decision {
	switch ev.Type {
	case TypeMediaError:
		if ev.Details == DetailBufferStalled {
			return Decision{Retryable: true}
		}
	case TypeNetworkError:
		switch ev.Details {
		case DetailLevelEmpty:
			return Decision{Retryable: true}
		case DetailFragLoad:
			if ev.ResponseCode == 403 || ev.ResponseCode == 404 {
				return Decision{Retryable: true}
			}
		}
	}
	return Decision{}
}
