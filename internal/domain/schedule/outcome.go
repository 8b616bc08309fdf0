// internal/domain/schedule/outcome.go
package schedule

import "errors"

var (
	// ErrUnauthorized means the API rejected the request signature (HTTP 401).
	ErrUnauthorized = errors.New("schedule api rejected request signature")
	// ErrMalformedResponse means a 200 response body could not be decoded.
	ErrMalformedResponse = errors.New("malformed schedule response")
)

// OutcomeKind tags the result of a single poll cycle.
type OutcomeKind string

const (
	OutcomeAvailable OutcomeKind = "AVAILABLE" // At least one schedule entry
	OutcomeEmpty     OutcomeKind = "EMPTY"     // Request succeeded, nothing bookable yet
	OutcomeFailed    OutcomeKind = "FAILED"
)

// FailureKind narrows down an OutcomeFailed.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureRequest FailureKind = "REQUEST" // Transport error or unexpected HTTP status
	FailureAuth    FailureKind = "AUTH"    // HTTP 401
	FailureDecode  FailureKind = "DECODE"  // 200 with an unreadable body
	FailurePanic   FailureKind = "PANIC"   // Recovered panic inside the cycle
)

// Outcome is what one poll cycle produced.
type Outcome struct {
	Kind    OutcomeKind
	Failure FailureKind
	Result  *PollResult // Set for OutcomeAvailable and OutcomeEmpty
	Err     error       // Set for OutcomeFailed
}

// Classify turns the return values of a schedule search into an Outcome.
func Classify(result *PollResult, err error) Outcome {
	switch {
	case err == nil && result != nil && len(result.Entries) > 0:
		return Outcome{Kind: OutcomeAvailable, Result: result}
	case err == nil && result != nil:
		return Outcome{Kind: OutcomeEmpty, Result: result}
	case err == nil:
		return Outcome{Kind: OutcomeFailed, Failure: FailureDecode, Err: ErrMalformedResponse}
	case errors.Is(err, ErrUnauthorized):
		return Outcome{Kind: OutcomeFailed, Failure: FailureAuth, Err: err}
	case errors.Is(err, ErrMalformedResponse):
		return Outcome{Kind: OutcomeFailed, Failure: FailureDecode, Err: err}
	default:
		return Outcome{Kind: OutcomeFailed, Failure: FailureRequest, Err: err}
	}
}

// Found reports whether the cycle found bookable schedules.
func (o Outcome) Found() bool {
	return o.Kind == OutcomeAvailable
}
