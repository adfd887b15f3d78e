package engine

import "github.com/xordon/callflow/markup"

// Result is what a node handler decides for the current step.
type Result interface {
	isResult()
}

// Respond ends the request with call-control markup. The provider executes it
// and, when the markup carries a continuation address, calls back with fresh
// input to resume the flow.
type Respond struct {
	Body *markup.Response
}

// Advance re-enters the dispatcher at another node within the same request.
// Non-interactive nodes chain this way without a provider round trip.
type Advance struct {
	NodeID string
}

// Terminate hangs the call up.
type Terminate struct{}

func (Respond) isResult()   {}
func (Advance) isResult()   {}
func (Terminate) isResult() {}

// Outcome reports a side-effect write. Action handlers never let a failed
// integration break call flow; they log the reason and keep going.
type Outcome struct {
	OK     bool
	Reason string
}

// Done is the successful Outcome.
func Done() Outcome { return Outcome{OK: true} }

// Failed wraps an error into a failure Outcome. A nil error counts as success.
func Failed(err error) Outcome {
	if err == nil {
		return Done()
	}
	return Outcome{Reason: err.Error()}
}
