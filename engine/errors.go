package engine

import "fmt"

// ErrorKind classifies engine failures per the call-flow error model.
type ErrorKind string

const (
	// ErrorKindDefinition covers missing flows, missing nodes, and dangling
	// edge targets. Handled with spoken fallbacks, never a dead call.
	ErrorKindDefinition ErrorKind = "definition"
	// ErrorKindInput covers branch keys with no matching edge.
	ErrorKindInput ErrorKind = "input"
	// ErrorKindIntegration covers failed external reads/writes.
	ErrorKindIntegration ErrorKind = "integration"
	// ErrorKindExhaustion covers gather/survey timeouts and the chained
	// advance cap.
	ErrorKindExhaustion ErrorKind = "exhaustion"
)

// FlowError is the canonical error carried through a dispatch. Whatever the
// kind, the dispatcher still answers the provider with parseable markup.
type FlowError struct {
	Kind    ErrorKind
	FlowID  string
	NodeID  string
	Message string
	Cause   error
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("[%s] %s (flow: %s, node: %s)", e.Kind, e.Message, e.FlowID, e.NodeID)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FlowError) Unwrap() error { return e.Cause }
