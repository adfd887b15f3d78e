package engine

import (
	"log/slog"

	"github.com/xordon/callflow/flow"
)

// Call is the execution context for one webhook request. It is built fresh
// per request and thrown away with the response; the continuation URL in the
// emitted markup is the only state that survives.
type Call struct {
	// RequestID tags log lines for this dispatch.
	RequestID string
	// Flow is the authored graph, read-only during execution.
	Flow *flow.Flow
	// Tenant is the flow's owner, scoping every directory and side-effect
	// call.
	Tenant string
	// Params are the provider parameters of the current request only.
	Params Params
	// Action is the single-use continuation qualifier, "" on first entry.
	Action string

	Deps   *Deps
	Cont   Continuations
	Clock  Clock
	Logger *slog.Logger
}

// nextID resolves the edge leaving nodeID with an optional handle.
func (c *Call) nextID(nodeID, handle string) (string, bool) {
	return c.Flow.NextNodeID(nodeID, handle)
}

// advanceNext chains into the unkeyed next node, or hangs up when the graph
// ends here. This is the default motion for non-interactive nodes.
func (c *Call) advanceNext(nodeID string) Result {
	if id, ok := c.nextID(nodeID, ""); ok {
		return Advance{NodeID: id}
	}
	return Terminate{}
}

// branch resolves a computed yes/no condition to an edge: the keyed edge
// first, then the unkeyed default so authors may omit one branch.
func (c *Call) branch(nodeID string, yes bool) (Result, bool) {
	handle := "no"
	if yes {
		handle = "yes"
	}
	if id, ok := c.nextID(nodeID, handle); ok {
		return Advance{NodeID: id}, true
	}
	if id, ok := c.nextID(nodeID, ""); ok {
		return Advance{NodeID: id}, true
	}
	return nil, false
}

// effect runs one side-effect write and folds any failure into an Outcome.
// Integration failures are logged and never surfaced to the caller: a
// misconfigured integration must not break call flow.
func (c *Call) effect(name string, fn func() error) Outcome {
	if fn == nil {
		c.Logger.Warn("side effect skipped, no adapter configured",
			"effect", name,
			"request", c.RequestID)
		return Failed(nil)
	}
	if err := fn(); err != nil {
		c.Logger.Error("side effect failed",
			"effect", name,
			"flow", c.Flow.ID,
			"request", c.RequestID,
			"error", err)
		return Failed(err)
	}
	return Done()
}
