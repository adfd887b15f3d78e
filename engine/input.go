package engine

import (
	"context"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

const (
	msgNoInput       = "We did not receive any input. Goodbye."
	msgInvalidOption = "I'm sorry, that is not a valid option."
)

// digitEdge resolves a typed digit string to an outgoing edge, accepting both
// the bare digit and the designer's "digit_<n>" port convention.
func digitEdge(call *Call, nodeID, digits string) (string, bool) {
	if id, ok := call.nextID(nodeID, digits); ok {
		return id, true
	}
	return call.nextID(nodeID, "digit_"+digits)
}

// consumeDigits hands the typed digits to the caller and removes them from
// the request. Digits are single-use: a second input node reached in the same
// request must prompt, not replay stale input.
func consumeDigits(call *Call) string {
	digits := call.Params.Digits()
	delete(call.Params, "Digits")
	call.Action = ""
	return digits
}

// handleGatherInput is two-phase. Without digits it emits the gather prompt
// whose action URL points back at this node; the next webhook carries the
// typed digits and routes down the matching digit edge. An unmapped digit
// re-prompts instead of failing the call.
func handleGatherInput(_ context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Params.Digits() != "" {
		digits := consumeDigits(call)
		if nextID, ok := digitEdge(call, node.ID, digits); ok {
			return Advance{NodeID: nextID}, nil
		}
		call.Logger.Info("unmapped gather digits, re-prompting", "node", node.ID, "digits", digits)
		resp := markup.New(markup.Say{Text: msgInvalidOption})
		resp.Add(gatherPrompt(call, node)...)
		return Respond{Body: resp}, nil
	}

	return Respond{Body: markup.New(gatherPrompt(call, node)...)}, nil
}

// gatherPrompt builds the gather block plus the no-input fallback. The
// fallback verbs only run when the provider-side timeout elapses with
// nothing typed.
func gatherPrompt(call *Call, node flow.Node) []markup.Verb {
	g := markup.Gather{
		NumDigits:   cfgInt(node.Config, "numDigits", 1),
		Timeout:     cfgInt(node.Config, "timeout", 5),
		FinishOnKey: cfgString(node.Config, "finishOnKey", "#"),
		Action:      call.Cont.Action(call.Flow.ID, node.ID, ActionGather),
		Hints:       cfgString(node.Config, "hints", ""),
		SpeechModel: cfgString(node.Config, "speechModel", ""),
	}
	if prompt := cfgString(node.Config, "prompt", ""); prompt != "" {
		g.Verbs = append(g.Verbs, markup.Say{Text: prompt})
	}

	return []markup.Verb{g, markup.Say{Text: msgNoInput}, markup.Hangup{}}
}

// handleMenuOption is the single-digit menu variant: one digit, a longer
// timeout, and no terminal fallback, so a silent caller just re-enters the
// flow when the provider ends the document.
func handleMenuOption(_ context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Params.Digits() != "" {
		digits := consumeDigits(call)
		call.Logger.Info("menu selection", "node", node.ID, "digits", digits)
		if nextID, ok := digitEdge(call, node.ID, digits); ok {
			return Advance{NodeID: nextID}, nil
		}
		resp := markup.New(markup.Say{Text: msgInvalidOption}, menuGather(call, node))
		return Respond{Body: resp}, nil
	}

	return Respond{Body: markup.New(menuGather(call, node))}, nil
}

func menuGather(call *Call, node flow.Node) markup.Gather {
	g := markup.Gather{
		NumDigits: 1,
		Timeout:   cfgInt(node.Config, "timeout", 10),
		Action:    call.Cont.Node(call.Flow.ID, node.ID),
	}
	if prompt := cfgString(node.Config, "prompt", ""); prompt != "" {
		g.Verbs = append(g.Verbs, markup.Say{Text: prompt})
	}
	return g
}
