package engine

import (
	"fmt"
	"net/url"
)

// Action qualifiers carried on continuation URLs. They are single-use: each
// tells the resumed node why the provider is calling back.
const (
	ActionGather    = "gather"
	ActionSurvey    = "survey"
	ActionScreen    = "screen"
	ActionLanguage  = "language"
	ActionRecording = "recording"
	ActionAI        = "ai"
	ActionNoInput   = "no-input"
)

// Continuations builds the callback URLs embedded in emitted markup. The URL
// is the only place execution state survives between webhooks: it encodes the
// flow id, the node to resume at, and an optional action qualifier.
type Continuations struct {
	// Base is prepended to every path, e.g. "https://crm.example.com/api/phone".
	// Empty means provider-relative URLs, which both providers accept.
	Base string
}

// Node is the address that resumes execution at the given node.
func (c Continuations) Node(flowID, nodeID string) string {
	return fmt.Sprintf("%s/flow/%s?nodeId=%s", c.Base, url.PathEscape(flowID), url.QueryEscape(nodeID))
}

// Action is Node plus a single-use action qualifier.
func (c Continuations) Action(flowID, nodeID, action string) string {
	return c.Node(flowID, nodeID) + "&action=" + url.QueryEscape(action)
}

// QueueWait is the hold-experience address for a queue.
func (c Continuations) QueueWait(flowID, queue, music string) string {
	u := fmt.Sprintf("%s/flow/%s/queue-wait?queue=%s", c.Base, url.PathEscape(flowID), url.QueryEscape(queue))
	if music != "" {
		u += "&music=" + url.QueryEscape(music)
	}
	return u
}

// QueueLeave is notified when the caller leaves a queue.
func (c Continuations) QueueLeave(flowID, queue string) string {
	return fmt.Sprintf("%s/flow/%s/queue-leave?queue=%s", c.Base, url.PathEscape(flowID), url.QueryEscape(queue))
}

// Whisper is the announcement played to the answering party before bridging.
func (c Continuations) Whisper(text string) string {
	return c.Base + "/whisper?text=" + url.QueryEscape(text)
}
