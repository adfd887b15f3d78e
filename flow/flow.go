// Package flow holds the authored call-flow graph model and edge resolution.
// A flow is the node/edge graph built in the visual designer; the engine
// treats it as immutable during execution.
package flow

import "encoding/json"

// NodeType tags a node with its behavior. Unknown types are legal: the engine
// treats them as pass-through.
type NodeType string

const (
	// Triggers
	TypeIncomingCall      NodeType = "incoming_call"
	TypeMissedCall        NodeType = "missed_call"
	TypeScheduledCallback NodeType = "scheduled_callback"

	// Media
	TypePlayAudio NodeType = "play_audio"
	TypePlayMusic NodeType = "play_music"

	// Input
	TypeGatherInput NodeType = "gather_input"
	TypeMenuOption  NodeType = "menu_option"

	// Routing
	TypeForwardCall    NodeType = "forward_call"
	TypeTransferCall   NodeType = "transfer_call" // legacy alias of forward_call
	TypeQueueCall      NodeType = "queue_call"
	TypeConferenceCall NodeType = "conference_call"
	TypeScreenCall     NodeType = "screen_call"

	// Conditions
	TypeTimeCheck         NodeType = "time_check"
	TypeHolidayCheck      NodeType = "holiday_check"
	TypeCallerIDCheck     NodeType = "caller_id_check"
	TypeVIPCheck          NodeType = "vip_check"
	TypeLanguageCheck     NodeType = "language_check"
	TypeGeoCheck          NodeType = "geo_check"
	TypeAgentAvailability NodeType = "agent_availability"
	TypeQueueStatus       NodeType = "queue_status"
	TypeExpressionCheck   NodeType = "expression_check"

	// Actions
	TypeSendSMS         NodeType = "send_sms"
	TypeSendEmail       NodeType = "send_email"
	TypeWebhook         NodeType = "webhook"
	TypeTagCall         NodeType = "tag_call"
	TypeUpdateCRM       NodeType = "update_crm"
	TypeCreateTicket    NodeType = "create_ticket"
	TypeCallbackRequest NodeType = "callback_request"
	TypeSurvey          NodeType = "survey"

	// Terminal and advanced
	TypeHangup          NodeType = "hangup"
	TypeRecordVoicemail NodeType = "record_voicemail"
	TypeAIAgent         NodeType = "ai_agent"
)

// IsTrigger reports whether the type starts a flow.
func (t NodeType) IsTrigger() bool {
	switch t {
	case TypeIncomingCall, TypeMissedCall, TypeScheduledCallback:
		return true
	}
	return false
}

// Node is one step in a flow. Role carries the designer-level kind
// ("trigger", "action", ...) while Type selects the handler.
type Node struct {
	ID     string         `yaml:"id" json:"id"`
	Role   string         `yaml:"role,omitempty" json:"role,omitempty"`
	Type   NodeType       `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// nodeWire is the designer's persisted node shape: the behavior type and its
// configuration live under a nested "data" object.
type nodeWire struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data *struct {
		Type   NodeType       `json:"type"`
		Config map[string]any `json:"config"`
	} `json:"data"`
}

// UnmarshalJSON accepts both the flat form and the designer's nested form.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w nodeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	n.ID = w.ID
	if w.Data != nil {
		n.Role = w.Type
		n.Type = w.Data.Type
		n.Config = w.Data.Config
		return nil
	}
	type flat Node
	var f flat
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Node(f)
	return nil
}

// Edge is a directed link between two nodes, optionally keyed by a branch
// handle (a DTMF digit, "yes"/"no", or a custom port name).
type Edge struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
	Handle string `yaml:"handle,omitempty" json:"sourceHandle,omitempty"`
	Label  string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Flow is an authored call-handling graph owned by a tenant.
type Flow struct {
	ID      string `yaml:"id" json:"id"`
	OwnerID string `yaml:"owner_id" json:"owner_id"`
	Nodes   []Node `yaml:"nodes" json:"nodes"`
	Edges   []Edge `yaml:"edges" json:"edges"`
}

// FindNode returns the node with the given id, or nil.
func (f *Flow) FindNode(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// StartNode resolves the flow's entry node: the first node with a trigger
// type, else the first node the designer flagged with the trigger role, else
// nil.
func (f *Flow) StartNode() *Node {
	for i := range f.Nodes {
		if f.Nodes[i].Type.IsTrigger() {
			return &f.Nodes[i]
		}
	}
	for i := range f.Nodes {
		if f.Nodes[i].Role == "trigger" {
			return &f.Nodes[i]
		}
	}
	return nil
}

// NextNode resolves the edge leaving fromID. With a non-empty handle only
// edges whose handle or label equals it match. Declaration order breaks ties:
// the first matching edge wins, matching the authoring tool's behavior.
func (f *Flow) NextNode(fromID, handle string) *Node {
	for _, e := range f.Edges {
		if e.Source != fromID {
			continue
		}
		if handle != "" && e.Handle != handle && e.Label != handle {
			continue
		}
		return f.FindNode(e.Target)
	}
	return nil
}

// NextNodeID is NextNode for callers that only need the id. It resolves the
// target id even when the target node is missing from the node set, so the
// dispatcher can report a definition error instead of silently hanging up.
func (f *Flow) NextNodeID(fromID, handle string) (string, bool) {
	for _, e := range f.Edges {
		if e.Source != fromID {
			continue
		}
		if handle != "" && e.Handle != handle && e.Label != handle {
			continue
		}
		return e.Target, true
	}
	return "", false
}
